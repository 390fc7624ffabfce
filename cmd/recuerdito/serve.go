package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recuerdito/internal/auth"
	"recuerdito/internal/db"
	httpx "recuerdito/internal/http"
	"recuerdito/internal/jobs"
	"recuerdito/internal/notify"
	"recuerdito/internal/recovery"

	"github.com/urfave/cli"
)

func serve(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	if err := a.cfg.RequireServe(); err != nil {
		return err
	}
	if err := db.AutoMigrateAndIndexes(a.gdb); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// worker
	wake, err := jobs.Listen(ctx, a.cfg.DatabaseURL, a.log.With("listener"))
	if err != nil {
		a.log.Warning("LISTEN unavailable, polling only: %v", err)
	}
	worker := &jobs.Worker{
		ID:           a.cfg.WorkerID,
		Queue:        a.jobs,
		PollInterval: a.cfg.WorkerPollInterval,
		Wake:         wake,
		Log:          a.log.With("worker"),
	}
	worker.Handle(jobs.TypeReminderDelivery, notify.DeliveryHandler(a.sink(), a.log.With("delivery")))
	worker.Handle(jobs.TypeReconcile, a.recovery.Handler())
	go worker.Run(ctx)

	go func() {
		if err := a.recovery.RunPeriodic(ctx, a.cfg.ReconcileCron); err != nil {
			a.log.Error("periodic reconcile: %v", err)
		}
	}()

	if err := a.recovery.Trigger(ctx, recovery.ReasonBoot); err != nil {
		a.log.Error("boot reconcile: %v", err)
	}

	jwtSvc := auth.NewJWT(a.cfg.JWTSecret)
	r := httpx.NewRouter(a.cfg, a.gdb, jwtSvc, httpx.Deps{
		Scheduler: a.scheduler,
		Recovery:  a.recovery,
		Log:       a.log.With("reminders"),
	})

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("listening on %s", a.cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// SIGHUP means a new build was installed; the job table may hold jobs
	// computed by the old one.
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(ch)

	for {
		select {
		case err := <-errCh:
			return err
		case sig := <-ch:
			if sig == syscall.SIGHUP {
				if err := a.recovery.Trigger(ctx, recovery.ReasonUpdate); err != nil {
					a.log.Error("update reconcile: %v", err)
				}
				continue
			}
			// graceful shutdown
			cancel()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		}
	}
}
