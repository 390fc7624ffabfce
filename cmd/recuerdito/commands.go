package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"recuerdito/internal/db"
	"recuerdito/internal/importer"
	"recuerdito/internal/recovery"
	"recuerdito/internal/reminder"
	"recuerdito/internal/tools"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli"
)

func migrate(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	if err := db.AutoMigrateAndIndexes(a.gdb); err != nil {
		return err
	}
	fmt.Println("schema up to date")
	return nil
}

func reconcile(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	ctx := context.Background()

	if c.Bool("async") {
		if err := a.recovery.Trigger(ctx, recovery.ReasonManual); err != nil {
			return err
		}
		fmt.Printf("reconcile queued, runs in %s\n", a.cfg.RecoveryDelay)
		return nil
	}

	res, err := a.recovery.Reconcile(ctx)
	fmt.Printf("%d active reminders, %d failed\n", res.Active, res.Failed)
	return err
}

func list(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	ctx := context.Background()

	f := reminder.Filter{UserID: a.userFlag(c)}
	if f.Status, err = reminder.ParseStatus(c.String("status")); err != nil {
		return err
	}
	if cat := c.String("category"); cat != "" {
		if f.Category, err = reminder.ParseCategory(cat); err != nil {
			return err
		}
	}

	rows, err := a.reminders.List(ctx, f)
	if err != nil {
		return err
	}
	now := time.Now()
	fmt.Print(renderReminders(rows, now, a.cfg.Location()))

	if c.Bool("jobs") {
		pending, err := a.jobs.Pending(ctx)
		if err != nil {
			return err
		}
		fmt.Print(renderJobs(pending, now, a.cfg.Location()))
	}
	return nil
}

func importFile(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return errors.New("usage: recuerdito import <file.yaml>")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	a, err := setup(c)
	if err != nil {
		return err
	}
	n, err := importer.Import(context.Background(), a.service(), data, a.userFlag(c), a.cfg.Location())
	fmt.Printf("imported %d reminders\n", n)
	return err
}

func serveMCP(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	s := tools.NewServer(a.service(), a.reminders, a.cfg.MCPUserID, a.cfg.Location())
	return server.ServeStdio(s.MCPServer())
}
