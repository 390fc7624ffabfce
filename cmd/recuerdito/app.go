package main

import (
	"log"
	"os"

	"recuerdito/internal/config"
	"recuerdito/internal/db"
	"recuerdito/internal/jobs"
	"recuerdito/internal/logger"
	"recuerdito/internal/notify"
	"recuerdito/internal/recovery"
	"recuerdito/internal/reminder"

	"github.com/urfave/cli"
	"gorm.io/gorm"
)

// app holds the components every command builds from the config. There is
// one per process; nothing here is global.
type app struct {
	cfg       config.Config
	gdb       *gorm.DB
	log       *logger.Standard
	jobs      *jobs.Repo
	reminders *reminder.Repo
	scheduler *notify.Scheduler
	recovery  *recovery.Coordinator
}

func setup(c *cli.Context) (*app, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	base := logger.New(log.New(os.Stderr, "", log.LstdFlags), "")
	a := &app{
		cfg:       cfg,
		gdb:       gdb,
		log:       base,
		jobs:      &jobs.Repo{DB: gdb},
		reminders: &reminder.Repo{DB: gdb, Loc: cfg.Location()},
	}
	a.scheduler = notify.NewScheduler(a.jobs, notify.SystemClock{}, cfg.Location(), base.With("scheduler"))
	a.recovery = &recovery.Coordinator{
		Store:     a.reminders,
		Scheduler: a.scheduler,
		Queue:     a.jobs,
		Delay:     cfg.RecoveryDelay,
		Log:       base.With("recovery"),
	}
	return a, nil
}

func (a *app) service() *reminder.Service {
	return &reminder.Service{Store: a.reminders, Scheduler: a.scheduler, Log: a.log.With("reminders")}
}

func (a *app) sink() notify.Sink {
	switch {
	case !a.cfg.NotificationsEnabled:
		return notify.LogSink{Log: a.log.With("sink"), Disabled: true}
	case a.cfg.TelegramBotToken != "" && a.cfg.TelegramChatID != "":
		return notify.NewTelegramSink(a.cfg.TelegramBotToken, a.cfg.TelegramChatID)
	default:
		return notify.LogSink{Log: a.log.With("sink")}
	}
}

func (a *app) userFlag(c *cli.Context) uint64 {
	if uid := c.Uint64("user"); uid != 0 {
		return uid
	}
	return a.cfg.MCPUserID
}
