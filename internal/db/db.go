package db

import (
	"fmt"

	"recuerdito/internal/auth"
	"recuerdito/internal/jobs"
	"recuerdito/internal/reminder"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&reminder.Reminder{},
		&jobs.Job{},
		&auth.User{},
	); err != nil {
		return err
	}

	stmts := []string{
		// listing by owner and status, earliest due first
		`create index if not exists idx_reminders_user_status_due on reminders(user_id, status, due_date);`,
		// reconciliation scans every active reminder
		`create index if not exists idx_reminders_active_due on reminders(due_date) where status = 'active';`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
