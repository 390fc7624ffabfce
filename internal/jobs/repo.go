package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrQueueUnavailable wraps every failure of the job table during enqueue or
// cancel. Callers do not retry; reconciliation repairs missing jobs later.
var ErrQueueUnavailable = errors.New("job queue unavailable")

// NotifyChannel is the Postgres channel signalled on every enqueue.
const NotifyChannel = "reminder_jobs"

// stuckAfter is how long a RUNNING job may hold its lock before it is
// handed back to the queue.
const stuckAfter = 5 * time.Minute

type Repo struct {
	DB *gorm.DB
}

// EnqueueUnique inserts a PENDING job under key, or replaces whatever job
// currently holds key (any status) with the new timing and payload.
func (r *Repo) EnqueueUnique(ctx context.Context, key string, typ Type, runAt time.Time, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload for %s: %w", key, err)
	}

	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		j := Job{
			Key:         key,
			Type:        typ,
			Payload:     b,
			RunAt:       runAt,
			Status:      StatusPending,
			MaxAttempts: defaultMaxAttempts,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "key"}},
			DoUpdates: clause.Assignments(map[string]any{
				"type":       typ,
				"payload":    b,
				"run_at":     runAt,
				"status":     StatusPending,
				"attempts":   0,
				"locked_by":  nil,
				"locked_at":  nil,
				"last_error": nil,
				"updated_at": time.Now(),
			}),
		}).Create(&j).Error; err != nil {
			return err
		}

		// wake listening workers once the row is committed
		return tx.Exec(`select pg_notify(?, ?)`, NotifyChannel, key).Error
	})
	if err != nil {
		return fmt.Errorf("%w: enqueue %s: %w", ErrQueueUnavailable, key, err)
	}
	return nil
}

// CancelUnique cancels the PENDING job under key. A missing key, or a job
// that already started, is left alone and is not an error.
func (r *Repo) CancelUnique(ctx context.Context, key string) error {
	err := r.DB.WithContext(ctx).Exec(`
update jobs
set status='CANCELLED', updated_at=now()
where key=? and status='PENDING'`, key).Error
	if err != nil {
		return fmt.Errorf("%w: cancel %s: %w", ErrQueueUnavailable, key, err)
	}
	return nil
}

// Get returns the job stored under key, or nil when there is none.
func (r *Repo) Get(ctx context.Context, key string) (*Job, error) {
	var j Job
	err := r.DB.WithContext(ctx).Where("key = ?", key).First(&j).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// Pending lists PENDING jobs by run time.
func (r *Repo) Pending(ctx context.Context) ([]Job, error) {
	var out []Job
	err := r.DB.WithContext(ctx).
		Where("status = ?", StatusPending).
		Order("run_at asc").
		Find(&out).Error
	return out, err
}

// Claim one due job atomically using SKIP LOCKED.
// Works on Postgres.
func (r *Repo) Claim(ctx context.Context, workerID string) (*Job, error) {
	var job Job
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// requeue jobs whose worker died mid-run
		if err := tx.Exec(`
update jobs
set status='PENDING', locked_by=null, locked_at=null, updated_at=now()
where status='RUNNING' and locked_at is not null and locked_at < ?
`, time.Now().Add(-stuckAfter)).Error; err != nil {
			return err
		}

		// FOR UPDATE SKIP LOCKED ensures no double-claim
		q := tx.Raw(`
with cte as (
  select id
  from jobs
  where status='PENDING' and run_at <= now()
  order by run_at asc
  for update skip locked
  limit 1
)
update jobs
set status='RUNNING', locked_by=?, locked_at=now(), updated_at=now()
where id in (select id from cte)
returning *;
`, workerID)

		return q.Scan(&job).Error
	})
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

// The terminal transitions below only touch a row still RUNNING under this
// worker; a job replaced by EnqueueUnique while it ran keeps its new state.

func (r *Repo) MarkDone(ctx context.Context, id uint64, workerID string) error {
	return r.DB.WithContext(ctx).Exec(`
update jobs set status='DONE', updated_at=now()
where id=? and status='RUNNING' and locked_by=?`, id, workerID).Error
}

func (r *Repo) MarkFailed(ctx context.Context, id uint64, workerID, errMsg string) error {
	return r.DB.WithContext(ctx).Exec(`
update jobs set status='FAILED', last_error=?, updated_at=now()
where id=? and status='RUNNING' and locked_by=?`, errMsg, id, workerID).Error
}

func (r *Repo) RetryLater(ctx context.Context, id uint64, workerID string, attempts int, runAt time.Time, errMsg string) error {
	return r.DB.WithContext(ctx).Exec(`
update jobs
set status='PENDING',
    attempts=?,
    run_at=?,
    locked_by=null,
    locked_at=null,
    last_error=?,
    updated_at=now()
where id=? and status='RUNNING' and locked_by=?`, attempts, runAt, errMsg, id, workerID).Error
}
