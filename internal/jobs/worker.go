package jobs

import (
	"context"
	"errors"
	"math"
	"time"

	"recuerdito/internal/logger"
)

// HandlerFunc runs one claimed job. Returning nil marks the job DONE, a
// Permanent error marks it FAILED, any other error schedules a retry.
type HandlerFunc func(ctx context.Context, job *Job) error

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	return errors.As(err, new(permanentError))
}

// Queue is the part of Repo the worker drives.
type Queue interface {
	Claim(ctx context.Context, workerID string) (*Job, error)
	MarkDone(ctx context.Context, id uint64, workerID string) error
	MarkFailed(ctx context.Context, id uint64, workerID, errMsg string) error
	RetryLater(ctx context.Context, id uint64, workerID string, attempts int, runAt time.Time, errMsg string) error
}

const defaultPollInterval = 800 * time.Millisecond

type Worker struct {
	ID           string
	Queue        Queue
	PollInterval time.Duration
	// Wake, when set, triggers an immediate claim pass (see Listen).
	Wake <-chan struct{}
	Log  logger.Logger

	handlers map[Type]HandlerFunc
	now      func() time.Time
}

// Handle registers fn for jobs of type typ.
func (w *Worker) Handle(typ Type, fn HandlerFunc) {
	if w.handlers == nil {
		w.handlers = make(map[Type]HandlerFunc)
	}
	w.handlers[typ] = fn
}

func (w *Worker) log() logger.Logger {
	if w.Log == nil {
		return logger.Nop{}
	}
	return w.Log
}

func (w *Worker) clock() time.Time {
	if w.now != nil {
		return w.now()
	}
	return time.Now()
}

// Run claims and handles due jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	interval := w.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.log().Info("worker %s started, poll every %s", w.ID, interval)
	for {
		select {
		case <-ctx.Done():
			w.log().Info("worker %s stopped", w.ID)
			return
		case <-ticker.C:
			w.drain(ctx)
		case <-w.Wake:
			w.drain(ctx)
		}
	}
}

// drain handles due jobs until none is left.
func (w *Worker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		ok, err := w.RunOnce(ctx)
		if err != nil {
			w.log().Error("claim: %v", err)
			return
		}
		if !ok {
			return
		}
	}
}

// RunOnce claims at most one due job and handles it. It reports whether a job
// was claimed.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.Queue.Claim(ctx, w.ID)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	w.handle(ctx, job)
	return true, nil
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	fn, ok := w.handlers[job.Type]
	if !ok {
		w.log().Warning("job %s: unknown type %q", job.Key, job.Type)
		w.finish(w.Queue.MarkFailed(ctx, job.ID, w.ID, "unknown job type"), job)
		return
	}

	err := fn(ctx, job)
	switch {
	case err == nil:
		w.finish(w.Queue.MarkDone(ctx, job.ID, w.ID), job)
	case IsPermanent(err):
		w.log().Error("job %s failed: %v", job.Key, err)
		w.finish(w.Queue.MarkFailed(ctx, job.ID, w.ID, err.Error()), job)
	default:
		w.retry(ctx, job, err)
	}
}

func (w *Worker) retry(ctx context.Context, job *Job, cause error) {
	attempts := job.Attempts + 1
	limit := job.MaxAttempts
	if limit <= 0 {
		limit = defaultMaxAttempts
	}
	if attempts >= limit {
		w.log().Error("job %s gave up after %d attempts: %v", job.Key, attempts, cause)
		w.finish(w.Queue.MarkFailed(ctx, job.ID, w.ID, cause.Error()), job)
		return
	}

	next := w.clock().Add(backoff(attempts))
	w.log().Warning("job %s attempt %d failed, retry at %s: %v", job.Key, attempts, next.Format(time.RFC3339), cause)
	w.finish(w.Queue.RetryLater(ctx, job.ID, w.ID, attempts, next, cause.Error()), job)
}

func (w *Worker) finish(err error, job *Job) {
	if err != nil {
		w.log().Error("job %s: update state: %v", job.Key, err)
	}
}

// backoff doubles per attempt and is capped at ten minutes.
func backoff(attempts int) time.Duration {
	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	return time.Duration(sec) * time.Second
}
