package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"recuerdito/internal/logger"
)

type transition struct {
	op       string
	id       uint64
	attempts int
	runAt    time.Time
	msg      string
}

type fakeQueue struct {
	mu      sync.Mutex
	ready   []*Job
	claimed []string
	log     []transition
	err     error
}

func (q *fakeQueue) Claim(_ context.Context, workerID string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	if len(q.ready) == 0 {
		return nil, nil
	}
	j := q.ready[0]
	q.ready = q.ready[1:]
	q.claimed = append(q.claimed, workerID)
	return j, nil
}

func (q *fakeQueue) MarkDone(_ context.Context, id uint64, _ string) error {
	q.record(transition{op: "done", id: id})
	return nil
}

func (q *fakeQueue) MarkFailed(_ context.Context, id uint64, _ string, msg string) error {
	q.record(transition{op: "failed", id: id, msg: msg})
	return nil
}

func (q *fakeQueue) RetryLater(_ context.Context, id uint64, _ string, attempts int, runAt time.Time, msg string) error {
	q.record(transition{op: "retry", id: id, attempts: attempts, runAt: runAt, msg: msg})
	return nil
}

func (q *fakeQueue) record(t transition) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.log = append(q.log, t)
}

func (q *fakeQueue) transitions() []transition {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]transition(nil), q.log...)
}

func TestWorker_DispatchesByType(t *testing.T) {
	q := &fakeQueue{ready: []*Job{
		{ID: 1, Key: "a", Type: TypeReminderDelivery},
		{ID: 2, Key: "b", Type: TypeReconcile},
	}}
	var seen []Type
	w := &Worker{ID: "w1", Queue: q}
	w.Handle(TypeReminderDelivery, func(_ context.Context, j *Job) error {
		seen = append(seen, j.Type)
		return nil
	})
	w.Handle(TypeReconcile, func(_ context.Context, j *Job) error {
		seen = append(seen, j.Type)
		return nil
	})

	w.drain(context.Background())

	if len(seen) != 2 || seen[0] != TypeReminderDelivery || seen[1] != TypeReconcile {
		t.Fatalf("handled %v", seen)
	}
	got := q.transitions()
	if len(got) != 2 || got[0].op != "done" || got[1].op != "done" {
		t.Fatalf("transitions %v", got)
	}
	if q.claimed[0] != "w1" {
		t.Fatalf("claimed as %q", q.claimed[0])
	}
}

func TestWorker_UnknownTypeFails(t *testing.T) {
	q := &fakeQueue{ready: []*Job{{ID: 9, Key: "x", Type: "MYSTERY"}}}
	w := &Worker{ID: "w1", Queue: q, Log: logger.NewMock()}

	if ok, err := w.RunOnce(context.Background()); !ok || err != nil {
		t.Fatalf("RunOnce = %v, %v", ok, err)
	}
	got := q.transitions()
	if len(got) != 1 || got[0].op != "failed" || got[0].msg != "unknown job type" {
		t.Fatalf("transitions %v", got)
	}
}

func TestWorker_TransientErrorRetriesWithBackoff(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	q := &fakeQueue{ready: []*Job{{ID: 3, Key: "r", Type: TypeReminderDelivery, Attempts: 2, MaxAttempts: 8}}}
	w := &Worker{ID: "w1", Queue: q, Log: logger.NewMock(), now: func() time.Time { return now }}
	w.Handle(TypeReminderDelivery, func(context.Context, *Job) error {
		return errors.New("sink timeout")
	})

	w.RunOnce(context.Background())

	got := q.transitions()
	if len(got) != 1 || got[0].op != "retry" {
		t.Fatalf("transitions %v", got)
	}
	if got[0].attempts != 3 {
		t.Fatalf("attempts = %d", got[0].attempts)
	}
	if want := now.Add(8 * time.Second); !got[0].runAt.Equal(want) {
		t.Fatalf("runAt = %v, want %v", got[0].runAt, want)
	}
}

func TestWorker_GivesUpAtMaxAttempts(t *testing.T) {
	q := &fakeQueue{ready: []*Job{{ID: 4, Key: "r", Type: TypeReminderDelivery, Attempts: 7, MaxAttempts: 8}}}
	w := &Worker{ID: "w1", Queue: q, Log: logger.NewMock()}
	w.Handle(TypeReminderDelivery, func(context.Context, *Job) error {
		return errors.New("still down")
	})

	w.RunOnce(context.Background())

	if got := q.transitions(); len(got) != 1 || got[0].op != "failed" {
		t.Fatalf("transitions %v", got)
	}
}

func TestWorker_PermanentErrorSkipsRetry(t *testing.T) {
	q := &fakeQueue{ready: []*Job{{ID: 5, Key: "p", Type: TypeReminderDelivery}}}
	w := &Worker{ID: "w1", Queue: q, Log: logger.NewMock()}
	w.Handle(TypeReminderDelivery, func(context.Context, *Job) error {
		return Permanent(errors.New("bad payload"))
	})

	w.RunOnce(context.Background())

	if got := q.transitions(); len(got) != 1 || got[0].op != "failed" || got[0].msg != "bad payload" {
		t.Fatalf("transitions %v", got)
	}
}

func TestWorker_ClaimErrorStopsDrain(t *testing.T) {
	q := &fakeQueue{err: errors.New("db gone")}
	log := logger.NewMock()
	w := &Worker{ID: "w1", Queue: q, Log: log}

	w.drain(context.Background())

	if log.ErrorCount() != 1 {
		t.Fatalf("errors = %v", log.Errors)
	}
}

func TestWorker_WakeTriggersClaim(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := &fakeQueue{}
	wake := make(chan struct{}, 1)
	handled := make(chan uint64, 1)
	w := &Worker{ID: "w1", Queue: q, PollInterval: time.Hour, Wake: wake}
	w.Handle(TypeReminderDelivery, func(_ context.Context, j *Job) error {
		handled <- j.ID
		return nil
	})
	go w.Run(ctx)

	q.mu.Lock()
	q.ready = append(q.ready, &Job{ID: 11, Key: "k", Type: TypeReminderDelivery})
	q.mu.Unlock()
	wake <- struct{}{}

	select {
	case id := <-handled:
		if id != 11 {
			t.Fatalf("handled %d", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("wake did not trigger a claim")
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{9, 512 * time.Second},
		{10, 600 * time.Second},
		{20, 600 * time.Second},
	}
	for _, tt := range tests {
		if got := backoff(tt.attempts); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}

func TestPermanent_Nil(t *testing.T) {
	if Permanent(nil) != nil {
		t.Fatal("Permanent(nil) should be nil")
	}
	base := errors.New("x")
	if !errors.Is(Permanent(base), base) {
		t.Fatal("Permanent should unwrap")
	}
	if !IsPermanent(fmt.Errorf("wrapped: %w", Permanent(base))) || IsPermanent(base) {
		t.Fatal("IsPermanent mismatch")
	}
}
