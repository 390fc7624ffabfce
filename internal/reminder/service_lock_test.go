package reminder_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"recuerdito/internal/jobs"
	"recuerdito/internal/notify"
	"recuerdito/internal/reminder"
)

var lockNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// pausingStore is an in-memory store that can stop the first call of one
// operation after it has done its work, until released.
type pausingStore struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]reminder.Reminder
	pause  map[string]chan struct{}
	paused chan string
}

func newPausingStore() *pausingStore {
	return &pausingStore{
		rows:   make(map[uint64]reminder.Reminder),
		pause:  make(map[string]chan struct{}),
		paused: make(chan string, 1),
	}
}

// pauseAfter makes the next op call block once done; closing the returned
// channel lets it go on.
func (s *pausingStore) pauseAfter(op string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	release := make(chan struct{})
	s.pause[op] = release
	return release
}

func (s *pausingStore) wait(op string) {
	s.mu.Lock()
	release, ok := s.pause[op]
	delete(s.pause, op)
	s.mu.Unlock()
	if ok {
		s.paused <- op
		<-release
	}
}

func (s *pausingStore) Insert(_ context.Context, r *reminder.Reminder) (uint64, error) {
	s.mu.Lock()
	s.nextID++
	r.ID = s.nextID
	s.rows[r.ID] = *r
	s.mu.Unlock()
	s.wait("insert")
	return r.ID, nil
}

func (s *pausingStore) Update(_ context.Context, r *reminder.Reminder) error {
	s.mu.Lock()
	if _, ok := s.rows[r.ID]; !ok {
		s.mu.Unlock()
		return reminder.ErrNotFound
	}
	s.rows[r.ID] = *r
	s.mu.Unlock()
	s.wait("update")
	return nil
}

func (s *pausingStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	delete(s.rows, id)
	s.mu.Unlock()
	s.wait("delete")
	return nil
}

func (s *pausingStore) Get(_ context.Context, id uint64) (*reminder.Reminder, error) {
	s.mu.Lock()
	r, ok := s.rows[id]
	s.mu.Unlock()
	if !ok {
		return nil, reminder.ErrNotFound
	}
	s.wait("get")
	return &r, nil
}

func (s *pausingStore) MarkCompleted(_ context.Context, id uint64) error {
	s.mu.Lock()
	r, ok := s.rows[id]
	if ok {
		r.Status = reminder.StatusCompleted
		s.rows[id] = r
	}
	s.mu.Unlock()
	if !ok {
		return reminder.ErrNotFound
	}
	s.wait("complete")
	return nil
}

func (s *pausingStore) row(id uint64) reminder.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id]
}

type memQueue struct {
	mu   sync.Mutex
	jobs map[string]time.Time
}

func (q *memQueue) EnqueueUnique(_ context.Context, key string, _ jobs.Type, runAt time.Time, _ any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs[key] = runAt
	return nil
}

func (q *memQueue) CancelUnique(_ context.Context, key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.jobs, key)
	return nil
}

func (q *memQueue) snapshot() map[string]time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[string]time.Time, len(q.jobs))
	for k, v := range q.jobs {
		out[k] = v
	}
	return out
}

func newLockedService() (*reminder.Service, *pausingStore, *memQueue) {
	store := newPausingStore()
	q := &memQueue{jobs: make(map[string]time.Time)}
	sched := notify.NewScheduler(q, notify.FixedClock(lockNow), time.UTC, nil)
	return &reminder.Service{Store: store, Scheduler: sched}, store, q
}

func dueOn(day int, title string) reminder.Reminder {
	d := time.Date(2026, 3, day, 9, 0, 0, 0, time.UTC)
	return reminder.Reminder{UserID: 7, Title: title, DueDate: d, DueTime: d}
}

// mustStayBlocked fails if done fires while another mutation of the same
// reminder is still in progress.
func mustStayBlocked(t *testing.T, done <-chan error, what string) {
	t.Helper()
	select {
	case err := <-done:
		t.Fatalf("%s finished (err=%v) while the reminder was held", what, err)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestService_ConcurrentEditsKeepQueueInLineWithStore(t *testing.T) {
	svc, store, q := newLockedService()
	ctx := context.Background()

	r, err := svc.Create(ctx, dueOn(11, "first"))
	if err != nil {
		t.Fatal(err)
	}

	release := store.pauseAfter("update")
	first := make(chan error, 1)
	go func() {
		e := dueOn(12, "first")
		e.ID = r.ID
		_, err := svc.Update(ctx, 7, e)
		first <- err
	}()
	<-store.paused

	second := make(chan error, 1)
	go func() {
		e := dueOn(14, "second")
		e.ID = r.ID
		_, err := svc.Update(ctx, 7, e)
		second <- err
	}()
	mustStayBlocked(t, second, "second edit")

	close(release)
	if err := <-first; err != nil {
		t.Fatalf("first edit: %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("second edit: %v", err)
	}

	stored := store.row(r.ID)
	due, _ := stored.EffectiveDue(time.UTC)
	queued := q.snapshot()[notify.JobKey(r.ID, notify.KindOnTime)]
	if stored.Title != "second" || !queued.Equal(due) {
		t.Fatalf("store has %q due %v, queue fires at %v", stored.Title, due, queued)
	}
}

func TestService_CompleteDuringUpdateStaysCompleted(t *testing.T) {
	svc, store, q := newLockedService()
	ctx := context.Background()

	r, err := svc.Create(ctx, dueOn(12, "luz"))
	if err != nil {
		t.Fatal(err)
	}

	// The update has read the reminder as active and is about to write it.
	release := store.pauseAfter("get")
	updated := make(chan error, 1)
	go func() {
		e := dueOn(13, "luz")
		e.ID = r.ID
		_, err := svc.Update(ctx, 7, e)
		updated <- err
	}()
	<-store.paused

	completed := make(chan error, 1)
	go func() { completed <- svc.Complete(ctx, 7, r.ID) }()
	mustStayBlocked(t, completed, "complete")

	close(release)
	if err := <-updated; err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := <-completed; err != nil {
		t.Fatalf("complete: %v", err)
	}

	if st := store.row(r.ID).Status; st != reminder.StatusCompleted {
		t.Fatalf("status = %s, want completed", st)
	}
	if left := q.snapshot(); len(left) != 0 {
		t.Fatalf("completed reminder still has jobs: %v", left)
	}
}

func TestService_EditDuringCreateIsScheduledFromStore(t *testing.T) {
	svc, store, q := newLockedService()
	ctx := context.Background()

	release := store.pauseAfter("insert")
	created := make(chan error, 1)
	go func() {
		_, err := svc.Create(ctx, dueOn(12, "agua"))
		created <- err
	}()
	<-store.paused

	// The row exists; edit it before Create gets to schedule.
	e := dueOn(15, "agua")
	e.ID = 1
	if _, err := svc.Update(ctx, 7, e); err != nil {
		t.Fatal(err)
	}
	close(release)
	if err := <-created; err != nil {
		t.Fatal(err)
	}

	want := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	if at := q.snapshot()[notify.JobKey(1, notify.KindOnTime)]; !at.Equal(want) {
		t.Fatalf("ontime job at %v, want %v", at, want)
	}
}
