package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"recuerdito/internal/logger"
)

type memStore struct {
	nextID uint64
	rows   map[uint64]Reminder
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[uint64]Reminder)}
}

func (m *memStore) Insert(_ context.Context, r *Reminder) (uint64, error) {
	m.nextID++
	r.ID = m.nextID
	m.rows[r.ID] = *r
	return r.ID, nil
}

func (m *memStore) Update(_ context.Context, r *Reminder) error {
	if _, ok := m.rows[r.ID]; !ok {
		return ErrNotFound
	}
	m.rows[r.ID] = *r
	return nil
}

func (m *memStore) Delete(_ context.Context, id uint64) error {
	if _, ok := m.rows[id]; !ok {
		return ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memStore) Get(_ context.Context, id uint64) (*Reminder, error) {
	r, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *memStore) MarkCompleted(_ context.Context, id uint64) error {
	r, ok := m.rows[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = StatusCompleted
	m.rows[id] = r
	return nil
}

type call struct {
	op string
	id uint64
}

type recordingScheduler struct {
	calls []call
	err   error
}

func (s *recordingScheduler) WithLock(ctx context.Context, _ uint64, fn func(context.Context) error) error {
	return fn(ctx)
}

func (s *recordingScheduler) Schedule(_ context.Context, r Reminder) error {
	s.calls = append(s.calls, call{"schedule", r.ID})
	return s.err
}

func (s *recordingScheduler) Reschedule(_ context.Context, r Reminder) error {
	s.calls = append(s.calls, call{"reschedule", r.ID})
	return s.err
}

func (s *recordingScheduler) CancelReminder(_ context.Context, id uint64) error {
	s.calls = append(s.calls, call{"cancel", id})
	return s.err
}

func sampleReminder() Reminder {
	return Reminder{
		UserID:  7,
		Title:   "  Pagar internet ",
		DueDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		DueTime: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestService_CreateStoresThenSchedules(t *testing.T) {
	store := newMemStore()
	sched := &recordingScheduler{}
	svc := &Service{Store: store, Scheduler: sched}

	r, err := svc.Create(context.Background(), sampleReminder())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.ID == 0 || r.Title != "Pagar internet" || r.Status != StatusActive || r.Category != CategoryOther {
		t.Fatalf("unexpected reminder %+v", r)
	}
	if len(sched.calls) != 1 || sched.calls[0] != (call{"schedule", r.ID}) {
		t.Fatalf("scheduler calls = %v", sched.calls)
	}
}

func TestService_CreateRejectsBlankTitle(t *testing.T) {
	sched := &recordingScheduler{}
	svc := &Service{Store: newMemStore(), Scheduler: sched}

	in := sampleReminder()
	in.Title = "  "
	if _, err := svc.Create(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(sched.calls) != 0 {
		t.Fatalf("scheduler touched on invalid input: %v", sched.calls)
	}
}

func TestService_QueueFailureKeepsReminder(t *testing.T) {
	store := newMemStore()
	log := logger.NewMock()
	svc := &Service{Store: store, Scheduler: &recordingScheduler{err: errors.New("queue down")}, Log: log}

	r, err := svc.Create(context.Background(), sampleReminder())
	if err != nil {
		t.Fatalf("Create should succeed despite queue failure: %v", err)
	}
	if _, ok := store.rows[r.ID]; !ok {
		t.Fatal("reminder not persisted")
	}
	if len(log.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", log.Warnings)
	}
}

func TestService_UpdateReschedulesAndKeepsOwner(t *testing.T) {
	store := newMemStore()
	sched := &recordingScheduler{}
	svc := &Service{Store: store, Scheduler: sched}
	ctx := context.Background()

	r, _ := svc.Create(ctx, sampleReminder())
	sched.calls = nil

	edit := *r
	edit.UserID = 0
	edit.DueTime = edit.DueTime.Add(10 * time.Hour)
	got, err := svc.Update(ctx, 7, edit)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.UserID != 7 {
		t.Fatalf("owner lost: %+v", got)
	}
	if len(sched.calls) != 1 || sched.calls[0].op != "reschedule" {
		t.Fatalf("scheduler calls = %v", sched.calls)
	}
	if !store.rows[r.ID].DueTime.Equal(edit.DueTime) {
		t.Fatal("store not updated")
	}
}

func TestService_OtherUsersSeeNotFound(t *testing.T) {
	svc := &Service{Store: newMemStore(), Scheduler: &recordingScheduler{}}
	ctx := context.Background()
	r, _ := svc.Create(ctx, sampleReminder())

	if _, err := svc.Get(ctx, 99, r.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get: expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, 99, r.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Get(ctx, 0, r.ID); err != nil {
		t.Fatalf("unscoped Get: %v", err)
	}
}

func TestService_CompleteAndDeleteCancel(t *testing.T) {
	store := newMemStore()
	sched := &recordingScheduler{}
	svc := &Service{Store: store, Scheduler: sched}
	ctx := context.Background()

	a, _ := svc.Create(ctx, sampleReminder())
	b, _ := svc.Create(ctx, sampleReminder())
	sched.calls = nil

	if err := svc.Complete(ctx, 7, a.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if store.rows[a.ID].Status != StatusCompleted {
		t.Fatal("not completed")
	}
	if err := svc.Delete(ctx, 7, b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := store.rows[b.ID]; ok {
		t.Fatal("not deleted")
	}

	want := []call{{"cancel", a.ID}, {"cancel", b.ID}}
	if len(sched.calls) != len(want) {
		t.Fatalf("calls = %v", sched.calls)
	}
	for i := range want {
		if sched.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", sched.calls, want)
		}
	}
}
