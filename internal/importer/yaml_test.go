package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"recuerdito/internal/reminder"
)

const sample = `
reminders:
  - title: Pagar luz
    due_date: "2026-04-05"
    due_time: "09:00"
    category: payment_electricity
    type: Bill
    repeat: monthly
    notify_days_before: 3
  - title: Entregar tesis
    description: Capítulo 4
    due_date: "2026-05-01"
    due_time: "23:59"
    category: study
`

type recordingCreator struct {
	got []reminder.Reminder
	err error
}

func (c *recordingCreator) Create(_ context.Context, r reminder.Reminder) (*reminder.Reminder, error) {
	if c.err != nil {
		return nil, c.err
	}
	r.ID = uint64(len(c.got) + 1)
	c.got = append(c.got, r)
	return &r, nil
}

func TestImport(t *testing.T) {
	c := &recordingCreator{}
	n, err := Import(context.Background(), c, []byte(sample), 4, time.UTC)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 2 || len(c.got) != 2 {
		t.Fatalf("imported %d", n)
	}

	luz := c.got[0]
	if luz.UserID != 4 || luz.Category != reminder.CategoryPaymentElectricity || luz.RepeatType != reminder.RepeatMonthly || luz.Label != "Bill" || luz.NotifyDaysBefore != 3 {
		t.Fatalf("first = %+v", luz)
	}
	due, _ := luz.EffectiveDue(time.UTC)
	if !due.Equal(time.Date(2026, 4, 5, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("due = %v", due)
	}
	if c.got[1].RepeatType != reminder.RepeatNone || c.got[1].Description != "Capítulo 4" {
		t.Fatalf("second = %+v", c.got[1])
	}
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"not yaml":     "reminders: [",
		"empty":        "reminders: []",
		"no title":     "reminders:\n  - due_date: \"2026-04-05\"\n    due_time: \"09:00\"\n",
		"bad date":     "reminders:\n  - title: x\n    due_date: \"5/4/2026\"\n    due_time: \"09:00\"\n",
		"bad category": "reminders:\n  - title: x\n    due_date: \"2026-04-05\"\n    due_time: \"09:00\"\n    category: food\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(in), 1, time.UTC); err == nil {
				t.Fatal("accepted")
			}
		})
	}
}

func TestImport_StopsAtFirstFailure(t *testing.T) {
	boom := errors.New("db down")
	n, err := Import(context.Background(), &recordingCreator{err: boom}, []byte(sample), 1, time.UTC)
	if n != 0 || !errors.Is(err, boom) {
		t.Fatalf("n=%d err=%v", n, err)
	}
}
