package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"recuerdito/internal/auth"
	"recuerdito/internal/recovery"
	"recuerdito/internal/reminder"

	"github.com/go-chi/chi/v5"
)

// ReminderLister serves the read side of the API.
type ReminderLister interface {
	List(ctx context.Context, f reminder.Filter) ([]reminder.Reminder, error)
	ListDueWithin(ctx context.Context, userID uint64, now time.Time, window time.Duration, loc *time.Location) ([]reminder.Reminder, error)
}

// Reconciler enqueues a debounced reconciliation.
type Reconciler interface {
	Trigger(ctx context.Context, reason recovery.Reason) error
}

type ReminderHandler struct {
	Svc      *reminder.Service
	Lists    ReminderLister
	Recovery Reconciler
	Loc      *time.Location
	Now      func() time.Time
}

type reminderDTO struct {
	ID               uint64    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	DueDate          string    `json:"due_date"`
	DueTime          string    `json:"due_time"`
	DueAt            time.Time `json:"due_at"`
	Category         string    `json:"category"`
	Type             string    `json:"type"`
	Repeat           string    `json:"repeat"`
	NotifyDaysBefore int       `json:"notify_days_before"`
	Status           string    `json:"status"`
	Priority         string    `json:"priority,omitempty"`
	TimeRemaining    string    `json:"time_remaining,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type reminderReq struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	DueDate          string `json:"due_date"` // YYYY-MM-DD
	DueTime          string `json:"due_time"` // HH:MM
	Category         string `json:"category"`
	Type             string `json:"type"`
	Repeat           string `json:"repeat"`
	NotifyDaysBefore int    `json:"notify_days_before"`
	Status           string `json:"status"`
}

func (h *ReminderHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *ReminderHandler) loc() *time.Location {
	if h.Loc == nil {
		return time.Local
	}
	return h.Loc
}

func (h *ReminderHandler) toDTO(r reminder.Reminder) reminderDTO {
	loc := h.loc()
	d := reminderDTO{
		ID:               r.ID,
		Title:            r.Title,
		Description:      r.Description,
		DueDate:          r.DueDate.In(loc).Format(reminder.DateLayout),
		DueTime:          r.DueTime.In(loc).Format(reminder.ClockLayout),
		Category:         string(r.Category),
		Type:             r.Label,
		Repeat:           string(r.RepeatType),
		NotifyDaysBefore: r.NotifyDaysBefore,
		Status:           string(r.Status),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if due, err := r.EffectiveDue(loc); err == nil {
		d.DueAt = due
		if r.IsActive() {
			now := h.now()
			d.Priority = reminder.Classify(due, now).String()
			d.TimeRemaining = reminder.FormatTimeRemaining(due.Sub(now))
		}
	}
	return d
}

func (h *ReminderHandler) fromReq(req reminderReq) (reminder.Reminder, error) {
	var r reminder.Reminder
	var err error

	r.DueDate, r.DueTime, err = reminder.ParseDueInput(req.DueDate, req.DueTime, h.loc())
	if err != nil {
		return r, err
	}
	if r.Category, err = reminder.ParseCategory(req.Category); err != nil {
		return r, err
	}
	if r.RepeatType, err = reminder.ParseRepeatType(req.Repeat); err != nil {
		return r, err
	}
	if req.Status != "" {
		if r.Status, err = reminder.ParseStatus(req.Status); err != nil {
			return r, err
		}
	}
	r.Title = req.Title
	r.Description = req.Description
	r.Label = strings.TrimSpace(req.Type)
	r.NotifyDaysBefore = req.NotifyDaysBefore
	return r, nil
}

func decodeReq(w http.ResponseWriter, r *http.Request) (reminderReq, bool) {
	var req reminderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func idParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	req, ok := decodeReq(w, r)
	if !ok {
		return
	}
	in, err := h.fromReq(req)
	if err != nil {
		writeError(w, err)
		return
	}
	in.UserID = uid

	out, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toDTO(*out))
}

func (h *ReminderHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	q := r.URL.Query()
	f := reminder.Filter{UserID: uid, Limit: 200}
	var err error
	if f.Status, err = reminder.ParseStatus(strings.TrimSpace(q.Get("status"))); err != nil {
		writeError(w, err)
		return
	}
	if c := strings.TrimSpace(q.Get("category")); c != "" {
		if f.Category, err = reminder.ParseCategory(c); err != nil {
			writeError(w, err)
			return
		}
	}

	rows, err := h.Lists.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeList(w, rows)
}

// Urgent lists active reminders due within the next 24 hours.
func (h *ReminderHandler) Urgent(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	rows, err := h.Lists.ListDueWithin(r.Context(), uid, h.now(), reminder.Day, h.loc())
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeList(w, rows)
}

func (h *ReminderHandler) writeList(w http.ResponseWriter, rows []reminder.Reminder) {
	out := make([]reminderDTO, 0, len(rows))
	for _, rm := range rows {
		out = append(out, h.toDTO(rm))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ReminderHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	rm, err := h.Svc.Get(r.Context(), uid, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toDTO(*rm))
}

func (h *ReminderHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	req, ok := decodeReq(w, r)
	if !ok {
		return
	}
	in, err := h.fromReq(req)
	if err != nil {
		writeError(w, err)
		return
	}
	in.ID = id

	out, err := h.Svc.Update(r.Context(), uid, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toDTO(*out))
}

func (h *ReminderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Complete(r.Context(), uid, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReminderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), uid, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reconcile asks for a debounced reconciliation of every active reminder.
func (h *ReminderHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	if err := h.Recovery.Trigger(r.Context(), recovery.ReasonManual); err != nil {
		http.Error(w, "queue unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "scheduled"})
}
