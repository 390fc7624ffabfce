package handler

import (
	"context"
	"net/http"

	"recuerdito/internal/auth"
)

// ActiveCounter counts a user's active reminders.
type ActiveCounter interface {
	CountActive(ctx context.Context, userID uint64) (int64, error)
}

type MeHandler struct {
	Reminders ActiveCounter
}

func (h *MeHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	out := map[string]any{"user_id": uid}
	if h.Reminders != nil {
		n, err := h.Reminders.CountActive(r.Context(), uid)
		if err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		out["active_reminders"] = n
	}
	writeJSON(w, http.StatusOK, out)
}
