package http

import (
	"net/http"
	"time"

	"recuerdito/internal/auth"
	"recuerdito/internal/config"
	"recuerdito/internal/http/handler"
	mw "recuerdito/internal/http/middleware"
	"recuerdito/internal/logger"
	"recuerdito/internal/reminder"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

// Deps are the long-lived components shared with the worker.
type Deps struct {
	Scheduler reminder.Scheduler
	Recovery  handler.Reconciler
	Log       logger.Logger
}

func NewRouter(cfg config.Config, db *gorm.DB, jwtSvc *auth.JWT, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{Users: &auth.Repo{DB: db}, JWT: jwtSvc}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	repo := &reminder.Repo{DB: db, Loc: cfg.Location()}
	me := &handler.MeHandler{Reminders: repo}
	r.With(auth.RequireAuth(jwtSvc)).Get("/me", me.Me)

	svc := &reminder.Service{Store: repo, Scheduler: deps.Scheduler, Log: deps.Log}
	rh := &handler.ReminderHandler{Svc: svc, Lists: repo, Recovery: deps.Recovery, Loc: cfg.Location()}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))
		r.Post("/reconcile", rh.Reconcile)
		r.Route("/reminders", func(r chi.Router) {
			MountReminders(r, rh)
		})
	})

	return r
}

// MountReminders registers the reminder routes on r. Callers add auth.
func MountReminders(r chi.Router, rh *handler.ReminderHandler) {
	r.Post("/", rh.Create)
	r.Get("/", rh.List)
	r.Get("/urgent", rh.Urgent)

	r.Get("/{id}", rh.Get)
	r.Put("/{id}", rh.Update)
	r.Delete("/{id}", rh.Delete)
	r.Post("/{id}/complete", rh.Complete)
}
