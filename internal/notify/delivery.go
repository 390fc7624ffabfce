package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"recuerdito/internal/jobs"
	"recuerdito/internal/logger"
)

// ErrPermissionDenied is returned by a sink that is not allowed to surface
// alerts. It is expected and never retried.
var ErrPermissionDenied = errors.New("delivery permission denied")

// Sink surfaces one alert to the user.
type Sink interface {
	Deliver(ctx context.Context, jobID uint64, title, body string) error
}

// Payload is the JSON body of a REMINDER_DELIVERY job.
type Payload struct {
	ReminderID uint64 `json:"reminder_id"`
	Kind       Kind   `json:"kind"`
	Title      string `json:"title"`
	Body       string `json:"body"`
}

// DeliveryHandler returns the worker handler for REMINDER_DELIVERY jobs.
// Permission denied is logged and swallowed, so the job finishes DONE.
func DeliveryHandler(sink Sink, log logger.Logger) jobs.HandlerFunc {
	if log == nil {
		log = logger.Nop{}
	}
	return func(ctx context.Context, job *jobs.Job) error {
		var p Payload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return jobs.Permanent(fmt.Errorf("decode payload of %s: %w", job.Key, err))
		}
		if p.Title == "" && p.Body == "" {
			return jobs.Permanent(fmt.Errorf("job %s has an empty payload", job.Key))
		}

		err := sink.Deliver(ctx, job.ID, p.Title, p.Body)
		if errors.Is(err, ErrPermissionDenied) {
			log.Warning("skip %s: %v", job.Key, err)
			return nil
		}
		if err != nil {
			return err
		}
		log.Info("delivered %s", job.Key)
		return nil
	}
}
