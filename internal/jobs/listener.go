package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"recuerdito/internal/logger"
)

// Listen subscribes to NotifyChannel and returns a channel that receives a
// value whenever a job is enqueued. Wake-ups coalesce: a slow worker sees at
// most one pending signal. The listener closes when ctx is done.
func Listen(ctx context.Context, dsn string, log logger.Logger) (<-chan struct{}, error) {
	if log == nil {
		log = logger.Nop{}
	}
	l := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warning("listener event %d: %v", ev, err)
		}
	})
	if err := l.Listen(NotifyChannel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("listen %s: %w", NotifyChannel, err)
	}

	wake := make(chan struct{}, 1)
	go func() {
		defer l.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case <-l.Notify:
				// nil notifications arrive after a reconnect; jobs may have
				// been enqueued meanwhile, so they wake the worker too
				select {
				case wake <- struct{}{}:
				default:
				}
			case <-time.After(90 * time.Second):
				go func() { _ = l.Ping() }()
			}
		}
	}()
	return wake, nil
}
