package events

import (
	"context"
	"fmt"
	"log/slog"

	"userdir/pkg/platform/circuit"
	"userdir/pkg/platform/sentinel"
)

// Publisher delivers a single event.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// GuardedPublisher stops calling a failing broker until the breaker lets a
// probe through. Events rejected while open are dropped.
type GuardedPublisher struct {
	next    Publisher
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuardedPublisher(next Publisher, breaker *circuit.Breaker, logger *slog.Logger) *GuardedPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &GuardedPublisher{next: next, breaker: breaker, logger: logger}
}

func (g *GuardedPublisher) Publish(ctx context.Context, e Event) error {
	if !g.breaker.Allow() {
		return fmt.Errorf("%s circuit %s, dropped %s: %w", g.breaker.Name(), g.breaker.State(), e.Type, sentinel.ErrUnavailable)
	}
	if err := g.next.Publish(ctx, e); err != nil {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "event publishing suspended", "breaker", g.breaker.Name(), "error", err)
		}
		return err
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "event publishing resumed", "breaker", g.breaker.Name())
	}
	return nil
}
