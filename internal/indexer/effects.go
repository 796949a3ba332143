package indexer

import (
	"context"
	"fmt"

	"github.com/creachadair/taskgroup"

	"github.com/protocolindex/projectsink/internal/stakewatch"
	"github.com/protocolindex/projectsink/types"
)

// Effect is a downstream side effect fired after a batch was persisted.
type Effect struct {
	Name string
	Run  func(context.Context, Driver) error
}

// NotifyEffect signals topic.
func NotifyEffect(topic Topic) Effect {
	return Effect{
		Name: "notify:" + string(topic),
		Run: func(ctx context.Context, d Driver) error {
			return d.Notify(ctx, topic)
		},
	}
}

// RefreshEffect requests a refresh of view.
func RefreshEffect(view View) Effect {
	return Effect{
		Name: "refresh:" + string(view),
		Run: func(ctx context.Context, d Driver) error {
			return d.Refresh(ctx, view)
		},
	}
}

// WatchEffect registers a stake credential.
func WatchEffect(hash types.Hash28, kind stakewatch.Kind) Effect {
	return Effect{
		Name: "watch:" + string(kind),
		Run: func(ctx context.Context, d Driver) error {
			return d.Watch(ctx, hash, kind)
		},
	}
}

// RunEffects executes effects concurrently against d and waits for all of
// them. It returns the first error reported.
func RunEffects(ctx context.Context, d Driver, effects []Effect, metrics *Metrics) error {
	if metrics == nil {
		metrics = NopMetrics()
	}

	g := taskgroup.New(nil)
	for _, eff := range effects {
		eff := eff
		g.Go(func() error {
			if err := eff.Run(ctx, d); err != nil {
				return fmt.Errorf("%s: %w", eff.Name, err)
			}
			metrics.EffectsExecuted.With("effect", eff.Name).Add(1)
			return nil
		})
	}
	return g.Wait()
}
