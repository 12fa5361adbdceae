package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shop-finder/internal/scoring"
	"shop-finder/internal/status"
	"shop-finder/models"
	"shop-finder/monitoring"
	"shop-finder/utils"
)

// GuardedSource bounds every snapshot read with a timeout and a circuit
// breaker. A read that times out is reported as ErrSourceUnavailable rather
// than a context error, so the scorer degrades instead of aborting.
type GuardedSource struct {
	source  scoring.SnapshotSource
	breaker *utils.CircuitBreaker
	timeout time.Duration
}

func NewGuardedSource(source scoring.SnapshotSource, breaker *utils.CircuitBreaker, timeout time.Duration) *GuardedSource {
	return &GuardedSource{source: source, breaker: breaker, timeout: timeout}
}

func (g *GuardedSource) FetchQueue(ctx context.Context, shopID string) (*models.QueueSnapshot, error) {
	queue, err := guardedFetch(ctx, g, "queue", shopID, g.source.FetchQueue)
	trackFetch("queue", queue == nil, err)
	return queue, err
}

func (g *GuardedSource) FetchAvailability(ctx context.Context, shopID string) (*models.ShopServiceAvailability, error) {
	availability, err := guardedFetch(ctx, g, "availability", shopID, g.source.FetchAvailability)
	trackFetch("availability", availability == nil, err)
	return availability, err
}

func guardedFetch[T any](ctx context.Context, g *GuardedSource, kind, shopID string, fetch func(context.Context, string) (T, error)) (T, error) {
	return utils.Guard(ctx, g.breaker, func(ctx context.Context) (T, error) {
		fetchCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}

		result, err := fetch(fetchCtx, shopID)
		if err != nil && ctx.Err() == nil && errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			var zero T
			return zero, fmt.Errorf("%w: %s %s timed out after %s", status.ErrSourceUnavailable, kind, shopID, g.timeout)
		}
		return result, err
	})
}

func trackFetch(kind string, empty bool, err error) {
	switch {
	case err != nil:
		monitoring.TrackFetch(kind, "error")
	case empty:
		monitoring.TrackFetch(kind, "empty")
	default:
		monitoring.TrackFetch(kind, "ok")
	}
}
