package store

import (
	"context"

	"shop-finder/models"
)

// Snapshots reads both halves of a shop's live state. It satisfies
// scoring.SnapshotSource.
type Snapshots struct {
	Queues       *QueueStore
	Availability *AvailabilityStore
}

func NewSnapshots(queues *QueueStore, availability *AvailabilityStore) *Snapshots {
	return &Snapshots{Queues: queues, Availability: availability}
}

func (s *Snapshots) FetchQueue(ctx context.Context, shopID string) (*models.QueueSnapshot, error) {
	return s.Queues.Snapshot(ctx, shopID)
}

func (s *Snapshots) FetchAvailability(ctx context.Context, shopID string) (*models.ShopServiceAvailability, error) {
	return s.Availability.Get(ctx, shopID)
}
