package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"shop-finder/internal/estimator"
	"shop-finder/internal/realtime"
	"shop-finder/internal/status"
	"shop-finder/internal/store"
	"shop-finder/models"
	"shop-finder/monitoring"
)

type QueueService struct {
	queues    *store.QueueStore
	est       *estimator.Estimator
	publisher realtime.Publisher
}

func NewQueueService(queues *store.QueueStore, est *estimator.Estimator, publisher realtime.Publisher) *QueueService {
	return &QueueService{
		queues:    queues,
		est:       est,
		publisher: publisher,
	}
}

// Enter adds userID to the shop's queue. The entry carries the wait that
// was estimated for it at the moment it joined.
func (s *QueueService) Enter(ctx context.Context, shopID, userID, serviceID string) (*models.QueueTicket, error) {
	if userID == "" || serviceID == "" {
		return nil, status.ErrInvalidEntry
	}

	now := s.est.Now()

	queue, err := s.queues.Snapshot(ctx, shopID)
	if err != nil {
		monitoring.TrackQueueOperation("enter", shopID, "error")
		return nil, err
	}

	entry := models.QueueEntry{
		UserID:            userID,
		ServiceID:         serviceID,
		Timestamp:         now.UnixMilli(),
		EstimatedWaitTime: estimator.EstimateWaitAt(queue, now),
		Status:            models.StatusWaiting,
	}
	key := store.EntryKey(userID, now)

	size, err := s.queues.AddEntry(ctx, shopID, key, entry, now)
	if err != nil {
		monitoring.TrackQueueOperation("enter", shopID, "error")
		return nil, err
	}

	s.refresh(ctx, shopID, now)
	monitoring.TrackQueueOperation("enter", shopID, "success")

	return &models.QueueTicket{EntryKey: key, Entry: entry, QueueSize: size}, nil
}

// UpdateStatus moves an entry through its lifecycle. Completed and
// cancelled entries are final.
func (s *QueueService) UpdateStatus(ctx context.Context, shopID, entryKey string, next models.EntryStatus) (models.QueueEntry, error) {
	if !next.Valid() {
		return models.QueueEntry{}, status.ErrInvalidStatus
	}

	entry, err := s.queues.Entry(ctx, shopID, entryKey)
	if err != nil {
		return entry, err
	}

	if entry.Status.IsTerminal() {
		if entry.Status == next {
			return entry, nil
		}
		return entry, fmt.Errorf("%w: entry already %s", status.ErrInvalidStatus, entry.Status)
	}

	now := s.est.Now()
	leaving := next.IsTerminal()
	entry.Status = next
	if next == models.StatusCompleted {
		entry.CompletedAt = now.UnixMilli()
	}

	if _, err := s.queues.UpdateEntry(ctx, shopID, entryKey, entry, leaving, now); err != nil {
		if errors.Is(err, store.ErrEntryFinal) {
			// another caller finished the entry between our read and write
			return s.settled(ctx, shopID, entryKey, next)
		}
		monitoring.TrackQueueOperation(string(next), shopID, "error")
		return entry, err
	}

	s.refresh(ctx, shopID, now)
	monitoring.TrackQueueOperation(string(next), shopID, "success")

	return entry, nil
}

// settled reports an entry that reached a final status concurrently. Losing
// the race to the same status is a no-op.
func (s *QueueService) settled(ctx context.Context, shopID, entryKey string, next models.EntryStatus) (models.QueueEntry, error) {
	entry, err := s.queues.Entry(ctx, shopID, entryKey)
	if err != nil {
		return entry, err
	}
	if entry.Status == next {
		return entry, nil
	}
	return entry, fmt.Errorf("%w: entry already %s", status.ErrInvalidStatus, entry.Status)
}

func (s *QueueService) Snapshot(ctx context.Context, shopID string) (*models.QueueSnapshot, error) {
	return s.queues.Snapshot(ctx, shopID)
}

// Estimate is the wait someone joining now would be quoted.
func (s *QueueService) Estimate(ctx context.Context, shopID string) (float64, error) {
	queue, err := s.queues.Snapshot(ctx, shopID)
	if err != nil {
		return 0, err
	}
	return s.est.EstimateWait(queue), nil
}

// Overview summarizes every queue in Redis, ordered by shop id.
func (s *QueueService) Overview(ctx context.Context) ([]models.QueueSummary, error) {
	shopIDs, err := s.queues.ShopIDs(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(shopIDs)

	summaries := make([]models.QueueSummary, 0, len(shopIDs))
	for _, shopID := range shopIDs {
		queue, err := s.queues.Snapshot(ctx, shopID)
		if err != nil {
			return nil, err
		}
		if queue == nil {
			continue
		}
		summaries = append(summaries, models.QueueSummary{
			ShopID:          shopID,
			QueueSize:       queue.CurrentQueueSize,
			ActiveEntries:   len(queue.ActiveEntries()),
			AverageWaitTime: queue.AverageWaitTime,
			LastUpdated:     queue.LastUpdated,
		})
	}
	return summaries, nil
}

// refresh stores the new average wait and announces the change. Failures
// are logged; the queue write they follow has already succeeded.
func (s *QueueService) refresh(ctx context.Context, shopID string, now time.Time) {
	queue, err := s.queues.Snapshot(ctx, shopID)
	if err != nil {
		slog.Error("reload queue after write", "shopID", shopID, "error", err)
		return
	}

	// an empty queue has no wait; the default quote is for the next arrival
	average := 0.0
	if len(queue.ActiveEntries()) > 0 {
		average = estimator.EstimateWaitAt(queue, now)
	}
	if err := s.queues.SetAverageWait(ctx, shopID, average, now); err != nil {
		slog.Error("store average wait", "shopID", shopID, "error", err)
	} else if queue != nil {
		queue.AverageWaitTime = average
		queue.LastUpdated = now.UnixMilli()
	}
	monitoring.RecordQueue(shopID, queue)

	update := realtime.Update{
		Type:      realtime.UpdateQueue,
		ShopID:    shopID,
		Timestamp: now.UnixMilli(),
		Queue:     queue,
	}
	if err := s.publisher.Publish(ctx, update); err != nil {
		slog.Warn("publish queue update", "shopID", shopID, "error", err)
	}
}
