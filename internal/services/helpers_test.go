package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"shop-finder/internal/realtime"
	"shop-finder/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

var weekdayAfternoon = time.Date(2025, 6, 4, 14, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// steppingClock advances by step on every read.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	current := start.Add(-step)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(step)
		return current
	}
}

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, update realtime.Update) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

func (m *MockPublisher) published() []realtime.Update {
	var updates []realtime.Update
	for _, call := range m.Calls {
		if call.Method == "Publish" {
			updates = append(updates, call.Arguments.Get(1).(realtime.Update))
		}
	}
	return updates
}

type memorySource struct {
	queues       map[string]*models.QueueSnapshot
	availability map[string]*models.ShopServiceAvailability
}

func (m *memorySource) FetchQueue(_ context.Context, shopID string) (*models.QueueSnapshot, error) {
	return m.queues[shopID], nil
}

func (m *memorySource) FetchAvailability(_ context.Context, shopID string) (*models.ShopServiceAvailability, error) {
	return m.availability[shopID], nil
}

type staticShops []models.Shop

func (s staticShops) List(context.Context) ([]models.Shop, error) {
	return s, nil
}

func openServices(ids ...string) *models.ShopServiceAvailability {
	a := &models.ShopServiceAvailability{Services: make(map[string]models.ServiceStatus)}
	for _, id := range ids {
		a.Services[id] = models.ServiceStatus{ID: id, IsAvailable: true, MaxCapacity: 4}
	}
	return a
}
