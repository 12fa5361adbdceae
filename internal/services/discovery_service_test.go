package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"shop-finder/internal/realtime"
	"shop-finder/internal/scoring"
	"shop-finder/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A is idle and close, B is busier but open for styling, C has no data.
func discoveryFixture() (staticShops, *memorySource) {
	shops := staticShops{
		{ShopDetails: models.ShopDetails{ID: "A", Name: "Alpha Cuts", Distance: 0.5, Services: []string{"haircut", "styling"}}},
		{ShopDetails: models.ShopDetails{ID: "B", Name: "Bravo Barbers", Distance: 2, Services: []string{"haircut"}}},
		{ShopDetails: models.ShopDetails{ID: "C", Name: "Charlie Salon", Distance: 3, Services: []string{"haircut"}}},
	}
	source := &memorySource{
		queues: map[string]*models.QueueSnapshot{
			"B": {CurrentQueueSize: 10, AverageWaitTime: 30},
		},
		availability: map[string]*models.ShopServiceAvailability{
			"A": openServices("haircut", "styling"),
			"B": openServices("haircut", "styling"),
		},
	}
	return shops, source
}

func setupTestDiscoveryService(shops ShopLister, source scoring.SnapshotSource, updates realtime.Source) *DiscoveryService {
	clock := fixedClock(weekdayAfternoon)
	return NewDiscoveryService(shops, scoring.NewScorer(source, clock), updates, 0, clock)
}

func TestDiscoveryService_Discover(t *testing.T) {
	shops, source := discoveryFixture()
	service := setupTestDiscoveryService(shops, source, realtime.NewHub(1))

	discovery, err := service.Discover(context.Background())
	require.NoError(t, err)

	require.Len(t, discovery.Shops, 3)
	assert.Equal(t, "A", discovery.Shops[0].ID)
	assert.Equal(t, "B", discovery.Shops[1].ID)
	assert.Equal(t, "C", discovery.Shops[2].ID)

	assert.InDelta(t, 0.9175, discovery.Shops[0].Score.TotalScore, 1e-9)
	assert.InDelta(t, 0.7725, discovery.Shops[1].Score.TotalScore, 1e-9)
	assert.InDelta(t, 0.53, discovery.Shops[2].Score.TotalScore, 1e-9)

	require.Len(t, discovery.Alternatives, 1)
	assert.Equal(t, "B", discovery.Alternatives[0].ShopID)
	assert.True(t, discovery.Alternatives[0].IsRecommended)
	assert.Equal(t, []string{"styling"}, discovery.Alternatives[0].AlternativeServices)

	bravo := discovery.Shops[1]
	assert.True(t, bravo.IsRecommended)
	assert.True(t, bravo.Score.IsRecommended)
	assert.Equal(t, 10, bravo.QueueSize)
	assert.Equal(t, 30.0, bravo.WaitTime)
	assert.Equal(t, 15.0, bravo.EstimatedWaitTime)

	assert.False(t, discovery.Shops[0].IsRecommended)
	assert.False(t, discovery.Shops[2].IsRecommended)
	assert.Equal(t, 0, discovery.Shops[2].QueueSize)
}

func TestDiscoveryService_DiscoverNoShops(t *testing.T) {
	service := setupTestDiscoveryService(staticShops{}, &memorySource{}, realtime.NewHub(1))

	discovery, err := service.Discover(context.Background())
	require.NoError(t, err)

	assert.Empty(t, discovery.Shops)
	assert.NotNil(t, discovery.Alternatives)
	assert.Empty(t, discovery.Alternatives)
}

type failingShops struct{ err error }

func (f failingShops) List(context.Context) ([]models.Shop, error) { return nil, f.err }

func TestDiscoveryService_ListError(t *testing.T) {
	listErr := errors.New("database is locked")
	service := setupTestDiscoveryService(failingShops{err: listErr}, &memorySource{}, realtime.NewHub(1))

	_, err := service.Discover(context.Background())
	assert.ErrorIs(t, err, listErr)

	_, err = service.Alternatives(context.Background(), "A", 30)
	assert.ErrorIs(t, err, listErr)
}

func TestDiscoveryService_Alternatives(t *testing.T) {
	shops, source := discoveryFixture()
	service := setupTestDiscoveryService(shops, source, realtime.NewHub(1))

	alternatives, err := service.Alternatives(context.Background(), "A", 0)
	require.NoError(t, err)
	require.Len(t, alternatives, 1)
	assert.Equal(t, "B", alternatives[0].ShopID)

	// 4 min travel plus 0.65*20 is not under a 15 minute wait.
	source.queues["A"] = &models.QueueSnapshot{AverageWaitTime: 15}
	alternatives, err = service.Alternatives(context.Background(), "A", 20)
	require.NoError(t, err)
	assert.Empty(t, alternatives)

	alternatives, err = service.Alternatives(context.Background(), "missing", 0)
	require.NoError(t, err)
	assert.Empty(t, alternatives)
}

func TestDiscoveryService_Watch(t *testing.T) {
	shops, source := discoveryFixture()
	hub := realtime.NewHub(4)
	service := setupTestDiscoveryService(shops, source, hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan *models.Discovery, 4)
	done := make(chan error, 1)
	go func() {
		done <- service.Watch(ctx, func(d *models.Discovery, err error) {
			if err == nil {
				results <- d
			}
		})
	}()

	first := <-results
	assert.Equal(t, "A", first.Shops[0].ID)

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	source.queues["A"] = &models.QueueSnapshot{CurrentQueueSize: 20, AverageWaitTime: 120}
	require.NoError(t, hub.Publish(ctx, realtime.Update{Type: realtime.UpdateQueue, ShopID: "A"}))

	select {
	case second := <-results:
		assert.Equal(t, "B", second.Shops[0].ID)
	case <-time.After(time.Second):
		t.Fatal("no discovery after update")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
