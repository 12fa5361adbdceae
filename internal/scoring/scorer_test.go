package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"shop-finder/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	weekdayOffPeak = time.Date(2025, 6, 4, 14, 0, 0, 0, time.UTC) // Wednesday
	weekdayPeak    = time.Date(2025, 6, 4, 11, 0, 0, 0, time.UTC)
	weekendOffPeak = time.Date(2025, 6, 7, 14, 0, 0, 0, time.UTC) // Saturday
	weekendPeak    = time.Date(2025, 6, 7, 17, 0, 0, 0, time.UTC)
)

type MockSnapshotSource struct {
	mock.Mock
}

func (m *MockSnapshotSource) FetchQueue(ctx context.Context, shopID string) (*models.QueueSnapshot, error) {
	args := m.Called(ctx, shopID)
	queue, _ := args.Get(0).(*models.QueueSnapshot)
	return queue, args.Error(1)
}

func (m *MockSnapshotSource) FetchAvailability(ctx context.Context, shopID string) (*models.ShopServiceAvailability, error) {
	args := m.Called(ctx, shopID)
	availability, _ := args.Get(0).(*models.ShopServiceAvailability)
	return availability, args.Error(1)
}

func (m *MockSnapshotSource) withShop(shopID string, queue *models.QueueSnapshot, availability *models.ShopServiceAvailability) *MockSnapshotSource {
	m.On("FetchQueue", mock.Anything, shopID).Return(queue, nil)
	m.On("FetchAvailability", mock.Anything, shopID).Return(availability, nil)
	return m
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func openServices(ids ...string) *models.ShopServiceAvailability {
	a := &models.ShopServiceAvailability{Services: make(map[string]models.ServiceStatus)}
	for _, id := range ids {
		a.Services[id] = models.ServiceStatus{ID: id, Name: id, IsAvailable: true, MaxCapacity: 4, EstimatedDuration: models.ServiceDuration(id)}
	}
	return a
}

func TestQueueScore(t *testing.T) {
	assert.Equal(t, 1.0, QueueScore(nil))

	q := &models.QueueSnapshot{AverageWaitTime: 30, CurrentQueueSize: 5}
	assert.InDelta(t, 0.75, QueueScore(q), 1e-9)

	q = &models.QueueSnapshot{AverageWaitTime: 500, CurrentQueueSize: 80}
	assert.Equal(t, 0.0, QueueScore(q))

	assert.Equal(t, 1.0, QueueScore(&models.QueueSnapshot{}))

	// averages stored before quotes were floored at zero
	assert.Equal(t, 1.0, QueueScore(&models.QueueSnapshot{AverageWaitTime: -55, CurrentQueueSize: 0}))
}

func TestAvailabilityScore(t *testing.T) {
	t.Run("no data", func(t *testing.T) {
		assert.Equal(t, 0.0, AvailabilityScore(nil))
		assert.Equal(t, 0.0, AvailabilityScore(&models.ShopServiceAvailability{}))
		assert.Equal(t, 0.0, AvailabilityScore(&models.ShopServiceAvailability{Services: map[string]models.ServiceStatus{}}))
	})

	t.Run("all open and idle", func(t *testing.T) {
		assert.Equal(t, 1.0, AvailabilityScore(openServices("haircut", "styling", "facial")))
	})

	t.Run("closed services dilute capacity average", func(t *testing.T) {
		a := &models.ShopServiceAvailability{Services: map[string]models.ServiceStatus{
			"haircut": {ID: "haircut", IsAvailable: true, CurrentCapacity: 2, MaxCapacity: 4},
			"styling": {ID: "styling", IsAvailable: false, CurrentCapacity: 0, MaxCapacity: 4},
		}}
		// ratio 0.5, capacity (0.5 + 0) / 2
		assert.InDelta(t, 0.5*0.6+0.25*0.4, AvailabilityScore(a), 1e-9)
	})

	t.Run("zero max capacity does not divide", func(t *testing.T) {
		a := &models.ShopServiceAvailability{Services: map[string]models.ServiceStatus{
			"haircut": {ID: "haircut", IsAvailable: true, MaxCapacity: 0},
		}}
		assert.InDelta(t, 0.6, AvailabilityScore(a), 1e-9)
	})

	t.Run("over capacity counts as no spare room", func(t *testing.T) {
		a := &models.ShopServiceAvailability{Services: map[string]models.ServiceStatus{
			"haircut": {ID: "haircut", IsAvailable: true, CurrentCapacity: 20, MaxCapacity: 4},
		}}
		assert.InDelta(t, 0.6, AvailabilityScore(a), 1e-9)
	})

	t.Run("negative current capacity caps at full", func(t *testing.T) {
		a := &models.ShopServiceAvailability{Services: map[string]models.ServiceStatus{
			"haircut": {ID: "haircut", IsAvailable: true, CurrentCapacity: -4, MaxCapacity: 4},
		}}
		assert.InDelta(t, 1.0, AvailabilityScore(a), 1e-9)
	})
}

func TestTrafficMultiplier(t *testing.T) {
	tests := []struct {
		name     string
		at       time.Time
		expected float64
	}{
		{"weekday morning rush start", time.Date(2025, 6, 4, 8, 0, 0, 0, time.UTC), 1.5},
		{"weekday morning rush end", time.Date(2025, 6, 4, 10, 59, 0, 0, time.UTC), 1.5},
		{"weekday evening rush", time.Date(2025, 6, 4, 17, 0, 0, 0, time.UTC), 1.4},
		{"weekday before rush", time.Date(2025, 6, 4, 7, 0, 0, 0, time.UTC), 1.0},
		{"weekday midday", weekdayOffPeak, 1.0},
		{"weekend wins over rush hour", time.Date(2025, 6, 7, 9, 0, 0, 0, time.UTC), 1.1},
		{"weekend evening", weekendPeak, 1.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TrafficMultiplier(tt.at))
		})
	}
}

func TestScoreLocation_WeekdayAfternoon(t *testing.T) {
	loc := ScoreLocation(2, weekdayOffPeak)

	assert.InDelta(t, 4.0, loc.EstimatedTravelTime, 1e-9)
	assert.InDelta(t, 0.8, loc.DistanceScore, 1e-9)
	assert.Equal(t, 0.5, loc.TrafficScore)
}

func TestScoreLocation_FarAwayClampsToZero(t *testing.T) {
	loc := ScoreLocation(25, weekdayOffPeak)
	assert.Equal(t, 0.0, loc.DistanceScore)
	assert.InDelta(t, 50.0, loc.EstimatedTravelTime, 1e-9)
}

func TestDynamicWeights(t *testing.T) {
	assert.Equal(t, Weights{Queue: 0.45, Availability: 0.25, Distance: 0.2, Traffic: 0.1}, DynamicWeights(weekendPeak))
	assert.Equal(t, Weights{Queue: 0.45, Availability: 0.25, Distance: 0.15, Traffic: 0.15}, DynamicWeights(weekdayPeak))
	assert.Equal(t, Weights{Queue: 0.35, Availability: 0.35, Distance: 0.2, Traffic: 0.1}, DynamicWeights(weekendOffPeak))
	assert.Equal(t, Weights{Queue: 0.35, Availability: 0.35, Distance: 0.15, Traffic: 0.15}, DynamicWeights(weekdayOffPeak))

	for _, at := range []time.Time{weekendPeak, weekdayPeak, weekendOffPeak, weekdayOffPeak} {
		w := DynamicWeights(at)
		assert.InDelta(t, 1.0, w.Queue+w.Availability+w.Distance+w.Traffic, 1e-9, at.String())
	}
}

func TestAlternativeServices(t *testing.T) {
	availability := &models.ShopServiceAvailability{Services: map[string]models.ServiceStatus{
		"haircut":   {ID: "haircut", IsAvailable: true},
		"styling":   {ID: "styling", IsAvailable: true},
		"coloring":  {ID: "coloring", IsAvailable: false},
		"treatment": {ID: "treatment", IsAvailable: true},
		"nail-art":  {ID: "nail-art", IsAvailable: true},
		"pedicure":  {ID: "pedicure", IsAvailable: true},
	}}

	tests := []struct {
		name      string
		preferred []string
		expected  []string
	}{
		{"same group, available only", []string{"haircut"}, []string{"styling", "treatment"}},
		{"preferred services are not alternatives", []string{"haircut", "styling"}, []string{"treatment"}},
		{"deduplicated across preferred services", []string{"manicure", "pedicure"}, []string{"nail-art"}},
		{"treatment resolves to the hair group", []string{"treatment"}, []string{"haircut", "styling"}},
		{"body group picks up treatment", []string{"massage"}, []string{"treatment"}},
		{"unknown service", []string{"tattoo"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AlternativeServices(availability, tt.preferred))
		})
	}

	assert.Empty(t, AlternativeServices(nil, []string{"haircut"}))
}

func TestScoreShop_ScoresStayInRange(t *testing.T) {
	shops := []models.ShopDetails{
		{ID: "near", Distance: 0},
		{ID: "mid", Distance: 4.5},
		{ID: "far", Distance: 40},
	}
	queues := []*models.QueueSnapshot{
		nil,
		{AverageWaitTime: 0, CurrentQueueSize: 0},
		{AverageWaitTime: 60, CurrentQueueSize: 10},
		{AverageWaitTime: 400, CurrentQueueSize: 100},
		{AverageWaitTime: -55, CurrentQueueSize: 1},
	}
	availabilities := []*models.ShopServiceAvailability{
		nil,
		openServices("haircut", "styling"),
		{Services: map[string]models.ServiceStatus{"haircut": {IsAvailable: true, CurrentCapacity: 3, MaxCapacity: 4}}},
		{Services: map[string]models.ServiceStatus{"haircut": {IsAvailable: true, CurrentCapacity: 20, MaxCapacity: 4}}},
	}

	for _, now := range []time.Time{weekendPeak, weekdayPeak, weekendOffPeak, weekdayOffPeak} {
		for _, shop := range shops {
			for _, q := range queues {
				for _, a := range availabilities {
					score := ScoreShop(shop, q, a, now)
					for _, v := range []float64{score.QueueScore, score.AvailabilityScore, score.DistanceScore, score.TrafficScore} {
						assert.GreaterOrEqual(t, v, 0.0)
						assert.LessOrEqual(t, v, 1.0)
					}
					assert.GreaterOrEqual(t, score.TotalScore, 0.0)
					assert.LessOrEqual(t, score.TotalScore, 1.0+1e-9)
					assert.False(t, score.IsRecommended)
				}
			}
		}
	}
}

func TestScoreShop_WeekdayAfternoon(t *testing.T) {
	shop := models.ShopDetails{ID: "A", Name: "Fade Lab", Distance: 2, Services: []string{"haircut"}}
	queue := &models.QueueSnapshot{AverageWaitTime: 30, CurrentQueueSize: 5}
	availability := openServices("haircut", "styling")

	score := ScoreShop(shop, queue, availability, weekdayOffPeak)

	assert.Equal(t, "A", score.ShopID)
	assert.Equal(t, "Fade Lab", score.Name)
	assert.InDelta(t, 0.75, score.QueueScore, 1e-9)
	assert.Equal(t, 1.0, score.AvailabilityScore)
	assert.InDelta(t, 0.8, score.DistanceScore, 1e-9)
	assert.Equal(t, 0.5, score.TrafficScore)
	assert.InDelta(t, 4.0, score.EstimatedTravelTime, 1e-9)
	assert.Equal(t, []string{"styling"}, score.AlternativeServices)
	// 0.75*0.35 + 1*0.35 + 0.8*0.15 + 0.5*0.15
	assert.InDelta(t, 0.8075, score.TotalScore, 1e-9)
}

func TestScorer_ScoreShops_SortsDescending(t *testing.T) {
	source := new(MockSnapshotSource).
		withShop("busy", &models.QueueSnapshot{AverageWaitTime: 90, CurrentQueueSize: 15}, openServices("haircut")).
		withShop("idle", &models.QueueSnapshot{}, openServices("haircut")).
		withShop("closed", nil, nil)

	scorer := NewScorer(source, fixedClock(weekdayOffPeak))
	shops := []models.ShopDetails{
		{ID: "busy", Distance: 1},
		{ID: "idle", Distance: 1},
		{ID: "closed", Distance: 1},
	}

	scores, err := scorer.ScoreShops(context.Background(), shops)
	require.NoError(t, err)
	require.Len(t, scores, 3)

	assert.Equal(t, "idle", scores[0].ShopID)
	assert.Equal(t, "busy", scores[1].ShopID)
	assert.Equal(t, "closed", scores[2].ShopID)
	assert.Equal(t, 1.0, scores[2].QueueScore)
	assert.Equal(t, 0.0, scores[2].AvailabilityScore)
	source.AssertExpectations(t)
}

func TestScorer_ScoreShops_TiesKeepInputOrder(t *testing.T) {
	source := new(MockSnapshotSource).
		withShop("c", nil, nil).
		withShop("a", nil, nil).
		withShop("b", nil, nil)

	scorer := NewScorer(source, fixedClock(weekdayOffPeak))
	shops := []models.ShopDetails{{ID: "c", Distance: 3}, {ID: "a", Distance: 3}, {ID: "b", Distance: 3}}

	scores, err := scorer.ScoreShops(context.Background(), shops)
	require.NoError(t, err)

	ids := []string{scores[0].ShopID, scores[1].ShopID, scores[2].ShopID}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestScorer_ScoreShops_FetchErrorMeansNoData(t *testing.T) {
	source := new(MockSnapshotSource)
	source.On("FetchQueue", mock.Anything, "A").Return(nil, errors.New("redis: connection refused"))
	source.On("FetchAvailability", mock.Anything, "A").Return(nil, errors.New("redis: connection refused"))

	scorer := NewScorer(source, fixedClock(weekdayOffPeak))
	scores, err := scorer.ScoreShops(context.Background(), []models.ShopDetails{{ID: "A", Distance: 2}})

	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, 1.0, scores[0].QueueScore)
	assert.Equal(t, 0.0, scores[0].AvailabilityScore)
	assert.Empty(t, scores[0].AlternativeServices)
}

func TestScorer_ScoreShops_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := new(MockSnapshotSource)
	source.On("FetchQueue", mock.Anything, "A").Return(nil, context.Canceled)
	source.On("FetchAvailability", mock.Anything, "A").Return(nil, context.Canceled)

	scorer := NewScorer(source, fixedClock(weekdayOffPeak))
	_, err := scorer.ScoreShops(ctx, []models.ShopDetails{{ID: "A"}})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestScorer_ScoreShops_Empty(t *testing.T) {
	scorer := NewScorer(new(MockSnapshotSource), fixedClock(weekdayOffPeak))

	scores, err := scorer.ScoreShops(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestScorer_Assess_KeepsSnapshots(t *testing.T) {
	queue := &models.QueueSnapshot{AverageWaitTime: 20, CurrentQueueSize: 2}
	availability := openServices("haircut")
	source := new(MockSnapshotSource).
		withShop("A", queue, availability).
		withShop("B", nil, nil)

	scorer := NewScorer(source, fixedClock(weekdayOffPeak))
	assessments, err := scorer.Assess(context.Background(), []models.ShopDetails{{ID: "B"}, {ID: "A"}})
	require.NoError(t, err)
	require.Len(t, assessments, 2)

	assert.Equal(t, "A", assessments[0].Shop.ID)
	assert.Same(t, queue, assessments[0].Queue)
	assert.Same(t, availability, assessments[0].Availability)
	assert.Equal(t, "A", assessments[0].Score.ShopID)
	assert.Nil(t, assessments[1].Queue)
}
