package services

import (
	"context"
	"testing"
	"time"

	"shop-finder/internal/realtime"
	"shop-finder/internal/status"
	"shop-finder/internal/store"
	"shop-finder/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupTestAvailabilityService(t *testing.T, clock func() time.Time) (*AvailabilityService, *MockPublisher) {
	t.Helper()

	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	return NewAvailabilityService(store.NewAvailabilityStore(setupTestRedis(t)), pub, clock), pub
}

func TestAvailabilityService_Initialize(t *testing.T) {
	service, pub := setupTestAvailabilityService(t, fixedClock(weekdayAfternoon))
	ctx := context.Background()

	availability, err := service.Initialize(ctx, "shop-1", []models.ServiceStatus{
		{ID: "haircut", IsAvailable: true, MaxCapacity: 2},
		{ID: "massage", Name: "Deep tissue", EstimatedDuration: 75},
	})
	require.NoError(t, err)

	haircut := availability.Services["haircut"]
	assert.Equal(t, "haircut", haircut.Name)
	assert.Equal(t, 30, haircut.EstimatedDuration)
	assert.Equal(t, weekdayAfternoon.UnixMilli(), haircut.LastUpdated)

	massage := availability.Services["massage"]
	assert.Equal(t, "Deep tissue", massage.Name)
	assert.Equal(t, 75, massage.EstimatedDuration)

	stored, err := service.Get(ctx, "shop-1")
	require.NoError(t, err)
	assert.Equal(t, availability, stored)

	updates := pub.published()
	require.Len(t, updates, 1)
	assert.Equal(t, realtime.UpdateAvailability, updates[0].Type)
	assert.Equal(t, availability, updates[0].Availability)
}

func TestAvailabilityService_InitializeRejects(t *testing.T) {
	service, pub := setupTestAvailabilityService(t, fixedClock(weekdayAfternoon))
	ctx := context.Background()

	tests := []struct {
		name     string
		services []models.ServiceStatus
	}{
		{"missing id", []models.ServiceStatus{{Name: "Haircut"}}},
		{"duplicate", []models.ServiceStatus{{ID: "haircut"}, {ID: "haircut"}}},
		{"negative capacity", []models.ServiceStatus{{ID: "haircut", MaxCapacity: -1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Initialize(ctx, "shop-1", tt.services)
			assert.ErrorIs(t, err, status.ErrInvalidAvailability)
		})
	}
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestAvailabilityService_Update(t *testing.T) {
	clock := steppingClock(weekdayAfternoon, time.Minute)
	service, pub := setupTestAvailabilityService(t, clock)
	ctx := context.Background()

	_, err := service.Initialize(ctx, "shop-1", DefaultServiceStatuses([]string{"haircut", "styling"}, 3))
	require.NoError(t, err)

	closed := false
	updated, err := service.Update(ctx, "shop-1", "styling", models.ServiceStatusPatch{IsAvailable: &closed})
	require.NoError(t, err)
	assert.False(t, updated.IsAvailable)
	assert.Equal(t, 3, updated.MaxCapacity)
	assert.Equal(t, weekdayAfternoon.Add(time.Minute).UnixMilli(), updated.LastUpdated)

	availability, err := service.Get(ctx, "shop-1")
	require.NoError(t, err)
	assert.True(t, availability.Services["haircut"].IsAvailable)
	assert.False(t, availability.Services["styling"].IsAvailable)
	assert.Equal(t, weekdayAfternoon.Add(time.Minute).UnixMilli(), availability.LastUpdated)

	updates := pub.published()
	require.Len(t, updates, 2)
	assert.False(t, updates[1].Availability.Services["styling"].IsAvailable)
}

func TestAvailabilityService_UpdateRejects(t *testing.T) {
	service, _ := setupTestAvailabilityService(t, fixedClock(weekdayAfternoon))
	ctx := context.Background()

	negative := -2
	_, err := service.Update(ctx, "shop-1", "haircut", models.ServiceStatusPatch{CurrentCapacity: &negative})
	assert.ErrorIs(t, err, status.ErrInvalidAvailability)

	open := true
	_, err = service.Update(ctx, "shop-1", "haircut", models.ServiceStatusPatch{IsAvailable: &open})
	assert.ErrorIs(t, err, status.ErrUnknownService)
}

func TestDefaultServiceStatuses(t *testing.T) {
	services := DefaultServiceStatuses([]string{"facial", "tattoo"}, 2)

	require.Len(t, services, 2)
	assert.Equal(t, models.ServiceStatus{ID: "facial", Name: "facial", IsAvailable: true, MaxCapacity: 2, EstimatedDuration: 60}, services[0])
	assert.Equal(t, models.DefaultServiceDuration, services[1].EstimatedDuration)
}
