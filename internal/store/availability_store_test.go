package store

import (
	"context"
	"testing"
	"time"

	"shop-finder/internal/status"
	"shop-finder/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailabilityStore_GetUninitialized(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewAvailabilityStore(client)

	availability, err := store.Get(context.Background(), "shop-1")
	require.NoError(t, err)
	assert.Nil(t, availability)
}

func TestAvailabilityStore_InitializeAndGet(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewAvailabilityStore(client)
	ctx := context.Background()

	services := []models.ServiceStatus{
		{ID: "haircut", Name: "Haircut", IsAvailable: true, MaxCapacity: 3, EstimatedDuration: 30},
		{ID: "coloring", Name: "Coloring", IsAvailable: false, MaxCapacity: 1, EstimatedDuration: 90},
	}

	initialized, err := store.Initialize(ctx, "shop-1", services, testNow)
	require.NoError(t, err)
	assert.Equal(t, testNow.UnixMilli(), initialized.LastUpdated)

	availability, err := store.Get(ctx, "shop-1")
	require.NoError(t, err)
	require.NotNil(t, availability)
	assert.Equal(t, initialized, availability)
	assert.Equal(t, testNow.UnixMilli(), availability.Services["haircut"].LastUpdated)
	assert.False(t, availability.Services["coloring"].IsAvailable)
}

func TestAvailabilityStore_InitializeReplaces(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewAvailabilityStore(client)
	ctx := context.Background()

	_, err := store.Initialize(ctx, "shop-1", []models.ServiceStatus{{ID: "haircut"}, {ID: "styling"}}, testNow)
	require.NoError(t, err)
	_, err = store.Initialize(ctx, "shop-1", []models.ServiceStatus{{ID: "manicure"}}, testNow)
	require.NoError(t, err)

	availability, err := store.Get(ctx, "shop-1")
	require.NoError(t, err)
	assert.Len(t, availability.Services, 1)
	assert.Contains(t, availability.Services, "manicure")
}

func TestAvailabilityStore_InitializeEmpty(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewAvailabilityStore(client)
	ctx := context.Background()

	_, err := store.Initialize(ctx, "shop-1", nil, testNow)
	require.NoError(t, err)

	availability, err := store.Get(ctx, "shop-1")
	require.NoError(t, err)
	require.NotNil(t, availability)
	assert.Empty(t, availability.Services)
}

func TestAvailabilityStore_UpdateService(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewAvailabilityStore(client)
	ctx := context.Background()

	_, err := store.Initialize(ctx, "shop-1", []models.ServiceStatus{
		{ID: "haircut", Name: "Haircut", IsAvailable: true, CurrentCapacity: 0, MaxCapacity: 3, EstimatedDuration: 30},
	}, testNow)
	require.NoError(t, err)

	later := testNow.Add(5 * time.Minute)
	capacity := 2
	updated, err := store.UpdateService(ctx, "shop-1", "haircut", models.ServiceStatusPatch{CurrentCapacity: &capacity}, later)
	require.NoError(t, err)

	assert.Equal(t, 2, updated.CurrentCapacity)
	assert.Equal(t, "Haircut", updated.Name)
	assert.True(t, updated.IsAvailable)
	assert.Equal(t, later.UnixMilli(), updated.LastUpdated)

	availability, err := store.Get(ctx, "shop-1")
	require.NoError(t, err)
	assert.Equal(t, updated, availability.Services["haircut"])
	assert.Equal(t, later.UnixMilli(), availability.LastUpdated)
}

func TestAvailabilityStore_UpdateUnknownService(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewAvailabilityStore(client)

	open := true
	_, err := store.UpdateService(context.Background(), "shop-1", "massage", models.ServiceStatusPatch{IsAvailable: &open}, testNow)
	assert.ErrorIs(t, err, status.ErrUnknownService)
}

func TestSnapshots(t *testing.T) {
	_, client := setupTestRedis(t)
	snapshots := NewSnapshots(NewQueueStore(client), NewAvailabilityStore(client))
	ctx := context.Background()

	queue, err := snapshots.FetchQueue(ctx, "shop-1")
	require.NoError(t, err)
	assert.Nil(t, queue)

	_, err = snapshots.Availability.Initialize(ctx, "shop-1", []models.ServiceStatus{{ID: "haircut", IsAvailable: true}}, testNow)
	require.NoError(t, err)

	availability, err := snapshots.FetchAvailability(ctx, "shop-1")
	require.NoError(t, err)
	assert.True(t, availability.Services["haircut"].IsAvailable)
}
