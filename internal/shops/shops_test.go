package shops

import (
	"testing"

	"shop-finder/models"

	"github.com/pocketbase/pocketbase/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollection(t *testing.T) {
	collection := NewCollection()

	assert.Equal(t, CollectionName, collection.Name)
	assert.True(t, collection.IsBase())

	for _, name := range []string{"name", "distance", "services", "address", "latitude", "longitude", "rating", "is_open", "opens_at", "closes_at"} {
		assert.NotNil(t, collection.Fields.GetByName(name), name)
	}

	services, ok := collection.Fields.GetByName("services").(*core.SelectField)
	require.True(t, ok)
	assert.Equal(t, models.KnownServices(), services.Values)
	assert.True(t, services.IsMultiple())
}

func TestRecordRoundTrip(t *testing.T) {
	shop := models.Shop{
		ShopDetails: models.ShopDetails{
			ID:       "shopabc123defgh",
			Name:     "Bravo Barbers",
			Distance: 2.5,
			Services: []string{"haircut", "styling"},
		},
		Address:   "12 Mekong Road",
		Latitude:  17.9667,
		Longitude: 102.6,
		Rating:    4.5,
		IsOpen:    true,
		OpensAt:   "09:00",
		ClosesAt:  "20:00",
	}

	record := core.NewRecord(NewCollection())
	ApplyToRecord(record, shop)

	assert.Equal(t, shop, FromRecord(record))
}

func TestFromRecord_EmptyRecord(t *testing.T) {
	record := core.NewRecord(NewCollection())
	record.Id = "empty"

	shop := FromRecord(record)

	assert.Equal(t, "empty", shop.ID)
	assert.Empty(t, shop.Services)
	assert.False(t, shop.IsOpen)
	assert.Zero(t, shop.Distance)
}
