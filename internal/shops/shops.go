// Package shops reads shop records from the PocketBase "shops" collection.
package shops

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"shop-finder/internal/realtime"
	"shop-finder/internal/status"
	"shop-finder/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

const CollectionName = "shops"

// NewCollection describes the shops collection. The services field only
// accepts ids from the service catalog.
func NewCollection() *core.Collection {
	collection := core.NewBaseCollection(CollectionName)
	collection.ListRule = types.Pointer("")
	collection.ViewRule = types.Pointer("")

	collection.Fields.Add(
		&core.TextField{Name: "name", Required: true, Max: 120},
		&core.NumberField{Name: "distance", Min: types.Pointer(0.0)},
		&core.SelectField{Name: "services", MaxSelect: len(models.KnownServices()), Values: models.KnownServices()},
		&core.TextField{Name: "address"},
		&core.NumberField{Name: "latitude", Min: types.Pointer(-90.0), Max: types.Pointer(90.0)},
		&core.NumberField{Name: "longitude", Min: types.Pointer(-180.0), Max: types.Pointer(180.0)},
		&core.NumberField{Name: "rating", Min: types.Pointer(0.0), Max: types.Pointer(5.0)},
		&core.BoolField{Name: "is_open"},
		&core.TextField{Name: "opens_at", Pattern: `^\d{2}:\d{2}$`},
		&core.TextField{Name: "closes_at", Pattern: `^\d{2}:\d{2}$`},
		&core.AutodateField{Name: "created", OnCreate: true},
		&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
	)
	collection.AddIndex("idx_shops_distance", false, "distance", "")

	return collection
}

type Repository struct {
	app core.App
}

func NewRepository(app core.App) *Repository {
	return &Repository{app: app}
}

// List returns every shop, nearest first.
func (r *Repository) List(ctx context.Context) ([]models.Shop, error) {
	records := []*core.Record{}
	err := r.app.RecordQuery(CollectionName).
		WithContext(ctx).
		OrderBy("distance ASC", "name ASC").
		All(&records)
	if err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}

	shops := make([]models.Shop, 0, len(records))
	for _, record := range records {
		shops = append(shops, FromRecord(record))
	}
	return shops, nil
}

func (r *Repository) Get(ctx context.Context, id string) (models.Shop, error) {
	record, err := r.app.FindRecordById(CollectionName, id, func(q *dbx.SelectQuery) error {
		q.WithContext(ctx)
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return models.Shop{}, status.ErrShopNotFound
	}
	if err != nil {
		return models.Shop{}, fmt.Errorf("get shop %s: %w", id, err)
	}
	return FromRecord(record), nil
}

// Create stores shop and returns it with its generated id.
func (r *Repository) Create(ctx context.Context, shop models.Shop) (models.Shop, error) {
	collection, err := r.app.FindCachedCollectionByNameOrId(CollectionName)
	if err != nil {
		return shop, fmt.Errorf("find shops collection: %w", err)
	}

	record := core.NewRecord(collection)
	ApplyToRecord(record, shop)
	if err := r.app.SaveWithContext(ctx, record); err != nil {
		return shop, fmt.Errorf("create shop %s: %w", shop.Name, err)
	}
	return FromRecord(record), nil
}

func FromRecord(record *core.Record) models.Shop {
	return models.Shop{
		ShopDetails: models.ShopDetails{
			ID:       record.Id,
			Name:     record.GetString("name"),
			Distance: record.GetFloat("distance"),
			Services: record.GetStringSlice("services"),
		},
		Address:   record.GetString("address"),
		Latitude:  record.GetFloat("latitude"),
		Longitude: record.GetFloat("longitude"),
		Rating:    record.GetFloat("rating"),
		IsOpen:    record.GetBool("is_open"),
		OpensAt:   record.GetString("opens_at"),
		ClosesAt:  record.GetString("closes_at"),
	}
}

func ApplyToRecord(record *core.Record, shop models.Shop) {
	if shop.ID != "" {
		record.Id = shop.ID
	}
	record.Set("name", shop.Name)
	record.Set("distance", shop.Distance)
	record.Set("services", shop.Services)
	record.Set("address", shop.Address)
	record.Set("latitude", shop.Latitude)
	record.Set("longitude", shop.Longitude)
	record.Set("rating", shop.Rating)
	record.Set("is_open", shop.IsOpen)
	record.Set("opens_at", shop.OpensAt)
	record.Set("closes_at", shop.ClosesAt)
}

// BindHooks announces every saved or deleted shop record so watchers rescore.
func BindHooks(app core.App, publisher realtime.Publisher) {
	announce := func(e *core.RecordEvent) error {
		update := realtime.Update{
			Type:      realtime.UpdateShops,
			ShopID:    e.Record.Id,
			Timestamp: time.Now().UnixMilli(),
		}
		if err := publisher.Publish(e.Context, update); err != nil {
			slog.Error("Failed to publish shop update",
				"shopID", e.Record.Id,
				"error", err,
			)
		}
		return e.Next()
	}

	app.OnRecordAfterCreateSuccess(CollectionName).BindFunc(announce)
	app.OnRecordAfterUpdateSuccess(CollectionName).BindFunc(announce)
	app.OnRecordAfterDeleteSuccess(CollectionName).BindFunc(announce)
}
