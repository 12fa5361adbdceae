package migrations

import (
	"shop-finder/internal/appointments"
	"shop-finder/internal/shops"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		shopsCollection, err := app.FindCollectionByNameOrId(shops.CollectionName)
		if err != nil {
			return err
		}

		return app.Save(appointments.NewCollection(shopsCollection.Id))
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId(appointments.CollectionName)
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
