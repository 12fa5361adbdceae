package migrations

import (
	"shop-finder/internal/shops"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		return app.Save(shops.NewCollection())
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId(shops.CollectionName)
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
