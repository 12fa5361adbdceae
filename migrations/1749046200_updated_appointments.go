package migrations

import (
	"shop-finder/internal/appointments"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

// Appointments are readable by their owner only.
func init() {
	m.Register(func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId(appointments.CollectionName)
		if err != nil {
			return err
		}

		collection.ListRule = types.Pointer("@request.auth.id != '' && user_id = @request.auth.id")
		collection.ViewRule = types.Pointer("@request.auth.id != '' && user_id = @request.auth.id")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId(appointments.CollectionName)
		if err != nil {
			return err
		}

		collection.ListRule = nil
		collection.ViewRule = nil

		return app.Save(collection)
	})
}
