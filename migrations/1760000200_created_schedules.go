package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("schedules")
		collection.ListRule = signedInRule()
		collection.ViewRule = signedInRule()

		collection.Fields.Add(
			&core.DateField{Name: "date", Required: true},
			&core.TextField{Name: "place", Required: true, Max: 200},
			&core.TextField{Name: "content", Required: true},
			&core.RelationField{Name: "owner", CollectionId: users.Id, MaxSelect: 1},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		collection.AddIndex("idx_schedules_date", false, "`date`", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("schedules")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
