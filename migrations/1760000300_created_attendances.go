package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}
		schedules, err := app.FindCollectionByNameOrId("schedules")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("attendances")
		collection.ListRule = signedInRule()
		collection.ViewRule = signedInRule()

		collection.Fields.Add(
			&core.RelationField{Name: "schedule", CollectionId: schedules.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
			&core.RelationField{Name: "user", CollectionId: users.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
			&core.NumberField{Name: "status", Required: true, OnlyInt: true, Min: types.Pointer(1.0), Max: types.Pointer(2.0)},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		// One answer per user and schedule.
		collection.AddIndex("idx_attendances_schedule_user", true, "`schedule`, `user`", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("attendances")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
