package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		for _, name := range []string{"groups", "statuses"} {
			collection := core.NewBaseCollection(name)
			collection.ListRule = signedInRule()
			collection.ViewRule = signedInRule()

			collection.Fields.Add(
				&core.TextField{Name: "name", Required: true, Max: 100},
				&core.BoolField{Name: "active"},
				&core.AutodateField{Name: "created", OnCreate: true},
				&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
			)
			collection.AddIndex("idx_"+name+"_name", true, "`name`", "")

			if err := app.Save(collection); err != nil {
				return err
			}
		}
		return nil
	}, func(app core.App) error {
		for _, name := range []string{"statuses", "groups"} {
			collection, err := app.FindCollectionByNameOrId(name)
			if err != nil {
				return err
			}
			if err := app.Delete(collection); err != nil {
				return err
			}
		}
		return nil
	})
}
