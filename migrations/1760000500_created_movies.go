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

		collection := core.NewBaseCollection("movies")
		collection.ListRule = signedInRule()
		collection.ViewRule = signedInRule()

		collection.Fields.Add(
			&core.TextField{Name: "title", Required: true, Max: 200},
			&core.TextField{Name: "description"},
			&core.NumberField{Name: "sort_no", OnlyInt: true},
			&core.TextField{Name: "path", Required: true},
			&core.TextField{Name: "thumbnail_path"},
			&core.RelationField{Name: "owner", CollectionId: users.Id, MaxSelect: 1},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		collection.AddIndex("idx_movies_path", true, "`path`", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("movies")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
