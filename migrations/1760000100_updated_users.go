package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

var addedUserFields = []string{"birthday", "group", "status"}

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}
		groups, err := app.FindCollectionByNameOrId("groups")
		if err != nil {
			return err
		}
		statuses, err := app.FindCollectionByNameOrId("statuses")
		if err != nil {
			return err
		}

		if name, ok := users.Fields.GetByName("name").(*core.TextField); ok {
			name.Required = true
		} else {
			users.Fields.Add(&core.TextField{Name: "name", Required: true, Max: 255})
		}

		users.Fields.Add(
			&core.DateField{Name: "birthday"},
			&core.RelationField{Name: "group", CollectionId: groups.Id, MaxSelect: 1},
			&core.RelationField{Name: "status", CollectionId: statuses.Id, MaxSelect: 1},
		)

		return app.Save(users)
	}, func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		for _, name := range addedUserFields {
			users.Fields.RemoveByName(name)
		}
		if name, ok := users.Fields.GetByName("name").(*core.TextField); ok {
			name.Required = false
		}

		return app.Save(users)
	})
}
