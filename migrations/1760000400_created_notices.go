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

		notices := core.NewBaseCollection("notices")
		notices.ListRule = signedInRule()
		notices.ViewRule = signedInRule()
		notices.Fields.Add(
			&core.TextField{Name: "title", Required: true, Max: 200},
			&core.TextField{Name: "content", Required: true},
			&core.RelationField{Name: "author", CollectionId: users.Id, MaxSelect: 1},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		notices.AddIndex("idx_notices_created", false, "`created`", "")

		if err := app.Save(notices); err != nil {
			return err
		}

		files := core.NewBaseCollection("notice_files")
		files.ListRule = signedInRule()
		files.ViewRule = signedInRule()
		files.Fields.Add(
			&core.RelationField{Name: "notice", CollectionId: notices.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
			&core.TextField{Name: "path", Required: true},
			&core.TextField{Name: "file_name", Required: true, Max: 255},
			&core.AutodateField{Name: "created", OnCreate: true},
		)
		files.AddIndex("idx_notice_files_notice", true, "`notice`", "")

		return app.Save(files)
	}, func(app core.App) error {
		for _, name := range []string{"notice_files", "notices"} {
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
