package migrations

import "github.com/pocketbase/pocketbase/tools/types"

// Signed in users may read through the collections API. Writes go through
// the dashboard routes, so the collection write rules stay superuser only.
func signedInRule() *string {
	return types.Pointer("@request.auth.id != '' && @request.auth.collectionName = 'users'")
}
