package handlers

import (
	"github.com/pocketbase/pocketbase/core"
)

const usersCollection = "users"

// CurrentUser returns the signed in dashboard user, or nil. Superuser tokens
// are not dashboard identities.
func CurrentUser(e *core.RequestEvent) *core.Record {
	if e.Auth == nil || e.Auth.Collection().Name != usersCollection {
		return nil
	}
	return e.Auth
}

// CurrentUserID returns the id of the signed in user or "".
func CurrentUserID(e *core.RequestEvent) string {
	if user := CurrentUser(e); user != nil {
		return user.Id
	}
	return ""
}
