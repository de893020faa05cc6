// Package realm provides pure access-control predicates shared by the
// repository and any presentation-level filtering. Nothing in this
// package performs I/O.
package realm

import "github.com/ayane-t/mochimono/internal/model"

// Scope is the access-control lens applied to a query. It is passed
// explicitly into every repository call; there is no process-wide
// "current realm" state.
//
// An empty RealmID selects the private scope: items with no realm, or
// whose realm id equals the caller's own user id.
type Scope struct {
	UserID  string
	RealmID string
}

// Private returns the private scope for a user.
func Private(userID string) Scope {
	return Scope{UserID: userID}
}

// Shared returns the scope for a specific realm.
func Shared(userID, realmID string) Scope {
	return Scope{UserID: userID, RealmID: realmID}
}

// IsPrivate reports whether the scope selects private items.
func (s Scope) IsPrivate() bool { return s.RealmID == "" }

// NormalizeRealmID collapses the empty string to the absent marker so
// storage is consistent. Future sentinel spellings belong here.
func NormalizeRealmID(v string) string {
	return v
}

// IsPrivateItem reports whether the item is private to userID: no
// realm assigned, or the realm id equals the user's own identity.
func IsPrivateItem(item *model.Item, userID string) bool {
	rid := NormalizeRealmID(item.RealmID)
	return rid == "" || rid == userID
}

// CanAccessItem reports whether the item is visible under the scope.
// A private scope delegates to IsPrivateItem; a realm scope requires
// an exact realm id match, with no partial or ancestor matching.
func CanAccessItem(item *model.Item, scope Scope) bool {
	if scope.IsPrivate() {
		return IsPrivateItem(item, scope.UserID)
	}
	return NormalizeRealmID(item.RealmID) == scope.RealmID
}
