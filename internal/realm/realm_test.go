package realm

import (
	"testing"

	"github.com/ayane-t/mochimono/internal/model"
)

func TestScope_IsPrivate(t *testing.T) {
	if !Private("u1").IsPrivate() {
		t.Error("Private scope reported as shared")
	}
	if Shared("u1", "r1").IsPrivate() {
		t.Error("Shared scope reported as private")
	}
}

func TestIsPrivateItem(t *testing.T) {
	tests := []struct {
		name    string
		realmID string
		userID  string
		want    bool
	}{
		{"no realm assigned", "", "u1", true},
		{"realm id equal to own user id", "u1", "u1", true},
		{"foreign realm", "r1", "u1", false},
		{"another user's id as realm", "u2", "u1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := &model.Item{ID: "i1", RealmID: tt.realmID}
			if got := IsPrivateItem(item, tt.userID); got != tt.want {
				t.Errorf("IsPrivateItem() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanAccessItem(t *testing.T) {
	private := &model.Item{ID: "i1"}
	shared := &model.Item{ID: "i2", RealmID: "r1"}

	tests := []struct {
		name  string
		item  *model.Item
		scope Scope
		want  bool
	}{
		{"private scope sees unassigned item", private, Private("u1"), true},
		{"realm scope hides private items", private, Shared("u1", "r1"), false},
		{"matching realm scope sees shared item", shared, Shared("u2", "r1"), true},
		{"different realm denied", shared, Shared("u2", "r2"), false},
		{"no prefix matching across realm ids", shared, Shared("u2", "r"), false},
		{"private scope hides shared items", shared, Private("u1"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAccessItem(tt.item, tt.scope); got != tt.want {
				t.Errorf("CanAccessItem() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Sharing an item flips which scopes can see it; unsharing restores
// private visibility.
func TestCanAccessItem_ShareTransition(t *testing.T) {
	item := &model.Item{ID: "i1"}

	if !CanAccessItem(item, Private("u1")) {
		t.Fatal("fresh item should be visible to its owner")
	}
	if CanAccessItem(item, Shared("u2", "r1")) {
		t.Fatal("fresh item should not be visible in any realm")
	}

	item.RealmID = "r1"

	if CanAccessItem(item, Private("u1")) {
		t.Error("shared item still visible under the private scope")
	}
	if !CanAccessItem(item, Shared("u2", "r1")) {
		t.Error("shared item not visible under its realm scope")
	}

	item.RealmID = ""

	if !CanAccessItem(item, Private("u1")) {
		t.Error("unshared item not visible under the private scope again")
	}
}
