package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ayane-t/mochimono/internal/apperr"
	"github.com/ayane-t/mochimono/internal/model"
	"github.com/ayane-t/mochimono/internal/realm"
)

// testStore opens a development-mode store in a temp directory.
func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(context.Background(), path, Options{Development: true})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// testItem returns a valid item ready for Add.
func testItem(name string) *model.Item {
	return &model.Item{
		Name:      name,
		NameEN:    name + " (en)",
		Category:  "kitchen",
		Condition: model.ConditionGood,
		Quantity:  1,
		OnlinePrice: model.PriceEstimate{
			Low: 1000, High: 2000, Confidence: 0.8,
		},
		ThriftPrice: model.PriceEstimate{
			Low: 300, High: 600, Confidence: 0.6,
		},
		RecommendedAction: model.ActionKeep,
		Keywords:          []string{"kettle", "stainless"},
	}
}

const testUser = "user-1"

func privateScope() realm.Scope { return realm.Private(testUser) }

func TestAdd_AssignsIDAndDefaults(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	item := testItem("kettle")
	item.Quantity = 0 // should default to 1
	id, err := st.Add(ctx, privateScope(), item)
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if id == "" {
		t.Fatal("Add() returned empty id")
	}

	got, ok, err := st.Get(ctx, id)
	if err != nil || !ok {
		t.Fatalf("Get() = ok=%v err=%v", ok, err)
	}
	if got.Quantity != 1 {
		t.Errorf("quantity = %d, want default 1", got.Quantity)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps were not assigned")
	}
	if diff := cmp.Diff(item.Keywords, got.Keywords); diff != "" {
		t.Errorf("keywords mismatch (-want +got):\n%s", diff)
	}
}

func TestAdd_DefaultsRealmFromScope(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	r, err := st.CreateRealm(ctx, "family", "", testUser)
	if err != nil {
		t.Fatalf("CreateRealm() failed: %v", err)
	}

	id, err := st.Add(ctx, realm.Shared(testUser, r.ID), testItem("shared pot"))
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	got, _, _ := st.Get(ctx, id)
	if got.RealmID != r.ID {
		t.Errorf("realm id = %q, want %q", got.RealmID, r.ID)
	}
}

func TestAdd_ValidationErrors(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*model.Item)
	}{
		{"missing name", func(i *model.Item) { i.Name = "" }},
		{"missing category", func(i *model.Item) { i.Category = "" }},
		{"price high below low", func(i *model.Item) { i.OnlinePrice = model.PriceEstimate{Low: 200, High: 100} }},
		{"confidence above one", func(i *model.Item) { i.ThriftPrice.Confidence = 1.5 }},
		{"negative quantity", func(i *model.Item) { i.Quantity = -1 }},
		{"negative disposal cost", func(i *model.Item) { c := int64(-5); i.DisposalCost = &c }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := testItem("bad")
			tt.mutate(item)
			if _, err := st.Add(ctx, privateScope(), item); !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("Add() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestUpdate_PreservesIdentityAndAdvancesUpdatedAt(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	id, err := st.Add(ctx, privateScope(), testItem("lamp"))
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	before, _, _ := st.Get(ctx, id)

	name := "desk lamp"
	after, err := st.Update(ctx, id, ItemPatch{Name: &name})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	if after.ID != id {
		t.Errorf("id changed: %q -> %q", id, after.ID)
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Errorf("created_at changed: %v -> %v", before.CreatedAt, after.CreatedAt)
	}
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Errorf("updated_at did not advance: %v -> %v", before.UpdatedAt, after.UpdatedAt)
	}
	if after.Name != "desk lamp" {
		t.Errorf("name = %q, want %q", after.Name, "desk lamp")
	}
	if after.Category != before.Category {
		t.Errorf("unpatched field changed: category %q -> %q", before.Category, after.Category)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	st := testStore(t)
	name := "x"
	_, err := st.Update(context.Background(), "no-such-id", ItemPatch{Name: &name})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestUpdate_ClearDisposalCost(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	item := testItem("broken fan")
	cost := int64(500)
	item.DisposalCost = &cost
	item.RecommendedAction = model.ActionTrash
	id, _ := st.Add(ctx, privateScope(), item)

	after, err := st.Update(ctx, id, ItemPatch{ClearDisposalCost: true})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if after.DisposalCost != nil {
		t.Errorf("disposal cost = %d, want cleared", *after.DisposalCost)
	}
}

func TestDelete_Idempotent(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	id, _ := st.Add(ctx, privateScope(), testItem("cup"))
	if err := st.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if err := st.Delete(ctx, id); err != nil {
		t.Errorf("second Delete() failed: %v", err)
	}
	if err := st.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("Delete() of unknown id failed: %v", err)
	}

	if _, ok, _ := st.Get(ctx, id); ok {
		t.Error("item still present after delete")
	}
}

func TestGet_AbsenceIsNotAnError(t *testing.T) {
	st := testStore(t)
	item, ok, err := st.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if ok || item != nil {
		t.Errorf("Get() = (%v, %v), want (nil, false)", item, ok)
	}
}

func TestList_OrderingNewestFirst(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	first, _ := st.Add(ctx, privateScope(), testItem("oldest"))
	second, _ := st.Add(ctx, privateScope(), testItem("middle"))
	third, _ := st.Add(ctx, privateScope(), testItem("newest"))

	// Touch the first item so it becomes the most recent.
	name := "oldest, renamed"
	if _, err := st.Update(ctx, first, ItemPatch{Name: &name}); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	items, err := st.List(ctx, privateScope())
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}

	var ids []string
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	want := []string{first, third, second}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestList_ScopeVisibility(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	r, _ := st.CreateRealm(ctx, "family", "", testUser)
	privateID, _ := st.Add(ctx, privateScope(), testItem("private thing"))
	sharedID, _ := st.Add(ctx, realm.Shared(testUser, r.ID), testItem("shared thing"))

	private, err := st.List(ctx, privateScope())
	if err != nil {
		t.Fatalf("List(private) failed: %v", err)
	}
	if len(private) != 1 || private[0].ID != privateID {
		t.Errorf("private scope returned %d items, want only %s", len(private), privateID)
	}

	shared, err := st.List(ctx, realm.Shared(testUser, r.ID))
	if err != nil {
		t.Fatalf("List(realm) failed: %v", err)
	}
	if len(shared) != 1 || shared[0].ID != sharedID {
		t.Errorf("realm scope returned %d items, want only %s", len(shared), sharedID)
	}

	// Every returned item satisfies the pure access predicate.
	for _, item := range shared {
		if !realm.CanAccessItem(item, realm.Shared(testUser, r.ID)) {
			t.Errorf("item %s not accessible under its own scope", item.ID)
		}
	}
}

func TestList_NonMemberSeesNothing(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	r, _ := st.CreateRealm(ctx, "family", "", testUser)
	if _, err := st.Add(ctx, realm.Shared(testUser, r.ID), testItem("shared thing")); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	items, err := st.List(ctx, realm.Shared("stranger", r.ID))
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("stranger sees %d items, want 0", len(items))
	}
}

func TestSearch_EmptyQueryEqualsList(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	st.Add(ctx, privateScope(), testItem("kettle"))
	st.Add(ctx, privateScope(), testItem("lamp"))

	list, _ := st.List(ctx, privateScope())
	for _, query := range []string{"", "   ", "\t"} {
		found, err := st.Search(ctx, query, privateScope())
		if err != nil {
			t.Fatalf("Search(%q) failed: %v", query, err)
		}
		if diff := cmp.Diff(list, found); diff != "" {
			t.Errorf("Search(%q) != List() (-want +got):\n%s", query, diff)
		}
	}
}

func TestSearch_CaseInsensitiveAcrossFields(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	item := testItem("電気ケトル")
	item.NameEN = "Electric Kettle"
	item.Rationale = "barely used, resells well"
	item.Keywords = []string{"T-fal"}
	id, _ := st.Add(ctx, privateScope(), item)
	sofa := testItem("sofa")
	sofa.Keywords = nil // testItem's default keywords include "kettle"
	st.Add(ctx, privateScope(), sofa)

	for _, query := range []string{"KETTLE", "t-FAL", "resells", "電気"} {
		found, err := st.Search(ctx, query, privateScope())
		if err != nil {
			t.Fatalf("Search(%q) failed: %v", query, err)
		}
		if len(found) != 1 || found[0].ID != id {
			t.Errorf("Search(%q) returned %d items, want exactly the kettle", query, len(found))
		}
	}
}

func TestSearch_RealmFilterAppliedBeforeText(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	r, _ := st.CreateRealm(ctx, "family", "", testUser)
	st.Add(ctx, privateScope(), testItem("kettle private"))
	sharedID, _ := st.Add(ctx, realm.Shared(testUser, r.ID), testItem("kettle shared"))

	found, err := st.Search(ctx, "kettle", realm.Shared(testUser, r.ID))
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(found) != 1 || found[0].ID != sharedID {
		t.Errorf("realm-scoped search returned %d items, want only the shared one", len(found))
	}
}

func TestFilterByActionAndCategory(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	sell := testItem("camera")
	sell.RecommendedAction = model.ActionOnline
	sell.Category = "electronics"
	sellID, _ := st.Add(ctx, privateScope(), sell)

	keep := testItem("photo album")
	keep.Category = "memorabilia"
	st.Add(ctx, privateScope(), keep)

	byAction, err := st.FilterByAction(ctx, model.ActionOnline, privateScope())
	if err != nil {
		t.Fatalf("FilterByAction() failed: %v", err)
	}
	if len(byAction) != 1 || byAction[0].ID != sellID {
		t.Errorf("FilterByAction() returned %d items, want only %s", len(byAction), sellID)
	}

	byCategory, err := st.FilterByCategory(ctx, "electronics", privateScope())
	if err != nil {
		t.Fatalf("FilterByCategory() failed: %v", err)
	}
	if len(byCategory) != 1 || byCategory[0].ID != sellID {
		t.Errorf("FilterByCategory() returned %d items, want only %s", len(byCategory), sellID)
	}
}

func TestShareItems_MovesItemBetweenScopes(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	id, _ := st.Add(ctx, privateScope(), testItem("board game"))
	r, _ := st.CreateRealm(ctx, "family", "", testUser)

	if err := st.ShareItems(ctx, testUser, []string{id}, r.ID); err != nil {
		t.Fatalf("ShareItems() failed: %v", err)
	}

	item, _, _ := st.Get(ctx, id)
	if realm.CanAccessItem(item, realm.Private(testUser)) {
		t.Error("shared item still visible under private scope")
	}
	if !realm.CanAccessItem(item, realm.Shared(testUser, r.ID)) {
		t.Error("shared item not visible under realm scope")
	}

	if err := st.UnshareItems(ctx, testUser, []string{id}); err != nil {
		t.Fatalf("UnshareItems() failed: %v", err)
	}
	item, _, _ = st.Get(ctx, id)
	if !realm.CanAccessItem(item, realm.Private(testUser)) {
		t.Error("unshared item not visible under private scope")
	}
}

func TestAdd_RequiresRealmMembership(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	r, _ := st.CreateRealm(ctx, "family", "", "owner-user")

	// A realm scope without an accepted membership cannot insert.
	_, err := st.Add(ctx, realm.Shared("intruder", r.ID), testItem("planted"))
	if !errors.Is(err, apperr.ErrAuthorization) {
		t.Errorf("Add() into non-member realm error = %v, want ErrAuthorization", err)
	}

	// The same holds when the item itself names the realm.
	item := testItem("planted")
	item.RealmID = r.ID
	_, err = st.Add(ctx, realm.Private("intruder"), item)
	if !errors.Is(err, apperr.ErrAuthorization) {
		t.Errorf("Add() with foreign realm id error = %v, want ErrAuthorization", err)
	}

	items, _ := st.List(ctx, realm.Shared("owner-user", r.ID))
	if len(items) != 0 {
		t.Errorf("%d items reached the realm despite the denial", len(items))
	}

	_, err = st.Add(ctx, realm.Private("intruder"), testItem("unknown realm"))
	if err != nil {
		t.Errorf("private Add() failed: %v", err)
	}
}

func TestAdd_UnknownRealm(t *testing.T) {
	st := testStore(t)
	item := testItem("lost")
	item.RealmID = "no-such-realm"
	_, err := st.Add(context.Background(), privateScope(), item)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Add() into unknown realm error = %v, want ErrNotFound", err)
	}
}

func TestUnshareItems_RequiresMembership(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	r, _ := st.CreateRealm(ctx, "family", "", "owner-user")
	id, err := st.Add(ctx, realm.Shared("owner-user", r.ID), testItem("shared vase"))
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	err = st.UnshareItems(ctx, "intruder", []string{id})
	if !errors.Is(err, apperr.ErrAuthorization) {
		t.Errorf("UnshareItems() by non-member error = %v, want ErrAuthorization", err)
	}
	item, _, _ := st.Get(ctx, id)
	if item.RealmID != r.ID {
		t.Errorf("item realm = %q after denied unshare, want %q", item.RealmID, r.ID)
	}

	if err := st.UnshareItems(ctx, "owner-user", []string{id}); err != nil {
		t.Fatalf("UnshareItems() by member failed: %v", err)
	}
}

func TestShareItems_RequiresMembership(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	id, _ := st.Add(ctx, privateScope(), testItem("bike"))
	r, _ := st.CreateRealm(ctx, "family", "", "someone-else")

	err := st.ShareItems(ctx, testUser, []string{id}, r.ID)
	if !errors.Is(err, apperr.ErrAuthorization) {
		t.Errorf("ShareItems() error = %v, want ErrAuthorization", err)
	}
}

func TestShareItems_MissingItemRollsBack(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	id, _ := st.Add(ctx, privateScope(), testItem("chair"))
	r, _ := st.CreateRealm(ctx, "family", "", testUser)

	err := st.ShareItems(ctx, testUser, []string{id, "no-such-item"}, r.ID)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("ShareItems() error = %v, want ErrNotFound", err)
	}

	// The batch must be atomic: the existing item stays private.
	item, _, _ := st.Get(ctx, id)
	if item.RealmID != "" {
		t.Errorf("item realm = %q after failed batch, want private", item.RealmID)
	}
}

func TestShareItems_UnknownRealm(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	id, _ := st.Add(ctx, privateScope(), testItem("rug"))
	err := st.ShareItems(ctx, testUser, []string{id}, "no-such-realm")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("ShareItems() error = %v, want ErrNotFound", err)
	}
}

func TestClear_DevelopmentOnly(t *testing.T) {
	ctx := context.Background()

	st := testStore(t)
	st.Add(ctx, privateScope(), testItem("doomed"))
	if err := st.Clear(ctx); err != nil {
		t.Fatalf("Clear() failed in development mode: %v", err)
	}
	items, _ := st.List(ctx, privateScope())
	if len(items) != 0 {
		t.Errorf("%d items remain after Clear()", len(items))
	}

	prod, err := Open(ctx, filepath.Join(t.TempDir(), "prod.db"), Options{})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer prod.Close()
	if err := prod.Clear(ctx); !errors.Is(err, apperr.ErrAuthorization) {
		t.Errorf("Clear() error = %v outside development mode, want ErrAuthorization", err)
	}
}

func TestUpdatedAt_MonotonicUnderRapidWrites(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	id, _ := st.Add(ctx, privateScope(), testItem("notebook"))

	var prev time.Time
	for i := 0; i < 5; i++ {
		name := "notebook"
		item, err := st.Update(ctx, id, ItemPatch{Name: &name})
		if err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
		if !item.UpdatedAt.After(prev) {
			t.Fatalf("updated_at did not advance on write %d: %v -> %v", i, prev, item.UpdatedAt)
		}
		prev = item.UpdatedAt
	}
}
