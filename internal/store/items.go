package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayane-t/mochimono/internal/apperr"
	"github.com/ayane-t/mochimono/internal/model"
	"github.com/ayane-t/mochimono/internal/realm"
)

// itemColumns is the scan/select column list shared by all item reads.
const itemColumns = `id, realm_id, name, name_en, generic_name, generic_en,
	description, special_notes, rationale, category, condition, quantity,
	online_low, online_high, online_confidence,
	thrift_low, thrift_high, thrift_confidence, disposal_cost,
	recommended_action, marketplaces, search_queries, keywords,
	created_at, updated_at`

// Add inserts a new item record and returns its id.
//
// A missing id is assigned locally (remote-assigned ids are accepted
// as-is). When the item carries no realm and the caller's scope names
// one, the item defaults into that realm. Quantity defaults to 1.
// Missing required descriptive fields fail with a ValidationError.
//
// Writing into a realm requires the caller to hold an accepted
// membership there, the same contract as ShareItems.
func (s *Store) Add(ctx context.Context, scope realm.Scope, item *model.Item) (string, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.RealmID == "" && !scope.IsPrivate() {
		item.RealmID = scope.RealmID
	}
	item.RealmID = realm.NormalizeRealmID(item.RealmID)
	item.SetDefaults()

	if err := item.Validate(); err != nil {
		return "", err
	}
	if item.RealmID != "" && item.RealmID != scope.UserID {
		if err := s.requireRealmWrite(ctx, item.RealmID, scope.UserID); err != nil {
			return "", err
		}
	}

	query := `
	INSERT INTO items (` + itemColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := s.conn.ExecContext(ctx, query, itemArgs(item)...); err != nil {
		return "", fmt.Errorf("failed to insert item %s: %w", item.ID, err)
	}

	s.logger.Debug("item added", "id", item.ID, "realm", item.RealmID)
	return item.ID, nil
}

// ItemPatch is a partial update of an item. Nil fields are left
// untouched. The patch deliberately has no id, created_at, or
// updated_at fields: identity and creation time are immutable, and
// updated_at is always rewritten by the store. It also has no realm
// field; realm moves carry a membership check and flow only through
// ShareItems and UnshareItems.
type ItemPatch struct {
	Name        *string
	NameEN      *string
	GenericName *string
	GenericEN   *string

	Description  *string
	SpecialNotes *string
	Rationale    *string
	Category     *string
	Condition    *model.Condition
	Quantity     *int

	OnlinePrice *model.PriceEstimate
	ThriftPrice *model.PriceEstimate

	// DisposalCost sets the cost; ClearDisposalCost removes it.
	DisposalCost      *int64
	ClearDisposalCost bool

	RecommendedAction *model.Action

	Marketplaces  *[]string
	SearchQueries *[]string
	Keywords      *[]string
}

func (p *ItemPatch) apply(item *model.Item) {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.NameEN != nil {
		item.NameEN = *p.NameEN
	}
	if p.GenericName != nil {
		item.GenericName = *p.GenericName
	}
	if p.GenericEN != nil {
		item.GenericEN = *p.GenericEN
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.SpecialNotes != nil {
		item.SpecialNotes = *p.SpecialNotes
	}
	if p.Rationale != nil {
		item.Rationale = *p.Rationale
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Condition != nil {
		item.Condition = *p.Condition
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.OnlinePrice != nil {
		item.OnlinePrice = *p.OnlinePrice
	}
	if p.ThriftPrice != nil {
		item.ThriftPrice = *p.ThriftPrice
	}
	if p.ClearDisposalCost {
		item.DisposalCost = nil
	} else if p.DisposalCost != nil {
		c := *p.DisposalCost
		item.DisposalCost = &c
	}
	if p.RecommendedAction != nil {
		item.RecommendedAction = *p.RecommendedAction
	}
	if p.Marketplaces != nil {
		item.Marketplaces = append([]string(nil), (*p.Marketplaces)...)
	}
	if p.SearchQueries != nil {
		item.SearchQueries = append([]string(nil), (*p.SearchQueries)...)
	}
	if p.Keywords != nil {
		item.Keywords = append([]string(nil), (*p.Keywords)...)
	}
}

// Update applies a partial update to the item and returns the stored
// result. updated_at always advances, even against a wall clock that
// has not moved past the previous write. Returns a NotFoundError if
// no record matches id.
func (s *Store) Update(ctx context.Context, id string, patch ItemPatch) (*model.Item, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("item", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load item %s: %w", id, err)
	}

	patch.apply(item)
	item.UpdatedAt = advance(item.UpdatedAt)

	if err := item.Validate(); err != nil {
		return nil, err
	}

	query := `
	UPDATE items SET
		realm_id = ?, name = ?, name_en = ?, generic_name = ?, generic_en = ?,
		description = ?, special_notes = ?, rationale = ?, category = ?,
		condition = ?, quantity = ?,
		online_low = ?, online_high = ?, online_confidence = ?,
		thrift_low = ?, thrift_high = ?, thrift_confidence = ?, disposal_cost = ?,
		recommended_action = ?, marketplaces = ?, search_queries = ?, keywords = ?,
		updated_at = ?
	WHERE id = ?
	`
	args := itemArgs(item)
	// itemArgs leads with id and ends with created_at, updated_at;
	// reorder for the UPDATE parameter list.
	updateArgs := append(append([]any{}, args[1:23]...), args[24], id)
	if _, err := tx.ExecContext(ctx, query, updateArgs...); err != nil {
		return nil, fmt.Errorf("failed to update item %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}

	s.logger.Debug("item updated", "id", id)
	return item, nil
}

// Delete removes an item and its binary payloads. Deleting an id that
// does not exist is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete item %s: %w", id, err)
	}
	return nil
}

// Get returns the item, or ok=false when no record matches. Absence
// is not an error.
func (s *Store) Get(ctx context.Context, id string) (*model.Item, bool, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load item %s: %w", id, err)
	}
	return item, true, nil
}

// List returns all items visible under the scope, newest first
// (updated_at descending, ties broken by id ascending).
//
// A realm scope where the caller holds no accepted membership yields
// an empty result rather than an error: read-list operations omit
// inaccessible records.
func (s *Store) List(ctx context.Context, scope realm.Scope) ([]*model.Item, error) {
	return s.queryVisible(ctx, scope, "", nil)
}

// Search performs a case-insensitive substring match across all name
// fields, description, special notes, rationale, keywords, and search
// queries. An empty or whitespace query is equivalent to List.
//
// Realm filtering happens before the text predicate: the candidate
// set is already scope-filtered when matching runs.
func (s *Store) Search(ctx context.Context, query string, scope realm.Scope) ([]*model.Item, error) {
	query = strings.TrimSpace(query)
	candidates, err := s.queryVisible(ctx, scope, "", nil)
	if err != nil || query == "" {
		return candidates, err
	}

	needle := strings.ToLower(query)
	matched := make([]*model.Item, 0, len(candidates))
	for _, item := range candidates {
		if strings.Contains(strings.ToLower(item.SearchText()), needle) {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

// FilterByAction returns visible items whose recommended action
// equals action, same ordering contract as List.
func (s *Store) FilterByAction(ctx context.Context, action model.Action, scope realm.Scope) ([]*model.Item, error) {
	return s.queryVisible(ctx, scope, "recommended_action = ?", []any{string(action)})
}

// FilterByCategory returns visible items in the category, same
// ordering contract as List.
func (s *Store) FilterByCategory(ctx context.Context, category string, scope realm.Scope) ([]*model.Item, error) {
	return s.queryVisible(ctx, scope, "category = ?", []any{category})
}

// requireRealmWrite fails unless realmID exists and userID holds an
// accepted membership there.
func (s *Store) requireRealmWrite(ctx context.Context, realmID, userID string) error {
	if _, ok, err := s.GetRealm(ctx, realmID); err != nil {
		return err
	} else if !ok {
		return apperr.NotFound("realm", realmID)
	}
	ok, err := s.isAcceptedMember(ctx, realmID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Unauthorized(fmt.Sprintf("write items in realm %s", realmID))
	}
	return nil
}

// ShareItems moves the items into the realm by rewriting realm_id.
// The caller must hold an accepted membership in the target realm and
// must be able to see every item in the batch. The rewrite is atomic:
// a missing item rolls the whole batch back.
func (s *Store) ShareItems(ctx context.Context, userID string, ids []string, realmID string) error {
	if realmID == "" {
		return apperr.Validationf("realm_id", "required")
	}
	if err := s.requireRealmWrite(ctx, realmID, userID); err != nil {
		return err
	}
	return s.rewriteRealm(ctx, userID, ids, &realmID)
}

// UnshareItems makes the items private again by clearing realm_id.
// Items currently in a realm require the caller to hold an accepted
// membership there. Atomic with the same missing-item contract as
// ShareItems.
func (s *Store) UnshareItems(ctx context.Context, userID string, ids []string) error {
	return s.rewriteRealm(ctx, userID, ids, nil)
}

func (s *Store) rewriteRealm(ctx context.Context, userID string, ids []string, realmID *string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		var prev string
		var current sql.NullString
		err := tx.QueryRowContext(ctx,
			`SELECT realm_id, updated_at FROM items WHERE id = ?`, id).Scan(&current, &prev)
		if err == sql.ErrNoRows {
			return apperr.NotFound("item", id)
		}
		if err != nil {
			return fmt.Errorf("failed to load item %s: %w", id, err)
		}

		// An item sitting in another realm is invisible to the caller
		// unless they are an accepted member there.
		if current.Valid && current.String != "" && current.String != userID {
			ok, err := s.isAcceptedMember(ctx, current.String, userID)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.Unauthorized(fmt.Sprintf("move items out of realm %s", current.String))
			}
		}

		prevAt, _ := time.Parse(timeLayout, prev)
		res, err := tx.ExecContext(ctx,
			`UPDATE items SET realm_id = ?, updated_at = ? WHERE id = ?`,
			nullString(realmID), advance(prevAt).Format(timeLayout), id)
		if err != nil {
			return fmt.Errorf("failed to rewrite realm for item %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.NotFound("item", id)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit realm rewrite: %w", err)
	}
	return nil
}

// Clear deletes every item record in a single transaction. It is an
// administrative operation and refuses to run outside development
// mode.
func (s *Store) Clear(ctx context.Context) error {
	if !s.development {
		return apperr.Unauthorized("clear the repository outside development mode")
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// item_images rows follow via ON DELETE CASCADE.
	if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}

	s.logger.Warn("repository cleared")
	return nil
}

// queryVisible runs the shared scope-filtered, ordered item query
// with an optional extra equality condition.
func (s *Store) queryVisible(ctx context.Context, scope realm.Scope, extra string, extraArgs []any) ([]*model.Item, error) {
	var conditions []string
	var args []any

	if scope.IsPrivate() {
		conditions = append(conditions, "(realm_id IS NULL OR realm_id = ?)")
		args = append(args, scope.UserID)
	} else {
		ok, err := s.isAcceptedMember(ctx, scope.RealmID, scope.UserID)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Read-list operations omit inaccessible records rather
			// than failing.
			return []*model.Item{}, nil
		}
		conditions = append(conditions, "realm_id = ?")
		args = append(args, scope.RealmID)
	}

	if extra != "" {
		conditions = append(conditions, extra)
		args = append(args, extraArgs...)
	}

	query := `SELECT ` + itemColumns + ` FROM items WHERE ` +
		strings.Join(conditions, " AND ") +
		` ORDER BY updated_at DESC, id ASC`

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// itemArgs returns the insert parameter list in itemColumns order.
func itemArgs(item *model.Item) []any {
	return []any{
		item.ID,
		nullIfEmpty(item.RealmID),
		item.Name,
		item.NameEN,
		item.GenericName,
		item.GenericEN,
		item.Description,
		item.SpecialNotes,
		item.Rationale,
		item.Category,
		string(item.Condition),
		item.Quantity,
		item.OnlinePrice.Low,
		item.OnlinePrice.High,
		item.OnlinePrice.Confidence,
		item.ThriftPrice.Low,
		item.ThriftPrice.High,
		item.ThriftPrice.Confidence,
		nullInt(item.DisposalCost),
		string(item.RecommendedAction),
		marshalStrings(item.Marketplaces),
		marshalStrings(item.SearchQueries),
		marshalStrings(item.Keywords),
		item.CreatedAt.UTC().Format(timeLayout),
		item.UpdatedAt.UTC().Format(timeLayout),
	}
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	var (
		item                   model.Item
		realmID                sql.NullString
		condition, action      string
		disposal               sql.NullInt64
		markets, queries, keys sql.NullString
		createdAt, updatedAt   string
	)

	err := row.Scan(
		&item.ID, &realmID, &item.Name, &item.NameEN,
		&item.GenericName, &item.GenericEN,
		&item.Description, &item.SpecialNotes, &item.Rationale,
		&item.Category, &condition, &item.Quantity,
		&item.OnlinePrice.Low, &item.OnlinePrice.High, &item.OnlinePrice.Confidence,
		&item.ThriftPrice.Low, &item.ThriftPrice.High, &item.ThriftPrice.Confidence,
		&disposal, &action, &markets, &queries, &keys,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.RealmID = realmID.String
	item.Condition = model.Condition(condition)
	item.RecommendedAction = model.Action(action)
	if disposal.Valid {
		c := disposal.Int64
		item.DisposalCost = &c
	}
	item.Marketplaces = unmarshalStrings(markets)
	item.SearchQueries = unmarshalStrings(queries)
	item.Keywords = unmarshalStrings(keys)

	if t, err := time.Parse(timeLayout, createdAt); err == nil {
		item.CreatedAt = t
	}
	if t, err := time.Parse(timeLayout, updatedAt); err == nil {
		item.UpdatedAt = t
	}

	return &item, nil
}

func scanItems(rows *sql.Rows) ([]*model.Item, error) {
	items := []*model.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}
	return items, nil
}

// advance returns the current time, bumped past prev so updated_at
// strictly advances even under a coarse or stalled clock.
func advance(prev time.Time) time.Time {
	now := time.Now().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	return now
}

func marshalStrings(v []string) any {
	if len(v) == 0 {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(b)
}

func unmarshalStrings(v sql.NullString) []string {
	if !v.Valid || v.String == "" || v.String == "null" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(v.String), &out); err != nil {
		return nil
	}
	return out
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
