// Package model provides the data structures for the mochimono
// inventory core: item records, realms, and realm membership.
package model

import (
	"strings"
	"time"

	"github.com/ayane-t/mochimono/internal/apperr"
)

// Action is the recommended disposal action for an item.
type Action string

const (
	ActionKeep   Action = "keep"   // keep the item
	ActionOnline Action = "online" // sell on an online marketplace
	ActionThrift Action = "thrift" // sell to a local thrift/recycle shop
	ActionDonate Action = "donate" // donate
	ActionTrash  Action = "trash"  // dispose as waste
)

// Actions lists the closed set of valid actions.
var Actions = []Action{ActionKeep, ActionOnline, ActionThrift, ActionDonate, ActionTrash}

// Valid reports whether a belongs to the closed action set.
func (a Action) Valid() bool {
	switch a {
	case ActionKeep, ActionOnline, ActionThrift, ActionDonate, ActionTrash:
		return true
	}
	return false
}

// Condition describes the physical state of an item.
type Condition string

const (
	ConditionNew     Condition = "new"
	ConditionLikeNew Condition = "like_new"
	ConditionGood    Condition = "good"
	ConditionFair    Condition = "fair"
	ConditionPoor    Condition = "poor"
	ConditionBroken  Condition = "broken"
	ConditionUnknown Condition = "unknown"
)

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair,
		ConditionPoor, ConditionBroken, ConditionUnknown:
		return true
	}
	return false
}

// PriceEstimate is a low/high range with estimator confidence in [0,1].
// The invariant High >= Low is enforced by Validate.
type PriceEstimate struct {
	Low        int64   `json:"low"`
	High       int64   `json:"high"`
	Confidence float64 `json:"confidence"`
}

// Validate checks range and confidence bounds.
func (p *PriceEstimate) Validate(field string) error {
	if p.Low < 0 {
		return apperr.Validationf(field, "low must be non-negative (got %d)", p.Low)
	}
	if p.High < p.Low {
		return apperr.Validationf(field, "high must be >= low (got low=%d high=%d)", p.Low, p.High)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return apperr.Validationf(field, "confidence must be in [0,1] (got %g)", p.Confidence)
	}
	return nil
}

// Item is the central record of the inventory: one possession, its AI
// classification, price estimates, and disposal recommendation.
//
// The structure is replication-friendly: flat fields with
// last-write-wins semantics resolved at UpdatedAt granularity by the
// remote sync service.
type Item struct {
	// ===== Core identification =====
	ID string `json:"id"`

	// RealmID references the sharing group the item belongs to.
	// Empty, or equal to the owner's user id, means private.
	RealmID string `json:"realm_id,omitempty"`

	// ===== Descriptive fields =====
	Name        string `json:"name"`                   // specific name, Japanese
	NameEN      string `json:"name_en,omitempty"`      // specific name, English
	GenericName string `json:"generic_name,omitempty"` // generic name, Japanese
	GenericEN   string `json:"generic_en,omitempty"`   // generic name, English

	Description  string    `json:"description,omitempty"`
	SpecialNotes string    `json:"special_notes,omitempty"`
	Rationale    string    `json:"rationale,omitempty"` // why the action was recommended
	Category     string    `json:"category"`
	Condition    Condition `json:"condition"`
	Quantity     int       `json:"quantity"` // >= 1

	// ===== Valuation =====
	OnlinePrice  PriceEstimate `json:"online_price"`
	ThriftPrice  PriceEstimate `json:"thrift_price"`
	DisposalCost *int64        `json:"disposal_cost,omitempty"` // non-negative when present

	// ===== Recommendation =====
	RecommendedAction Action `json:"recommended_action"`

	// ===== Supporting arrays (order and duplicates not significant) =====
	Marketplaces  []string `json:"marketplaces,omitempty"`
	SearchQueries []string `json:"search_queries,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`

	// ===== Timestamps =====
	// CreatedAt is immutable once assigned; UpdatedAt is rewritten on
	// every mutation.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks that the item satisfies the record invariants.
func (i *Item) Validate() error {
	if i.ID == "" {
		return apperr.Validationf("id", "required")
	}
	if strings.TrimSpace(i.Name) == "" {
		return apperr.Validationf("name", "required")
	}
	if i.Category == "" {
		return apperr.Validationf("category", "required")
	}
	if !i.Condition.Valid() {
		return apperr.Validationf("condition", "unknown value %q", i.Condition)
	}
	if i.Quantity < 1 {
		return apperr.Validationf("quantity", "must be >= 1 (got %d)", i.Quantity)
	}
	if !i.RecommendedAction.Valid() {
		return apperr.Validationf("recommended_action", "unknown value %q", i.RecommendedAction)
	}
	if err := i.OnlinePrice.Validate("online_price"); err != nil {
		return err
	}
	if err := i.ThriftPrice.Validate("thrift_price"); err != nil {
		return err
	}
	if i.DisposalCost != nil && *i.DisposalCost < 0 {
		return apperr.Validationf("disposal_cost", "must be non-negative (got %d)", *i.DisposalCost)
	}
	if i.CreatedAt.IsZero() {
		return apperr.Validationf("created_at", "required")
	}
	if i.UpdatedAt.IsZero() {
		return apperr.Validationf("updated_at", "required")
	}
	return nil
}

// SetDefaults applies defaults for optional fields on a new record.
func (i *Item) SetDefaults() {
	if i.Quantity == 0 {
		i.Quantity = 1
	}
	if i.Condition == "" {
		i.Condition = ConditionUnknown
	}
	if i.RecommendedAction == "" {
		i.RecommendedAction = ActionKeep
	}
	now := time.Now().UTC()
	if i.CreatedAt.IsZero() {
		i.CreatedAt = now
	}
	if i.UpdatedAt.IsZero() {
		i.UpdatedAt = now
	}
}

// SearchText returns the concatenation of all free-text fields the
// repository's substring search runs over.
func (i *Item) SearchText() string {
	parts := []string{
		i.Name, i.NameEN, i.GenericName, i.GenericEN,
		i.Description, i.SpecialNotes, i.Rationale,
	}
	parts = append(parts, i.Keywords...)
	parts = append(parts, i.SearchQueries...)
	return strings.Join(parts, "\n")
}
