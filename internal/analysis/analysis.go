// Package analysis consumes the remote AI service that classifies an
// item photograph into structured metadata.
//
// The service is a black box: this package owns only the request
// contract, the typed error mapping, and retry behavior. Inference
// logic lives on the other side of the wire.
package analysis

import (
	"context"

	"github.com/ayane-t/mochimono/internal/model"
)

// Options tune a single analysis request.
type Options struct {
	// PrecisionMode trades latency for a more careful classification.
	PrecisionMode bool
	// EnrichedSearch lets the service consult web-search enrichment
	// for marketplace pricing.
	EnrichedSearch bool
	// MunicipalityCode localizes disposal-cost guidance.
	MunicipalityCode string
}

// Result is the structured metadata returned for one photograph. The
// fields mirror the item record's descriptive, price, and action
// fields; ToItem converts into a repository-ready record.
type Result struct {
	Name        string `json:"name"`
	NameEN      string `json:"name_en"`
	GenericName string `json:"generic_name"`
	GenericEN   string `json:"generic_en"`

	Description  string `json:"description"`
	SpecialNotes string `json:"special_notes"`
	Rationale    string `json:"rationale"`
	Category     string `json:"category"`
	Condition    string `json:"condition"`

	OnlinePrice  model.PriceEstimate `json:"online_price"`
	ThriftPrice  model.PriceEstimate `json:"thrift_price"`
	DisposalCost *int64              `json:"disposal_cost"`

	RecommendedAction string `json:"recommended_action"`

	Marketplaces  []string `json:"marketplaces"`
	SearchQueries []string `json:"search_queries"`
	Keywords      []string `json:"keywords"`
}

// ToItem builds an item record from the analysis result. The item
// still goes through store.Add for id assignment, defaults, and
// validation.
func (r *Result) ToItem() *model.Item {
	return &model.Item{
		Name:              r.Name,
		NameEN:            r.NameEN,
		GenericName:       r.GenericName,
		GenericEN:         r.GenericEN,
		Description:       r.Description,
		SpecialNotes:      r.SpecialNotes,
		Rationale:         r.Rationale,
		Category:          r.Category,
		Condition:         model.Condition(r.Condition),
		OnlinePrice:       r.OnlinePrice,
		ThriftPrice:       r.ThriftPrice,
		DisposalCost:      r.DisposalCost,
		RecommendedAction: model.Action(r.RecommendedAction),
		Marketplaces:      r.Marketplaces,
		SearchQueries:     r.SearchQueries,
		Keywords:          r.Keywords,
	}
}

// Analyzer classifies an item photograph. Implementations must map
// remote failures onto the shared error taxonomy so callers can
// retry transient ones and surface the rest.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, image []byte, mediaType string, opts Options) (*Result, error)
}
