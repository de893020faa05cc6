// Package stats computes dashboard summary statistics over item
// records.
//
// Summaries are always recomputed from a full repository read; no
// incremental counters are kept, so the results reconcile with a full
// scan by construction.
package stats

import "github.com/ayane-t/mochimono/internal/model"

// ValueRange is an accumulated low/high estimate with the mean
// confidence of the estimates that contributed.
type ValueRange struct {
	Low               int64   `json:"low"`
	High              int64   `json:"high"`
	AverageConfidence float64 `json:"average_confidence"`
}

// Summary holds the aggregate view of a set of items. All counts are
// quantity-weighted.
type Summary struct {
	TotalItems            int                  `json:"total_items"`
	ItemsByAction         map[model.Action]int `json:"items_by_action"`
	ItemsByCategory       map[string]int       `json:"items_by_category"`
	EstimatedResaleValue  ValueRange           `json:"estimated_resale_value"`
	EstimatedDisposalCost int64                `json:"estimated_disposal_cost"`
}

// Summarize computes the summary in a single pass.
//
// Resale value accumulates the online estimate for online-action
// items and the thrift estimate for thrift-action items, scaled by
// quantity. AverageConfidence is the mean over contributing items
// only; with no contributors it is 0, never NaN. Disposal cost sums
// disposal_cost x quantity over trash-action items, treating an
// absent cost as 0.
func Summarize(items []*model.Item) *Summary {
	s := &Summary{
		ItemsByAction:   make(map[model.Action]int),
		ItemsByCategory: make(map[string]int),
	}

	var confidenceSum float64
	var contributors int

	for _, item := range items {
		qty := item.Quantity
		s.TotalItems += qty
		s.ItemsByAction[item.RecommendedAction] += qty
		s.ItemsByCategory[item.Category] += qty

		switch item.RecommendedAction {
		case model.ActionOnline:
			s.EstimatedResaleValue.Low += item.OnlinePrice.Low * int64(qty)
			s.EstimatedResaleValue.High += item.OnlinePrice.High * int64(qty)
			confidenceSum += item.OnlinePrice.Confidence
			contributors++
		case model.ActionThrift:
			s.EstimatedResaleValue.Low += item.ThriftPrice.Low * int64(qty)
			s.EstimatedResaleValue.High += item.ThriftPrice.High * int64(qty)
			confidenceSum += item.ThriftPrice.Confidence
			contributors++
		case model.ActionTrash:
			if item.DisposalCost != nil {
				s.EstimatedDisposalCost += *item.DisposalCost * int64(qty)
			}
		}
	}

	if contributors > 0 {
		s.EstimatedResaleValue.AverageConfidence = confidenceSum / float64(contributors)
	}

	return s
}
