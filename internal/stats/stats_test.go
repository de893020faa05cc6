package stats

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ayane-t/mochimono/internal/model"
)

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.TotalItems != 0 {
		t.Errorf("TotalItems = %d, want 0", s.TotalItems)
	}
	if s.EstimatedResaleValue.AverageConfidence != 0 {
		t.Errorf("AverageConfidence = %g with no contributors, want 0", s.EstimatedResaleValue.AverageConfidence)
	}
	if s.ItemsByAction == nil || s.ItemsByCategory == nil {
		t.Error("maps not initialized")
	}
}

func TestSummarize_QuantityWeighted(t *testing.T) {
	cost := int64(500)
	items := []*model.Item{
		{
			Category:          "electronics",
			Quantity:          2,
			RecommendedAction: model.ActionOnline,
			OnlinePrice:       model.PriceEstimate{Low: 1000, High: 2000, Confidence: 0.8},
		},
		{
			Category:          "furniture",
			Quantity:          1,
			RecommendedAction: model.ActionTrash,
			DisposalCost:      &cost,
		},
	}

	s := Summarize(items)

	if s.TotalItems != 3 {
		t.Errorf("TotalItems = %d, want 3", s.TotalItems)
	}
	wantResale := ValueRange{Low: 2000, High: 4000, AverageConfidence: 0.8}
	if diff := cmp.Diff(wantResale, s.EstimatedResaleValue); diff != "" {
		t.Errorf("resale value mismatch (-want +got):\n%s", diff)
	}
	if s.EstimatedDisposalCost != 500 {
		t.Errorf("EstimatedDisposalCost = %d, want 500", s.EstimatedDisposalCost)
	}
	wantByAction := map[model.Action]int{model.ActionOnline: 2, model.ActionTrash: 1}
	if diff := cmp.Diff(wantByAction, s.ItemsByAction); diff != "" {
		t.Errorf("by-action counts mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarize_ThriftUsesThriftEstimate(t *testing.T) {
	items := []*model.Item{
		{
			Category:          "clothing",
			Quantity:          1,
			RecommendedAction: model.ActionThrift,
			OnlinePrice:       model.PriceEstimate{Low: 9000, High: 9999, Confidence: 0.9},
			ThriftPrice:       model.PriceEstimate{Low: 100, High: 300, Confidence: 0.5},
		},
	}
	s := Summarize(items)
	want := ValueRange{Low: 100, High: 300, AverageConfidence: 0.5}
	if diff := cmp.Diff(want, s.EstimatedResaleValue); diff != "" {
		t.Errorf("resale value mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarize_KeepAndDonateDoNotContribute(t *testing.T) {
	items := []*model.Item{
		{
			Category:          "books",
			Quantity:          4,
			RecommendedAction: model.ActionKeep,
			OnlinePrice:       model.PriceEstimate{Low: 100, High: 200, Confidence: 1},
		},
		{
			Category:          "books",
			Quantity:          2,
			RecommendedAction: model.ActionDonate,
			ThriftPrice:       model.PriceEstimate{Low: 50, High: 80, Confidence: 1},
		},
	}
	s := Summarize(items)

	if s.EstimatedResaleValue != (ValueRange{}) {
		t.Errorf("resale value = %+v, want zero", s.EstimatedResaleValue)
	}
	if s.ItemsByCategory["books"] != 6 {
		t.Errorf("books count = %d, want 6", s.ItemsByCategory["books"])
	}
}

func TestSummarize_ConfidenceMeanOverContributorsOnly(t *testing.T) {
	items := []*model.Item{
		{Category: "a", Quantity: 1, RecommendedAction: model.ActionOnline,
			OnlinePrice: model.PriceEstimate{Low: 100, High: 200, Confidence: 0.9}},
		{Category: "b", Quantity: 1, RecommendedAction: model.ActionThrift,
			ThriftPrice: model.PriceEstimate{Low: 10, High: 20, Confidence: 0.3}},
		{Category: "c", Quantity: 5, RecommendedAction: model.ActionKeep},
	}
	s := Summarize(items)

	// Mean of 0.9 and 0.3; the kept item is not in the denominator
	// and quantity does not weight confidence.
	const want = 0.6
	got := s.EstimatedResaleValue.AverageConfidence
	if got < want-1e-9 || got > want+1e-9 {
		t.Errorf("AverageConfidence = %g, want %g", got, want)
	}
}

func TestSummarize_TrashWithoutCostCountsZero(t *testing.T) {
	items := []*model.Item{
		{Category: "misc", Quantity: 3, RecommendedAction: model.ActionTrash},
	}
	s := Summarize(items)
	if s.EstimatedDisposalCost != 0 {
		t.Errorf("EstimatedDisposalCost = %d, want 0", s.EstimatedDisposalCost)
	}
	if s.ItemsByAction[model.ActionTrash] != 3 {
		t.Errorf("trash count = %d, want 3", s.ItemsByAction[model.ActionTrash])
	}
}
