package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayane-t/mochimono/internal/apperr"
	"github.com/ayane-t/mochimono/internal/model"
)

func TestNewAnthropic_RequiresAPIKey(t *testing.T) {
	_, err := NewAnthropic(AnthropicConfig{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	a, err := NewAnthropic(AnthropicConfig{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.NotNil(t, a)
}

func TestAnalyzeImage_InputValidation(t *testing.T) {
	a, err := NewAnthropic(AnthropicConfig{APIKey: "sk-test"})
	require.NoError(t, err)

	_, err = a.AnalyzeImage(context.Background(), nil, "image/jpeg", Options{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = a.AnalyzeImage(context.Background(), []byte("img"), "application/pdf", Options{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestParseResult(t *testing.T) {
	const body = `{"name":"電気ケトル","name_en":"Electric Kettle","category":"kitchen",` +
		`"condition":"good","online_price":{"low":1000,"high":2000,"confidence":0.8},` +
		`"recommended_action":"online","keywords":["T-fal"]}`

	tests := []struct {
		name string
		text string
	}{
		{"bare json", body},
		{"fenced json", "```json\n" + body + "\n```"},
		{"prose around json", "Here is the item:\n" + body + "\nHope that helps."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseResult(tt.text)
			require.NoError(t, err)
			assert.Equal(t, "電気ケトル", result.Name)
			assert.Equal(t, "kitchen", result.Category)
			assert.Equal(t, int64(2000), result.OnlinePrice.High)
		})
	}
}

func TestParseResult_Rejections(t *testing.T) {
	_, err := parseResult("no json here")
	assert.Error(t, err)

	_, err = parseResult(`{"category":"kitchen"}`)
	assert.ErrorContains(t, err, "missing item name")
}

func TestClassify_NetworkErrorIsTransient(t *testing.T) {
	err := classify(errors.New("dial tcp: connection refused"))
	assert.ErrorIs(t, err, apperr.ErrTransient)
}

func TestResult_ToItem(t *testing.T) {
	r := &Result{
		Name:              "電気ケトル",
		NameEN:            "Electric Kettle",
		Category:          "kitchen",
		Condition:         "good",
		OnlinePrice:       model.PriceEstimate{Low: 1000, High: 2000, Confidence: 0.8},
		RecommendedAction: "online",
		Keywords:          []string{"T-fal"},
	}
	item := r.ToItem()
	assert.Equal(t, r.Name, item.Name)
	assert.Equal(t, r.Category, item.Category)
	assert.Equal(t, model.ConditionGood, item.Condition)
	assert.Equal(t, model.ActionOnline, item.RecommendedAction)
	assert.Equal(t, r.OnlinePrice, item.OnlinePrice)
	assert.Equal(t, r.Keywords, item.Keywords)
}

func TestBuildPrompt_Options(t *testing.T) {
	base := buildPrompt(Options{})
	assert.Contains(t, base, "JSON object")
	assert.NotContains(t, base, "municipality")

	full := buildPrompt(Options{PrecisionMode: true, EnrichedSearch: true, MunicipalityCode: "131016"})
	assert.Contains(t, full, "model numbers")
	assert.Contains(t, full, "marketplace listings")
	assert.Contains(t, full, "131016")
	assert.True(t, strings.HasPrefix(full, base[:40]))
}
