package analysis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ayane-t/mochimono/internal/apperr"
	"github.com/ayane-t/mochimono/internal/retry"
)

// AnthropicConfig configures the Anthropic-backed analyzer.
type AnthropicConfig struct {
	APIKey string
	// Model selects the vision model. Empty uses the service default.
	Model string
	// MaxTokens caps the structured response size.
	MaxTokens int64

	Retry  retry.Config
	Logger *slog.Logger
}

// AnthropicAnalyzer implements Analyzer against the Anthropic
// Messages API.
type AnthropicAnalyzer struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	retryCfg  retry.Config
	logger    *slog.Logger
}

// NewAnthropic creates the analyzer. The API key is required.
func NewAnthropic(cfg AnthropicConfig) (*AnthropicAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, apperr.Validationf("api_key", "required")
	}
	mdl := anthropic.Model(cfg.Model)
	if cfg.Model == "" {
		mdl = anthropic.ModelClaudeSonnet4_0
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	retryCfg := cfg.Retry
	if retryCfg.MaxAttempts == 0 {
		retryCfg = retry.DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &AnthropicAnalyzer{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     mdl,
		maxTokens: maxTokens,
		retryCfg:  retryCfg,
		logger:    logger.With("component", "analysis"),
	}, nil
}

// AnalyzeImage classifies one photograph. Transient remote failures
// (rate limits, gateway errors, resets) are retried with backoff;
// quota and malformed-input failures surface immediately as typed
// errors.
func (a *AnthropicAnalyzer) AnalyzeImage(ctx context.Context, image []byte, mediaType string, opts Options) (*Result, error) {
	if len(image) == 0 {
		return nil, apperr.Validationf("image", "required")
	}
	switch mediaType {
	case "image/jpeg", "image/png", "image/webp", "image/gif":
	default:
		return nil, apperr.Validationf("media_type", "unsupported value %q", mediaType)
	}

	encoded := base64.StdEncoding.EncodeToString(image)
	prompt := buildPrompt(opts)

	return retry.Do(ctx, a.retryCfg, func(ctx context.Context) (*Result, error) {
		msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     a.model,
			MaxTokens: a.maxTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(
					anthropic.NewImageBlockBase64(mediaType, encoded),
					anthropic.NewTextBlock(prompt),
				),
			},
		})
		if err != nil {
			return nil, classify(err)
		}

		var text strings.Builder
		for _, block := range msg.Content {
			if block.Type == "text" {
				text.WriteString(block.Text)
			}
		}

		result, err := parseResult(text.String())
		if err != nil {
			a.logger.Warn("unparseable analysis response", "error", err)
			return nil, err
		}
		return result, nil
	})
}

// classify maps SDK errors onto the shared taxonomy.
func classify(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 400:
			return apperr.Validationf("request", "rejected by analysis service: %v", err)
		case apiErr.StatusCode == 429 || retry.RetryableStatus(apiErr.StatusCode):
			return apperr.Transient(apiErr.StatusCode, err)
		case apiErr.StatusCode >= 500:
			return apperr.Transient(apiErr.StatusCode, err)
		default:
			return err
		}
	}
	// Network-level failures without a status are worth retrying.
	return apperr.Transient(0, err)
}

// parseResult pulls the JSON document out of the response, tolerating
// code fences around it.
func parseResult(text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "{"); i >= 0 {
		if j := strings.LastIndex(text, "}"); j > i {
			text = text[i : j+1]
		}
	}

	var result Result
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("failed to parse analysis response: %w", err)
	}
	if result.Name == "" {
		return nil, fmt.Errorf("analysis response missing item name")
	}
	return &result, nil
}

func buildPrompt(opts Options) string {
	var b strings.Builder
	b.WriteString("Identify the household item in this photograph and respond with a single JSON object, no prose, with these keys: ")
	b.WriteString("name (Japanese, specific), name_en, generic_name (Japanese), generic_en, description, special_notes, rationale, category, ")
	b.WriteString("condition (new|like_new|good|fair|poor|broken|unknown), ")
	b.WriteString("online_price {low, high, confidence}, thrift_price {low, high, confidence} (yen, confidence 0-1, high >= low), ")
	b.WriteString("disposal_cost (yen or null), recommended_action (keep|online|thrift|donate|trash), ")
	b.WriteString("marketplaces, search_queries, keywords (string arrays).")
	if opts.PrecisionMode {
		b.WriteString(" Examine brand markings and model numbers closely before pricing.")
	}
	if opts.EnrichedSearch {
		b.WriteString(" Base price ranges on current marketplace listings where possible.")
	}
	if opts.MunicipalityCode != "" {
		fmt.Fprintf(&b, " Estimate disposal cost under municipality code %s rules.", opts.MunicipalityCode)
	}
	return b.String()
}
