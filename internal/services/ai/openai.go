package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/resale-hub/internal/metrics"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel must accept image input
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 60 * time.Second

	maxTitleLength = 80
	maxTags        = 15

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
)

const systemPrompt = "You write listings for a secondhand fashion shop. Look at the photo and the seller's notes, " +
	"then respond with valid JSON only using the keys title, description, category, tags, colors, materials. " +
	"Never invent a brand or size that is not visible or given. Mention visible wear honestly."

// OpenAIProvider implements ListingGenerator with a vision-capable chat model
type OpenAIProvider struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIProvider creates a new OpenAI provider. Empty baseURL and model use the defaults.
func NewOpenAIProvider(apiKey, baseURL, model string, logger *zap.Logger, debugMode bool) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)

	return &OpenAIProvider{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// SuggestListing sends the photo and notes to the model and parses its JSON answer.
func (p *OpenAIProvider) SuggestListing(ctx context.Context, input ListingInput) (_ *ListingSuggestion, err error) {
	start := time.Now()
	defer func() { metrics.CollectProviderRequest("openai", "suggest_listing", err, start) }()

	prompt := buildListingPrompt(input)
	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL:    input.ImageURL,
					Detail: "low",
				}),
			}),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	requestID := ExtractRequestID(ctx)
	if p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", "suggest_listing"),
			zap.String("model", p.model),
			zap.Int("prompt_length", len(prompt)),
			zap.String("prompt_preview", SanitizePrompt(prompt, true)),
			zap.String("item_id", ExtractItemID(ctx)),
			zap.String("request_id", requestID),
		)
	}

	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		p.logger.Warn("llm_api_error",
			zap.String("operation", "suggest_listing"),
			zap.String("model", p.model),
			zap.Error(err),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return nil, fmt.Errorf("failed to suggest listing: %w", apiErr)
		}
		return nil, fmt.Errorf("failed to suggest listing: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New(ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content
	if p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", "suggest_listing"),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}
	return parseListingResponse(content)
}

func buildListingPrompt(input ListingInput) string {
	var b strings.Builder
	b.WriteString("Draft a listing for the garment in the photo.\n")
	writeField(&b, "Brand", input.Brand)
	writeField(&b, "Category", input.Category)
	writeField(&b, "Size", input.Size)
	writeField(&b, "Condition", input.Condition)
	writeField(&b, "Seller notes", input.Notes)
	fmt.Fprintf(&b, "Keep the title under %d characters and give at most %d lowercase tags.", maxTitleLength, maxTags)
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, sanitizeStringForLogging(value, 2000))
}

func parseListingResponse(content string) (*ListingSuggestion, error) {
	var s ListingSuggestion
	raw := content
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		start := bytes.IndexByte([]byte(raw), '{')
		end := bytes.LastIndexByte([]byte(raw), '}')
		if start == -1 || end <= start {
			return nil, fmt.Errorf("failed to parse listing response: %w", err)
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &s); err != nil {
			return nil, fmt.Errorf("failed to parse listing response: %w", err)
		}
	}

	s.Title = strings.TrimSpace(s.Title)
	if s.Title == "" {
		return nil, errors.New("listing response has no title")
	}
	if r := []rune(s.Title); len(r) > maxTitleLength {
		s.Title = strings.TrimSpace(string(r[:maxTitleLength]))
	}
	s.Description = strings.TrimSpace(s.Description)
	s.Category = strings.ToLower(strings.TrimSpace(s.Category))
	s.Tags = normalizeTags(s.Tags)
	return &s, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool)
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(t, "#")))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == maxTags {
			break
		}
	}
	return out
}
