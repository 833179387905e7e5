package bgremoval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/resale-hub/internal/metrics"
	"go.uber.org/zap"
)

const maxImageBytes = 25 << 20

// Request is one image submitted to the provider
type Request struct {
	ImageURL string
	Size     string
	BgColor  string
}

// ProviderError is a non-2xx answer from the background-removal provider.
type ProviderError struct {
	StatusCode int
	Detail     string
}

func (e *ProviderError) Error() string {
	switch e.StatusCode {
	case http.StatusForbidden:
		return "invalid API key"
	case http.StatusPaymentRequired:
		return "insufficient credits"
	}
	if e.Detail != "" {
		return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("provider returned status %d", e.StatusCode)
}

// Code is the machine-readable per-image error code.
func (e *ProviderError) Code() string {
	switch e.StatusCode {
	case http.StatusForbidden:
		return "invalid_key"
	case http.StatusPaymentRequired:
		return "insufficient_credits"
	case http.StatusTooManyRequests:
		return "provider_rate_limited"
	}
	return "provider_error"
}

// Client calls the remove.bg compatible HTTP API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a provider client. A nil httpClient gets a 60 second timeout.
func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

type removeBody struct {
	ImageURL string `json:"image_url"`
	Size     string `json:"size"`
	Format   string `json:"format"`
	BgColor  string `json:"bg_color,omitempty"`
}

type providerErrorBody struct {
	Errors []struct {
		Title string `json:"title"`
		Code  string `json:"code"`
	} `json:"errors"`
}

// Remove submits one image with apiKey and returns the processed PNG bytes.
func (c *Client) Remove(ctx context.Context, apiKey string, req Request) (png []byte, err error) {
	start := time.Now()
	defer func() { metrics.CollectProviderRequest("removebg", "removebg", err, start) }()

	size := req.Size
	if size == "" {
		size = "auto"
	}
	body, err := json.Marshal(removeBody{ImageURL: req.ImageURL, Size: size, Format: "png", BgColor: req.BgColor})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/removebg", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("X-Api-Key", apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "image/png")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("background removal request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		perr := &ProviderError{StatusCode: resp.StatusCode, Detail: readErrorDetail(resp.Body)}
		c.logger.Debug("background_removal_provider_error",
			zap.Int("status", resp.StatusCode),
			zap.String("detail", perr.Detail),
		)
		return nil, perr
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read processed image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, errors.New("processed image exceeds size limit")
	}
	return data, nil
}

func readErrorDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body providerErrorBody
	if json.Unmarshal(raw, &body) == nil && len(body.Errors) > 0 {
		return body.Errors[0].Title
	}
	return ""
}
