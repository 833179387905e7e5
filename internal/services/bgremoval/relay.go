package bgremoval

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/benvon/resale-hub/internal/logger"
	"github.com/benvon/resale-hub/internal/metrics"
	"github.com/benvon/resale-hub/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrQuotaExhausted means no key in the pool has quota left this month.
var ErrQuotaExhausted = errors.New("quota_exhausted")

const (
	errCodeExhausted     = "exhausted"
	errMessageExhausted  = "all API keys have reached their monthly limit"
	errCodeRequestFailed = "request_failed"
)

// KeyLister loads keys for allocation
type KeyLister interface {
	ListActive(ctx context.Context) ([]*models.APIKey, error)
}

// UsageStore reads and adds to monthly counters
type UsageStore interface {
	CountsForMonth(ctx context.Context, month string) (map[uuid.UUID]int, error)
	AddUsage(ctx context.Context, month string, increments map[uuid.UUID]int) error
}

// Remover performs one background removal with a specific key
type Remover interface {
	Remove(ctx context.Context, apiKey string, req Request) ([]byte, error)
}

// Options apply to every image in a batch
type Options struct {
	BgColor string
	Size    string
}

// ImageResult is the outcome for one input URL. Results keep the input order.
type ImageResult struct {
	URL       string `json:"url"`
	Success   bool   `json:"success"`
	Image     string `json:"image,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	KeyName   string `json:"key_name,omitempty"`
}

// BatchResult is returned by RemoveBackgrounds
type BatchResult struct {
	Results   []ImageResult `json:"results"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Totals    UsageTotals   `json:"totals"`
}

// UsageReport is the per-key view for the current month
type UsageReport struct {
	Keys   []models.KeyUsage `json:"keys"`
	Totals UsageTotals       `json:"totals"`
}

// Relay spreads background-removal work over a pool of quota-limited keys
type Relay struct {
	keys    KeyLister
	usage   UsageStore
	remover Remover
	logger  *zap.Logger
	now     func() time.Time
}

// RelayOption configures a Relay
type RelayOption func(*Relay)

// WithClock replaces time.Now, which decides the month bucket.
func WithClock(now func() time.Time) RelayOption {
	return func(r *Relay) { r.now = now }
}

// NewRelay creates a relay
func NewRelay(keys KeyLister, usage UsageStore, remover Remover, log *zap.Logger, opts ...RelayOption) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Relay{keys: keys, usage: usage, remover: remover, logger: log, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Relay) loadPool(ctx context.Context, month string) (*Pool, error) {
	keys, err := r.keys.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("load api keys: %w", err)
	}
	counts, err := r.usage.CountsForMonth(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("load usage: %w", err)
	}
	return NewPool(keys, counts, MonthlyLimitPerKey), nil
}

// RemoveBackgrounds processes images in order. It fails as a whole only when the pool
// has no quota at all; otherwise every image gets a result or a per-image error.
// Usage is persisted once, after the last image.
func (r *Relay) RemoveBackgrounds(ctx context.Context, images []string, opts Options) (*BatchResult, error) {
	start := time.Now()
	month := MonthKey(r.now())

	pool, err := r.loadPool(ctx, month)
	if err != nil {
		return nil, err
	}
	if pool.Remaining() == 0 {
		r.logger.Warn("background_removal_quota_exhausted", zap.String("month", month), zap.Int("images", len(images)))
		return nil, ErrQuotaExhausted
	}

	batch := &BatchResult{Results: make([]ImageResult, len(images))}
	for i, imageURL := range images {
		res := ImageResult{URL: imageURL}

		key, ok := pool.Next()
		if !ok {
			res.Error = errMessageExhausted
			res.ErrorCode = errCodeExhausted
			batch.Results[i] = res
			batch.Failed++
			metrics.CollectBackgroundImage(errCodeExhausted)
			continue
		}
		res.KeyName = key.Name

		png, err := r.remover.Remove(ctx, key.Secret, Request{ImageURL: imageURL, Size: opts.Size, BgColor: opts.BgColor})
		if err != nil {
			res.Error, res.ErrorCode = describeFailure(err)
			batch.Results[i] = res
			batch.Failed++
			metrics.CollectBackgroundImage(res.ErrorCode)
			r.logger.Info("background_removal_image_failed",
				zap.Int("index", i),
				zap.String("key", key.Name),
				zap.String("error_code", res.ErrorCode),
				zap.String("error", logger.SanitizeError(err)),
			)
			continue
		}

		pool.Record(key.ID)
		res.Success = true
		res.Image = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
		batch.Results[i] = res
		batch.Succeeded++
		metrics.CollectBackgroundImage("success")
	}

	if inc := pool.Increments(); len(inc) > 0 {
		// A client that disconnects mid-batch has still been charged by the provider.
		persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := r.usage.AddUsage(persistCtx, month, inc); err != nil {
			r.logger.Error("background_removal_usage_persist_failed",
				zap.String("month", month),
				zap.Any("increments", inc),
				zap.Error(err),
			)
		}
	}

	batch.Totals = pool.Totals(month)
	for _, ku := range pool.KeyUsage(logger.MaskSecret) {
		metrics.CollectKeyRemaining(ku.Name, ku.Remaining)
	}

	r.logger.Info("background_removal_batch_completed",
		zap.String("month", month),
		zap.Int("images", len(images)),
		zap.Int("succeeded", batch.Succeeded),
		zap.Int("failed", batch.Failed),
		zap.Int("remaining", batch.Totals.Remaining),
		zap.Duration("duration", time.Since(start)),
	)
	return batch, nil
}

// Usage reports this month's per-key usage for active keys.
func (r *Relay) Usage(ctx context.Context) (*UsageReport, error) {
	month := MonthKey(r.now())
	pool, err := r.loadPool(ctx, month)
	if err != nil {
		return nil, err
	}
	report := &UsageReport{Keys: pool.KeyUsage(logger.MaskSecret), Totals: pool.Totals(month)}
	for _, ku := range report.Keys {
		metrics.CollectKeyRemaining(ku.Name, ku.Remaining)
	}
	return report, nil
}

func describeFailure(err error) (message, code string) {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Error(), perr.Code()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "request cancelled before the image was processed", errCodeRequestFailed
	}
	return "background removal request failed", errCodeRequestFailed
}

var (
	hexColor   = regexp.MustCompile(`^(?:[0-9a-f]{3}|[0-9a-f]{6}|[0-9a-f]{8})$`)
	namedColor = regexp.MustCompile(`^[a-z]{3,20}$`)
)

// NormalizeBgColor accepts a hex colour with or without '#', or a colour name.
// An empty input means keep the transparent background.
func NormalizeBgColor(raw string) (string, error) {
	c := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "#"))
	if c == "" {
		return "", nil
	}
	if hexColor.MatchString(c) || namedColor.MatchString(c) {
		return c, nil
	}
	return "", fmt.Errorf("bg_color %q is not a hex colour or colour name", raw)
}
