// Package payments creates hosted checkout sessions with Stripe.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/benvon/resale-hub/internal/metrics"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
)

// DefaultStripeBaseURL is the Stripe REST API root
const DefaultStripeBaseURL = "https://api.stripe.com/v1"

// ErrNotConfigured is returned when no secret key is set.
var ErrNotConfigured = errors.New("payments are not configured")

// LineItem is one unique garment being paid for
type LineItem struct {
	Name     string
	ImageURL string
	Amount   decimal.Decimal
}

// CheckoutRequest describes a hosted checkout
type CheckoutRequest struct {
	Currency          string
	Items             []LineItem
	Shipping          decimal.Decimal
	SuccessURL        string
	CancelURL         string
	ClientReferenceID string
	Metadata          map[string]string
}

// CheckoutSession is the subset of the Stripe session the storefront needs
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Error is a non-2xx answer from Stripe
type Error struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("stripe error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// StripeClient talks to the Checkout Sessions API with a bearer secret key
type StripeClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewStripeClient creates a client. Requests are authenticated by an oauth2 transport
// carrying the secret key as a static bearer token.
func NewStripeClient(ctx context.Context, secretKey, baseURL string) *StripeClient {
	if baseURL == "" {
		baseURL = DefaultStripeBaseURL
	}
	if secretKey == "" {
		return &StripeClient{baseURL: strings.TrimRight(baseURL, "/")}
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: secretKey, TokenType: "Bearer"})
	httpClient := oauth2.NewClient(ctx, src)
	httpClient.Timeout = 30 * time.Second
	return &StripeClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Enabled reports whether a secret key was supplied.
func (c *StripeClient) Enabled() bool {
	return c.httpClient != nil
}

// MinorUnits converts an amount to the integer smallest-unit value Stripe expects.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func encodeCheckout(req CheckoutRequest) url.Values {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	if req.ClientReferenceID != "" {
		form.Set("client_reference_id", req.ClientReferenceID)
	}
	currency := strings.ToLower(req.Currency)
	for i, item := range req.Items {
		prefix := "line_items[" + strconv.Itoa(i) + "]"
		form.Set(prefix+"[quantity]", "1")
		form.Set(prefix+"[price_data][currency]", currency)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(MinorUnits(item.Amount), 10))
		form.Set(prefix+"[price_data][product_data][name]", item.Name)
		if item.ImageURL != "" {
			form.Set(prefix+"[price_data][product_data][images][0]", item.ImageURL)
		}
	}
	form.Set("shipping_options[0][shipping_rate_data][type]", "fixed_amount")
	form.Set("shipping_options[0][shipping_rate_data][display_name]", shippingLabel(req.Shipping))
	form.Set("shipping_options[0][shipping_rate_data][fixed_amount][amount]", strconv.FormatInt(MinorUnits(req.Shipping), 10))
	form.Set("shipping_options[0][shipping_rate_data][fixed_amount][currency]", currency)
	for k, v := range req.Metadata {
		form.Set("metadata["+k+"]", v)
	}
	return form
}

func shippingLabel(amount decimal.Decimal) string {
	if amount.IsZero() {
		return "Free shipping"
	}
	return "Standard shipping"
}

// CreateCheckoutSession creates a hosted payment page and returns its URL.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (_ *CheckoutSession, err error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}
	if len(req.Items) == 0 {
		return nil, errors.New("checkout requires at least one item")
	}
	start := time.Now()
	defer func() { metrics.CollectProviderRequest("stripe", "create_checkout_session", err, start) }()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout/sessions", strings.NewReader(encodeCheckout(req).Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build checkout request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if req.ClientReferenceID != "" {
		httpReq.Header.Set("Idempotency-Key", "checkout-"+req.ClientReferenceID)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("checkout request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read checkout response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(body, &payload)
		return nil, &Error{StatusCode: resp.StatusCode, Type: payload.Error.Type, Message: payload.Error.Message}
	}

	var session CheckoutSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	if session.URL == "" {
		return nil, errors.New("checkout session has no url")
	}
	return &session, nil
}
