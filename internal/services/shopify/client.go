// Package shopify mirrors inventory items into a Shopify store through the Admin REST API.
package shopify

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
)

// APIVersion is the Admin REST API version the client targets
const APIVersion = "2024-01"

// ErrProductNotFound is returned when the remote product was deleted.
var ErrProductNotFound = errors.New("shopify product not found")

// Product is the subset of the Shopify product resource this service writes
type Product struct {
	ID          int64     `json:"id,omitempty"`
	Title       string    `json:"title"`
	BodyHTML    string    `json:"body_html"`
	Vendor      string    `json:"vendor,omitempty"`
	ProductType string    `json:"product_type,omitempty"`
	Status      string    `json:"status"`
	Tags        string    `json:"tags,omitempty"`
	Variants    []Variant `json:"variants,omitempty"`
	Images      []Image   `json:"images,omitempty"`
}

// Variant carries price and SKU. Each item is unique so there is exactly one.
type Variant struct {
	ID                  int64  `json:"id,omitempty"`
	Price               string `json:"price"`
	SKU                 string `json:"sku"`
	Option1             string `json:"option1,omitempty"`
	InventoryManagement string `json:"inventory_management,omitempty"`
}

// Image references a hosted product photo
type Image struct {
	Src string `json:"src"`
}

type productEnvelope struct {
	Product Product `json:"product"`
}

// APIError is a non-2xx answer from Shopify
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shopify API error (status %d): %s", e.StatusCode, e.Body)
}

// Client is a minimal Admin REST client authenticated by a custom app access token
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for shopDomain (e.g. "thrift.myshopify.com").
// A domain that already carries a scheme is used as is, which tests rely on.
func NewClient(shopDomain, accessToken string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	base := strings.TrimRight(shopDomain, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return &Client{
		baseURL:    base + "/admin/api/" + APIVersion,
		token:      accessToken,
		httpClient: httpClient,
	}
}

// CreateProduct creates p and returns the stored product with its id.
func (c *Client) CreateProduct(ctx context.Context, p Product) (*Product, error) {
	return c.send(ctx, http.MethodPost, "/products.json", p, "create_product")
}

// UpdateProduct replaces the fields of an existing product.
func (c *Client) UpdateProduct(ctx context.Context, p Product) (*Product, error) {
	if p.ID == 0 {
		return nil, errors.New("update requires a product id")
	}
	return c.send(ctx, http.MethodPut, fmt.Sprintf("/products/%d.json", p.ID), p, "update_product")
}

func (c *Client) send(ctx context.Context, method, path string, p Product, op string) (_ *Product, err error) {
	start := time.Now()
	defer func() { metrics.CollectProviderRequest("shopify", op, err, start) }()

	body, err := json.Marshal(productEnvelope{Product: p})
	if err != nil {
		return nil, fmt.Errorf("failed to encode product: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shopify request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read shopify response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrProductNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 500)}
	}

	var env productEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode product: %w", err)
	}
	return &env.Product, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
