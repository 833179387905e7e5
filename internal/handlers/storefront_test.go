package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/benvon/resale-hub/internal/cart"
	"github.com/benvon/resale-hub/internal/models"
	"github.com/benvon/resale-hub/internal/services/payments"
	"github.com/benvon/resale-hub/internal/services/storefront"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCheckout struct {
	mu       sync.Mutex
	disabled bool
	err      error
	requests []payments.CheckoutRequest
}

func (f *fakeCheckout) Enabled() bool { return !f.disabled }

func (f *fakeCheckout) CreateCheckoutSession(_ context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, req)
	return &payments.CheckoutSession{ID: "cs_test_123", URL: "https://checkout.stripe.com/c/pay/cs_test_123"}, nil
}

type shopFixture struct {
	router *mux.Router
	inv    *fakeInventory
	config *fakeStorefrontConfig
	pay    *fakeCheckout
}

func newShopFixture(t *testing.T) *shopFixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &shopFixture{inv: newFakeInventory(), config: &fakeStorefrontConfig{}, pay: &fakeCheckout{}}
	svc := storefront.NewService(f.inv, f.config, cart.NewStore(client, 0), f.pay,
		"https://shop.example.com/success", "https://shop.example.com/cart", nil)
	h := NewShopHandler(svc, f.config, nil)

	f.router = mux.NewRouter()
	h.RegisterRoutes(f.router.PathPrefix("/api/v1/shop").Subrouter())
	h.RegisterAdminRoutes(f.router.PathPrefix("/api/v1/storefront").Subrouter())
	return f
}

func (f *shopFixture) listed(title, price string) *models.InventoryItem {
	return f.inv.seed(models.InventoryItem{
		SKU: title, Title: title, Status: models.ItemStatusListed,
		Cost: decimal.NewFromInt(5), ListPrice: decimal.RequireFromString(price),
		ImageURLs: []string{"https://cdn.example.com/" + title + ".jpg"},
	})
}

func (f *shopFixture) newCart(t *testing.T) string {
	t.Helper()
	w := serve(f.router, httptest.NewRequest(http.MethodPost, "/api/v1/shop/cart", nil))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var view struct {
		ID string `json:"id"`
	}
	decodeData(t, w, &view)
	return view.ID
}

type cartJSON struct {
	Items []struct {
		ItemID uuid.UUID `json:"item_id"`
	} `json:"items"`
	Currency string `json:"currency"`
	Subtotal string `json:"subtotal"`
	Shipping string `json:"shipping"`
	Total    string `json:"total"`
}

func TestShopHandler_Catalog(t *testing.T) {
	t.Parallel()
	f := newShopFixture(t)
	f.listed("coat", "60")
	f.listed("boots", "45.5")
	draft := f.inv.seed(models.InventoryItem{SKU: "draft", Title: "draft", Status: models.ItemStatusDraft})

	w := serve(f.router, httptest.NewRequest(http.MethodGet, "/api/v1/shop/products", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var page Page[map[string]any]
	decodeData(t, w, &page)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "45.50", page.Items[0]["price"])
	assert.NotContains(t, page.Items[0], "cost")

	w = serve(f.router, httptest.NewRequest(http.MethodGet, "/api/v1/shop/products?q=coat", nil))
	decodeData(t, w, &page)
	assert.Equal(t, 1, page.Total)

	w = serve(f.router, httptest.NewRequest(http.MethodGet, "/api/v1/shop/products/"+draft.ID.String(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestShopHandler_CartAndCheckout(t *testing.T) {
	t.Parallel()
	f := newShopFixture(t)

	w := serve(f.router, newTestRequest(http.MethodPut, "/api/v1/storefront/config", map[string]any{
		"shop_name": "Second Spin", "currency": "GBP", "shipping_flat": "4.50", "free_shipping_over": "100",
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	coat := f.listed("coat", "60")
	boots := f.listed("boots", "45")
	draft := f.inv.seed(models.InventoryItem{SKU: "draft", Title: "draft", Status: models.ItemStatusDraft})

	id := f.newCart(t)
	base := "/api/v1/shop/cart/" + id

	var view cartJSON
	w = serve(f.router, httptest.NewRequest(http.MethodPut, base+"/items/"+coat.ID.String(), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decodeData(t, w, &view)
	assert.Equal(t, "gbp", view.Currency)
	assert.Equal(t, "60.00", view.Subtotal)
	assert.Equal(t, "4.50", view.Shipping)
	assert.Equal(t, "64.50", view.Total)

	w = serve(f.router, httptest.NewRequest(http.MethodPut, base+"/items/"+draft.ID.String(), nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "item_unavailable", decodeEnvelope(t, w)["error"])

	w = serve(f.router, httptest.NewRequest(http.MethodPut, base+"/items/"+boots.ID.String(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &view)
	assert.Len(t, view.Items, 2)
	assert.Equal(t, "0.00", view.Shipping, "free shipping over 100")

	// boots sells elsewhere before checkout
	boots.Status = models.ItemStatusSold
	require.NoError(t, f.inv.Update(t.Context(), boots))

	w = serve(f.router, httptest.NewRequest(http.MethodPost, base+"/checkout", nil))
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	env := decodeEnvelope(t, w)
	details, ok := env["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{boots.ID.String()}, details["item_ids"])

	w = serve(f.router, httptest.NewRequest(http.MethodGet, base, nil))
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &view)
	require.Len(t, view.Items, 1, "unavailable lines are pruned")
	assert.Equal(t, coat.ID, view.Items[0].ItemID)

	w = serve(f.router, httptest.NewRequest(http.MethodPost, base+"/checkout", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result storefront.CheckoutResult
	decodeData(t, w, &result)
	assert.Equal(t, "cs_test_123", result.SessionID)
	assert.Equal(t, "64.50", result.Total)
	assert.Equal(t, "gbp", result.Currency)

	require.Len(t, f.pay.requests, 1)
	assert.Equal(t, id, f.pay.requests[0].ClientReferenceID)
	assert.True(t, f.pay.requests[0].Shipping.Equal(decimal.RequireFromString("4.5")))

	stored, err := f.inv.GetByID(t.Context(), coat.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusReserved, stored.Status)

	w = serve(f.router, httptest.NewRequest(http.MethodGet, base, nil))
	assert.Equal(t, http.StatusNotFound, w.Code, "cart is removed after checkout")
}

func TestShopHandler_CheckoutErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		setup      func(f *shopFixture) string
		wantStatus int
		wantType   string
	}{
		{
			name:       "unknown cart",
			setup:      func(*shopFixture) string { return uuid.NewString() },
			wantStatus: http.StatusNotFound,
			wantType:   "not_found",
		},
		{
			name:       "empty cart",
			setup:      func(f *shopFixture) string { return "" },
			wantStatus: http.StatusBadRequest,
			wantType:   "empty_cart",
		},
		{
			name: "payments disabled",
			setup: func(f *shopFixture) string {
				f.pay.disabled = true
				return ""
			},
			wantStatus: http.StatusServiceUnavailable,
			wantType:   "checkout_unavailable",
		},
		{
			name: "provider rejects",
			setup: func(f *shopFixture) string {
				f.pay.err = &payments.Error{StatusCode: 400, Type: "invalid_request_error", Message: "bad currency"}
				return ""
			},
			wantStatus: http.StatusBadGateway,
			wantType:   "payment_provider_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newShopFixture(t)
			id := f.newCart(t)
			if override := tt.setup(f); override != "" {
				id = override
			} else if tt.wantType != "empty_cart" {
				item := f.listed("scarf", "12")
				w := serve(f.router, httptest.NewRequest(http.MethodPut, "/api/v1/shop/cart/"+id+"/items/"+item.ID.String(), nil))
				require.Equal(t, http.StatusOK, w.Code)
			}

			w := serve(f.router, httptest.NewRequest(http.MethodPost, "/api/v1/shop/cart/"+id+"/checkout", nil))
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantType, decodeEnvelope(t, w)["error"])
		})
	}
}

func TestShopHandler_Config(t *testing.T) {
	t.Parallel()
	f := newShopFixture(t)

	w := serve(f.router, httptest.NewRequest(http.MethodGet, "/api/v1/shop/config", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var cfg models.StorefrontConfig
	decodeData(t, w, &cfg)
	assert.Equal(t, "usd", cfg.Currency)

	for _, body := range []map[string]any{
		{"shop_name": "x", "currency": "pounds"},
		{"shop_name": "x", "currency": "gbp", "shipping_flat": "-1"},
		{"currency": "gbp"},
	} {
		w = serve(f.router, newTestRequest(http.MethodPut, "/api/v1/storefront/config", body))
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %v", body)
	}
}
