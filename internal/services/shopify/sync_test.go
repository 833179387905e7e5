package shopify

import (
	"context"
	"errors"
	"testing"

	"github.com/benvon/resale-hub/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memItems struct {
	items map[uuid.UUID]*models.InventoryItem
}

func (m *memItems) GetByID(_ context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	if it, ok := m.items[id]; ok {
		return it, nil
	}
	return nil, errors.New("not found")
}

func (m *memItems) ListSyncable(context.Context) ([]*models.InventoryItem, error) {
	var out []*models.InventoryItem
	for _, it := range m.items {
		out = append(out, it)
	}
	return out, nil
}

func (m *memItems) SetShopifyProductID(_ context.Context, id uuid.UUID, pid int64) error {
	m.items[id].ShopifyProductID = &pid
	return nil
}

type fakeWriter struct {
	nextID  int64
	created []Product
	updated []Product
	missing map[int64]bool
	failAll bool
}

func (f *fakeWriter) CreateProduct(_ context.Context, p Product) (*Product, error) {
	if f.failAll {
		return nil, errors.New("boom")
	}
	f.nextID++
	p.ID = f.nextID
	f.created = append(f.created, p)
	return &p, nil
}

func (f *fakeWriter) UpdateProduct(_ context.Context, p Product) (*Product, error) {
	if f.missing[p.ID] {
		return nil, ErrProductNotFound
	}
	f.updated = append(f.updated, p)
	return &p, nil
}

func newItem(status models.ItemStatus, productID *int64) *models.InventoryItem {
	return &models.InventoryItem{
		ID:               uuid.New(),
		SKU:              "SKU-" + string(status),
		Title:            "Cord trousers",
		Brand:            "Acme",
		Size:             "W32",
		Condition:        models.ConditionGood,
		Description:      "Soft cord.\n\nSmall <mark> on hem.",
		ImageURLs:        []string{"https://img/1.jpg"},
		ListPrice:        decimal.RequireFromString("28.5"),
		Status:           status,
		ShopifyProductID: productID,
	}
}

func TestProductFromItem(t *testing.T) {
	t.Parallel()
	pid := int64(9)
	p := ProductFromItem(newItem(models.ItemStatusSold, &pid))

	assert.Equal(t, int64(9), p.ID)
	assert.Equal(t, "archived", p.Status)
	assert.Equal(t, "28.50", p.Variants[0].Price)
	assert.Equal(t, "<p>Soft cord.</p><p>Small &lt;mark&gt; on hem.</p>", p.BodyHTML)
	assert.Equal(t, "Acme, W32, good", p.Tags)
	require.Len(t, p.Images, 1)
}

func TestSyncer_SyncItem(t *testing.T) {
	t.Parallel()
	existing := int64(50)
	gone := int64(404)

	tests := []struct {
		name    string
		item    *models.InventoryItem
		want    SyncOutcome
		storeID bool
	}{
		{"unpublished draft skipped", newItem(models.ItemStatusDraft, nil), OutcomeSkipped, false},
		{"new listing created", newItem(models.ItemStatusListed, nil), OutcomeCreated, true},
		{"existing product updated", newItem(models.ItemStatusSold, &existing), OutcomeUpdated, false},
		{"deleted remotely recreated", newItem(models.ItemStatusListed, &gone), OutcomeCreated, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := &memItems{items: map[uuid.UUID]*models.InventoryItem{tt.item.ID: tt.item}}
			writer := &fakeWriter{nextID: 1000, missing: map[int64]bool{404: true}}
			s := NewSyncer(store, writer, nil)

			got, err := s.SyncItem(context.Background(), tt.item.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if tt.storeID {
				require.NotNil(t, tt.item.ShopifyProductID)
				assert.Equal(t, int64(1001), *tt.item.ShopifyProductID)
			}
		})
	}
}

func TestSyncer_SyncAll(t *testing.T) {
	t.Parallel()
	a, b := newItem(models.ItemStatusListed, nil), newItem(models.ItemStatusDraft, nil)
	store := &memItems{items: map[uuid.UUID]*models.InventoryItem{a.ID: a, b.ID: b}}

	counts, err := NewSyncer(store, &fakeWriter{}, nil).SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counts[OutcomeCreated])
	assert.Equal(t, 1, counts[OutcomeSkipped])

	c := newItem(models.ItemStatusListed, nil)
	store = &memItems{items: map[uuid.UUID]*models.InventoryItem{c.ID: c}}
	counts, err = NewSyncer(store, &fakeWriter{failAll: true}, nil).SyncAll(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, counts["failed"])
}
