package handlers

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/benvon/resale-hub/internal/database"
	"github.com/benvon/resale-hub/internal/models"
	"github.com/benvon/resale-hub/internal/queue"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var errStoreDown = errors.New("store down")

// memStore is a tiny id-keyed table shared by the fakes below.
type memStore[T any] struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*T
	err  error
}

func newMemStore[T any]() *memStore[T] {
	return &memStore[T]{rows: make(map[uuid.UUID]*T)}
}

func (s *memStore[T]) put(id uuid.UUID, v *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	cp := *v
	s.rows[id] = &cp
	return nil
}

func (s *memStore[T]) get(id uuid.UUID) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	v, ok := s.rows[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *memStore[T]) update(id uuid.UUID, v *T) error {
	if _, err := s.get(id); err != nil {
		return err
	}
	return s.put(id, v)
}

func (s *memStore[T]) delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.rows[id]; !ok {
		return database.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *memStore[T]) all() ([]*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*T, 0, len(s.rows))
	for _, v := range s.rows {
		cp := *v
		out = append(out, &cp)
	}
	return out, nil
}

type fakeInventory struct {
	*memStore[models.InventoryItem]
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{newMemStore[models.InventoryItem]()}
}

func (f *fakeInventory) Create(_ context.Context, item *models.InventoryItem) error {
	item.CreatedAt, item.UpdatedAt = time.Now(), time.Now()
	return f.put(item.ID, item)
}

func (f *fakeInventory) GetByID(_ context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	return f.get(id)
}

func (f *fakeInventory) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.InventoryItem, error) {
	var out []*models.InventoryItem
	for _, id := range ids {
		if it, err := f.get(id); err == nil {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeInventory) List(_ context.Context, filter database.InventoryFilter, page, pageSize int) ([]*models.InventoryItem, int, error) {
	rows, err := f.all()
	if err != nil {
		return nil, 0, err
	}
	var out []*models.InventoryItem
	for _, it := range rows {
		if filter.Status != nil && it.Status != *filter.Status {
			continue
		}
		if filter.Category != "" && it.Category != filter.Category {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(it.Title), strings.ToLower(filter.Query)) {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	total := len(out)
	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)
	return out[start:end], total, nil
}

func (f *fakeInventory) SoldBetween(_ context.Context, from, to time.Time) ([]*models.InventoryItem, error) {
	rows, err := f.all()
	if err != nil {
		return nil, err
	}
	var out []*models.InventoryItem
	for _, it := range rows {
		if it.Status == models.ItemStatusSold && it.SoldAt != nil && !it.SoldAt.Before(from) && it.SoldAt.Before(to) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeInventory) ListSyncable(context.Context) ([]*models.InventoryItem, error) {
	return f.all()
}

func (f *fakeInventory) Update(_ context.Context, item *models.InventoryItem) error {
	return f.update(item.ID, item)
}

func (f *fakeInventory) MarkSold(_ context.Context, id uuid.UUID, price decimal.Decimal, channel string, at time.Time) (*models.InventoryItem, error) {
	item, err := f.get(id)
	if err != nil {
		return nil, err
	}
	item.MarkSold(price, channel, at)
	return item, f.put(id, item)
}

func (f *fakeInventory) Reserve(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var missing []uuid.UUID
	for _, id := range ids {
		if item, err := f.get(id); err != nil || item.Status != models.ItemStatusListed {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return missing, nil
	}
	for _, id := range ids {
		item, err := f.get(id)
		if err != nil {
			return nil, err
		}
		item.Status = models.ItemStatusReserved
		if err := f.put(id, item); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (f *fakeInventory) Release(_ context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		item, err := f.get(id)
		if err != nil || item.Status != models.ItemStatusReserved {
			continue
		}
		item.Status = models.ItemStatusListed
		if err := f.put(id, item); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeInventory) SetShopifyProductID(_ context.Context, id uuid.UUID, productID int64) error {
	item, err := f.get(id)
	if err != nil {
		return err
	}
	item.ShopifyProductID = &productID
	return f.put(id, item)
}

func (f *fakeInventory) SetDescription(_ context.Context, id uuid.UUID, description string) error {
	item, err := f.get(id)
	if err != nil {
		return err
	}
	item.Description = description
	return f.put(id, item)
}

func (f *fakeInventory) Delete(_ context.Context, id uuid.UUID) error {
	return f.delete(id)
}

func (f *fakeInventory) seed(item models.InventoryItem) *models.InventoryItem {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.Condition == "" {
		item.Condition = models.ConditionGood
	}
	_ = f.put(item.ID, &item)
	return &item
}

type fakeEnqueuer struct {
	mu   sync.Mutex
	jobs []*queue.Job
	err  error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, job *queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeEnqueuer) types() []queue.JobType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]queue.JobType, 0, len(f.jobs))
	for _, j := range f.jobs {
		out = append(out, j.Type)
	}
	return out
}

type fakeTasks struct{ *memStore[models.Task] }

func (f fakeTasks) Create(_ context.Context, t *models.Task) error { return f.put(t.ID, t) }
func (f fakeTasks) GetByID(_ context.Context, id uuid.UUID) (*models.Task, error) {
	return f.get(id)
}
func (f fakeTasks) Update(_ context.Context, t *models.Task) error { return f.update(t.ID, t) }
func (f fakeTasks) Delete(_ context.Context, id uuid.UUID) error   { return f.delete(id) }
func (f fakeTasks) ListPaginated(_ context.Context, status *models.TaskStatus, page, pageSize int) ([]*models.Task, int, error) {
	rows, err := f.all()
	if err != nil {
		return nil, 0, err
	}
	var out []*models.Task
	for _, t := range rows {
		if status == nil || t.Status == *status {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	total := len(out)
	start := min((page-1)*pageSize, total)
	return out[start:min(start+pageSize, total)], total, nil
}

type fakeGoals struct{ *memStore[models.Goal] }

func (f fakeGoals) Create(_ context.Context, g *models.Goal) error { return f.put(g.ID, g) }
func (f fakeGoals) GetByID(_ context.Context, id uuid.UUID) (*models.Goal, error) {
	return f.get(id)
}
func (f fakeGoals) List(context.Context) ([]*models.Goal, error)   { return f.all() }
func (f fakeGoals) Update(_ context.Context, g *models.Goal) error { return f.update(g.ID, g) }
func (f fakeGoals) Delete(_ context.Context, id uuid.UUID) error   { return f.delete(id) }

type fakeContacts struct{ *memStore[models.Contact] }

func (f fakeContacts) Create(_ context.Context, c *models.Contact) error { return f.put(c.ID, c) }
func (f fakeContacts) GetByID(_ context.Context, id uuid.UUID) (*models.Contact, error) {
	return f.get(id)
}
func (f fakeContacts) Update(_ context.Context, c *models.Contact) error { return f.update(c.ID, c) }
func (f fakeContacts) Delete(_ context.Context, id uuid.UUID) error      { return f.delete(id) }
func (f fakeContacts) Search(_ context.Context, q string, kind *models.ContactKind) ([]*models.Contact, error) {
	rows, err := f.all()
	if err != nil {
		return nil, err
	}
	q = strings.ToLower(q)
	out := []*models.Contact{}
	for _, c := range rows {
		if kind != nil && c.Kind != *kind {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(c.Name), q) && !strings.Contains(strings.ToLower(c.Email), q) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeExpenses struct{ *memStore[models.Expense] }

func (f fakeExpenses) Create(_ context.Context, e *models.Expense) error { return f.put(e.ID, e) }
func (f fakeExpenses) GetByID(_ context.Context, id uuid.UUID) (*models.Expense, error) {
	return f.get(id)
}
func (f fakeExpenses) Update(_ context.Context, e *models.Expense) error { return f.update(e.ID, e) }
func (f fakeExpenses) Delete(_ context.Context, id uuid.UUID) error      { return f.delete(id) }
func (f fakeExpenses) ListBetween(_ context.Context, from, to time.Time) ([]*models.Expense, error) {
	rows, err := f.all()
	if err != nil {
		return nil, err
	}
	out := []*models.Expense{}
	for _, e := range rows {
		if !e.Date.Before(from) && e.Date.Before(to) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type fakeCapital struct {
	*memStore[models.CapitalAccount]
}

func (f fakeCapital) Create(_ context.Context, a *models.CapitalAccount) error { return f.put(a.ID, a) }
func (f fakeCapital) GetByID(_ context.Context, id uuid.UUID) (*models.CapitalAccount, error) {
	return f.get(id)
}
func (f fakeCapital) List(context.Context) ([]*models.CapitalAccount, error) { return f.all() }
func (f fakeCapital) Update(_ context.Context, a *models.CapitalAccount) error {
	return f.update(a.ID, a)
}
func (f fakeCapital) Delete(_ context.Context, id uuid.UUID) error { return f.delete(id) }

type fakeKeys struct{ *memStore[models.APIKey] }

func (f fakeKeys) Create(_ context.Context, k *models.APIKey) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return f.put(k.ID, k)
}
func (f fakeKeys) GetByID(_ context.Context, id uuid.UUID) (*models.APIKey, error) {
	return f.get(id)
}
func (f fakeKeys) List(context.Context) ([]*models.APIKey, error) { return f.all() }
func (f fakeKeys) ListActive(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := f.all()
	if err != nil {
		return nil, err
	}
	var out []*models.APIKey
	for _, k := range rows {
		if k.Active {
			out = append(out, k)
		}
	}
	return out, nil
}
func (f fakeKeys) Update(_ context.Context, k *models.APIKey) error { return f.update(k.ID, k) }
func (f fakeKeys) Delete(_ context.Context, id uuid.UUID) error     { return f.delete(id) }

type fakeStorefrontConfig struct {
	mu  sync.Mutex
	cfg *models.StorefrontConfig
}

func (f *fakeStorefrontConfig) Get(context.Context) (*models.StorefrontConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cfg == nil {
		return models.DefaultStorefrontConfig(), nil
	}
	cp := *f.cfg
	return &cp, nil
}

func (f *fakeStorefrontConfig) Set(_ context.Context, c *models.StorefrontConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.UpdatedAt = time.Now()
	cp := *c
	f.cfg = &cp
	return nil
}

var (
	_ database.InventoryRepositoryInterface        = (*fakeInventory)(nil)
	_ database.TaskRepositoryInterface             = fakeTasks{}
	_ database.GoalRepositoryInterface             = fakeGoals{}
	_ database.ContactRepositoryInterface          = fakeContacts{}
	_ database.ExpenseRepositoryInterface          = fakeExpenses{}
	_ database.CapitalAccountRepositoryInterface   = fakeCapital{}
	_ database.APIKeyRepositoryInterface           = fakeKeys{}
	_ database.StorefrontConfigRepositoryInterface = (*fakeStorefrontConfig)(nil)
)
