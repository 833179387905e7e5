package database

import (
	"context"
	"time"

	"github.com/benvon/resale-hub/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// APIKeyRepositoryInterface defines the key pool operations used by the relay and admin handlers
type APIKeyRepositoryInterface interface {
	Create(ctx context.Context, key *models.APIKey) error
	ListActive(ctx context.Context) ([]*models.APIKey, error)
	List(ctx context.Context) ([]*models.APIKey, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.APIKey, error)
	Update(ctx context.Context, key *models.APIKey) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// UsageRepositoryInterface defines monthly usage counter operations
type UsageRepositoryInterface interface {
	CountsForMonth(ctx context.Context, month string) (map[uuid.UUID]int, error)
	AddUsage(ctx context.Context, month string, increments map[uuid.UUID]int) error
}

// InventoryRepositoryInterface defines inventory operations
type InventoryRepositoryInterface interface {
	Create(ctx context.Context, item *models.InventoryItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.InventoryItem, error)
	List(ctx context.Context, filter InventoryFilter, page, pageSize int) ([]*models.InventoryItem, int, error)
	SoldBetween(ctx context.Context, from, to time.Time) ([]*models.InventoryItem, error)
	ListSyncable(ctx context.Context) ([]*models.InventoryItem, error)
	Update(ctx context.Context, item *models.InventoryItem) error
	MarkSold(ctx context.Context, id uuid.UUID, price decimal.Decimal, channel string, at time.Time) (*models.InventoryItem, error)
	Reserve(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	Release(ctx context.Context, ids []uuid.UUID) error
	SetShopifyProductID(ctx context.Context, id uuid.UUID, productID int64) error
	SetDescription(ctx context.Context, id uuid.UUID, description string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ExpenseRepositoryInterface defines expense operations
type ExpenseRepositoryInterface interface {
	Create(ctx context.Context, e *models.Expense) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Expense, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]*models.Expense, error)
	Update(ctx context.Context, e *models.Expense) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CapitalAccountRepositoryInterface defines capital account operations
type CapitalAccountRepositoryInterface interface {
	Create(ctx context.Context, a *models.CapitalAccount) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.CapitalAccount, error)
	List(ctx context.Context) ([]*models.CapitalAccount, error)
	Update(ctx context.Context, a *models.CapitalAccount) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TaskRepositoryInterface defines task board operations
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	ListPaginated(ctx context.Context, status *models.TaskStatus, page, pageSize int) ([]*models.Task, int, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// GoalRepositoryInterface defines goal operations
type GoalRepositoryInterface interface {
	Create(ctx context.Context, g *models.Goal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Goal, error)
	List(ctx context.Context) ([]*models.Goal, error)
	Update(ctx context.Context, g *models.Goal) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ContactRepositoryInterface defines contact operations
type ContactRepositoryInterface interface {
	Create(ctx context.Context, c *models.Contact) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contact, error)
	Search(ctx context.Context, q string, kind *models.ContactKind) ([]*models.Contact, error)
	Update(ctx context.Context, c *models.Contact) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// StorefrontConfigRepositoryInterface defines storefront config operations
type StorefrontConfigRepositoryInterface interface {
	Get(ctx context.Context) (*models.StorefrontConfig, error)
	Set(ctx context.Context, c *models.StorefrontConfig) error
}

// Ensure concrete types implement the interfaces
var (
	_ APIKeyRepositoryInterface           = (*APIKeyRepository)(nil)
	_ UsageRepositoryInterface            = (*UsageRepository)(nil)
	_ InventoryRepositoryInterface        = (*InventoryRepository)(nil)
	_ ExpenseRepositoryInterface          = (*ExpenseRepository)(nil)
	_ CapitalAccountRepositoryInterface   = (*CapitalAccountRepository)(nil)
	_ TaskRepositoryInterface             = (*TaskRepository)(nil)
	_ GoalRepositoryInterface             = (*GoalRepository)(nil)
	_ ContactRepositoryInterface          = (*ContactRepository)(nil)
	_ StorefrontConfigRepositoryInterface = (*StorefrontConfigRepository)(nil)
)
