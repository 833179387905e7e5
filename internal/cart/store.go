// Package cart keeps storefront carts in Redis.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/resale-hub/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long an untouched cart survives.
const DefaultTTL = 7 * 24 * time.Hour

const keyPrefix = "resalehub:cart:"

// ErrNotFound is returned for unknown or expired carts.
var ErrNotFound = errors.New("cart not found")

// Store persists carts as JSON values with a sliding TTL
type Store struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewStore creates a cart store. A non-positive ttl uses DefaultTTL.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl, now: time.Now}
}

func key(id uuid.UUID) string {
	return keyPrefix + id.String()
}

// Create stores a new empty cart.
func (s *Store) Create(ctx context.Context) (*models.Cart, error) {
	now := s.now().UTC()
	c := &models.Cart{ID: uuid.New(), Items: []models.CartItem{}, CreatedAt: now, UpdatedAt: now}
	if err := s.write(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get loads a cart.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	raw, err := s.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	c := &models.Cart{}
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	if c.Items == nil {
		c.Items = []models.CartItem{}
	}
	return c, nil
}

// Save writes the cart and restarts its TTL. The cart must already exist.
func (s *Store) Save(ctx context.Context, c *models.Cart) error {
	exists, err := s.client.Exists(ctx, key(c.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check cart: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	c.UpdatedAt = s.now().UTC()
	return s.write(ctx, c)
}

// Delete removes a cart. Deleting a missing cart is not an error.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func (s *Store) write(ctx context.Context, c *models.Cart) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := s.client.Set(ctx, key(c.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}
