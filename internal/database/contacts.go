package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/resale-hub/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ContactRepository handles contact database operations
type ContactRepository struct {
	db *DB
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *DB) *ContactRepository {
	return &ContactRepository{db: db}
}

const contactColumns = `id, name, email, phone, kind, notes, tags, created_at, updated_at`

func scanContact(s rowScanner) (*models.Contact, error) {
	c := &models.Contact{}
	err := s.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Kind, &c.Notes, pq.Array(&c.Tags), &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return c, nil
}

// Create inserts a contact
func (r *ContactRepository) Create(ctx context.Context, c *models.Contact) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	now := time.Now()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO contacts (id, name, email, phone, kind, notes, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, c.ID, c.Name, c.Email, c.Phone, c.Kind, c.Notes, pq.Array(c.Tags), now, now).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

// GetByID retrieves a contact by ID
func (r *ContactRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	c, err := scanContact(r.db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return c, nil
}

// Search returns contacts whose name or email contains q (case-insensitive),
// optionally restricted to one kind. An empty q lists everything.
func (r *ContactRepository) Search(ctx context.Context, q string, kind *models.ContactKind) ([]*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE 1=1`
	var args []any
	argIndex := 1
	if q != "" {
		query += fmt.Sprintf(" AND (name ILIKE $%d OR email ILIKE $%d)", argIndex, argIndex)
		args = append(args, "%"+q+"%")
		argIndex++
	}
	if kind != nil {
		query += fmt.Sprintf(" AND kind = $%d", argIndex)
		args = append(args, string(*kind))
	}
	query += " ORDER BY lower(name)"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	contacts := []*models.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contacts: %w", err)
	}
	return contacts, nil
}

// Update saves a contact
func (r *ContactRepository) Update(ctx context.Context, c *models.Contact) error {
	if c.Tags == nil {
		c.Tags = []string{}
	}
	err := r.db.QueryRowContext(ctx, `
		UPDATE contacts
		SET name = $2, email = $3, phone = $4, kind = $5, notes = $6, tags = $7, updated_at = $8
		WHERE id = $1
		RETURNING updated_at
	`, c.ID, c.Name, c.Email, c.Phone, c.Kind, c.Notes, pq.Array(c.Tags), time.Now()).Scan(&c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	return nil
}

// Delete deletes a contact by ID
func (r *ContactRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.db, "contacts", id)
}
