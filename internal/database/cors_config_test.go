package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/benvon/resale-hub/internal/models"
)

func TestAllowedOriginsSlice(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"wildcard", "*", []string{"*"}},
		{"comma", "https://shop.example.com, https://admin.example.com", []string{"https://shop.example.com", "https://admin.example.com"}},
		{"dedup", "x, x, y", []string{"x", "y"}},
		{"blank entries", " , a ,, ", []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := AllowedOriginsSlice(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("AllowedOriginsSlice(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("AllowedOriginsSlice(%q)[%d] = %q, want %q", tt.raw, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCorsConfigRepository_SetValidation(t *testing.T) {
	t.Parallel()
	db, _ := newMockDB(t)
	repo := NewCorsConfigRepository(db)

	if err := repo.Set(context.Background(), &models.CorsConfig{AllowedOrigins: " , "}); err == nil {
		t.Error("expected error for empty origins")
	}
	if err := repo.Set(context.Background(), &models.CorsConfig{AllowedOrigins: "*", AllowCredentials: true}); err == nil {
		t.Error("expected error for wildcard with credentials")
	}
}

func TestCorsConfigRepository_SetNormalises(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	repo := NewCorsConfigRepository(db)

	mock.ExpectExec("INSERT INTO cors_config").
		WithArgs("default", "https://a.com,https://b.com", false, 600, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Set(context.Background(), &models.CorsConfig{AllowedOrigins: "https://a.com, https://b.com, https://a.com", MaxAge: 600})
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
}
