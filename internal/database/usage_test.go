package database

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageRepository_CountsForMonth(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	repo := NewUsageRepository(db)

	a, b := uuid.New(), uuid.New()
	mock.ExpectQuery("SELECT api_key_id, count FROM api_key_usage WHERE month").
		WithArgs("2026-10").
		WillReturnRows(sqlmock.NewRows([]string{"api_key_id", "count"}).
			AddRow(a.String(), 49).
			AddRow(b.String(), 12))

	counts, err := repo.CountsForMonth(context.Background(), "2026-10")
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int{a: 49, b: 12}, counts)
}

func TestUsageRepository_AddUsage_Additive(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	repo := NewUsageRepository(db)

	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	upsert := regexp.QuoteMeta("count = api_key_usage.count + EXCLUDED.count")

	mock.ExpectBegin()
	mock.ExpectExec(upsert).WithArgs(a, "2026-10", 2, sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsert).WithArgs(b, "2026-10", 1, sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.AddUsage(context.Background(), "2026-10", map[uuid.UUID]int{b: 1, a: 2, uuid.New(): 0})
	require.NoError(t, err)
}

func TestUsageRepository_AddUsage_NothingToWrite(t *testing.T) {
	t.Parallel()
	db, _ := newMockDB(t)
	repo := NewUsageRepository(db)

	require.NoError(t, repo.AddUsage(context.Background(), "2026-10", nil))
	require.NoError(t, repo.AddUsage(context.Background(), "2026-10", map[uuid.UUID]int{uuid.New(): 0}))
}

func TestUsageRepository_AddUsage_RollsBackOnError(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	repo := NewUsageRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO api_key_usage").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.AddUsage(context.Background(), "2026-10", map[uuid.UUID]int{uuid.New(): 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record usage")
}
