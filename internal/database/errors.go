package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("not found")

var pqCodeMessages = map[pq.ErrorCode]string{
	"23505": "A record with the same unique value already exists",
	"23503": "The record references something that does not exist",
	"23502": "A required field is missing",
	"23514": "A field has a value that is not allowed",
	"22P02": "A field has an invalid format",
	"42501": "The database refused the operation",
	"57014": "The database took too long to answer",
}

// UserMessage turns a repository error into a short message that is safe to show
// to a client. Unknown errors collapse into a generic message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
		return "The requested record was not found"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The database took too long to answer"
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if msg, ok := pqCodeMessages[pqErr.Code]; ok {
			return msg
		}
	}
	if strings.Contains(strings.ToLower(err.Error()), "unauthorized") {
		return "Authentication failed"
	}
	return "An unexpected database error occurred"
}

// IsConflict reports whether err is a unique constraint violation.
func IsConflict(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// IsInvalidInput reports whether err was caused by a bad value rather than a server fault.
func IsInvalidInput(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "23503", "23502", "23514", "22P02":
		return true
	}
	return false
}
