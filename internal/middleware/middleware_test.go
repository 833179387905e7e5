package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/benvon/resale-hub/internal/models"
	"github.com/benvon/resale-hub/internal/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.False(t, body.Success)
	return body
}

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.ErrorLevel)
	h := ErrorHandler(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decodeError(t, rr)
	assert.Equal(t, "internal_error", body.Error)
	assert.NotContains(t, body.Message, "boom")
	assert.Empty(t, body.Details)
	assert.Equal(t, 1, logs.FilterMessage("handler_panic").Len())

	rr = httptest.NewRecorder()
	ErrorHandler(zap.NewNop())(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestErrorHandler_EchoesRequestID(t *testing.T) {
	t.Parallel()

	h := RequestID(ErrorHandler(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(errors.New("nil map"))
	})))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decodeError(t, rr)
	assert.Equal(t, "req-42", body.Details["request_id"])
}

type fakeVerifier struct{}

func (fakeVerifier) Verify(_ context.Context, token string) (*models.Operator, error) {
	if token == "good" {
		return &models.Operator{Sub: "op-1", Email: "owner@example.com"}, nil
	}
	return nil, errors.New("bad signature")
}

func TestAuth(t *testing.T) {
	t.Parallel()

	var seen *models.Operator
	h := Auth(fakeVerifier{}, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = request.OperatorFromContext(r)
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusNoContent},
		{"lowercase scheme", "bearer good", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, "unauthorized", decodeError(t, rr).Error)
			}
		})
	}
	require.NotNil(t, seen)
	assert.Equal(t, "op-1", seen.Sub)
}

func TestContentType(t *testing.T) {
	t.Parallel()

	h := ContentType(zap.NewNop())(okHandler())
	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		want        int
	}{
		{"get without header", http.MethodGet, "", "", http.StatusOK},
		{"json post", http.MethodPost, "application/json", "{}", http.StatusOK},
		{"json with charset", http.MethodPut, "application/json; charset=utf-8", "{}", http.StatusOK},
		{"bodyless post", http.MethodPost, "", "", http.StatusOK},
		{"body without header", http.MethodPost, "", "{}", http.StatusBadRequest},
		{"form post", http.MethodPatch, "application/x-www-form-urlencoded", "a=b", http.StatusUnsupportedMediaType},
		{"json lookalike", http.MethodPost, "application/jsonp", "{}", http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(tt.method, "/x", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestMaxRequestSize(t *testing.T) {
	t.Parallel()

	var readErr error
	h := MaxRequestSize(8, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		_, readErr = r.Body.Read(buf)
		for readErr == nil {
			_, readErr = r.Body.Read(buf)
		}
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 32))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 32)))
	req.ContentLength = -1
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var maxErr *http.MaxBytesError
	assert.True(t, errors.As(readErr, &maxErr))
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	var got string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = request.RequestID(r.Context())
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", got)
	assert.Equal(t, "abc-123", rr.Header().Get(RequestIDHeader))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, got, 36)
	assert.Equal(t, got, rr.Header().Get(RequestIDHeader))
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	SecurityHeaders(true)(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Empty(t, rr.Header().Get("Strict-Transport-Security"), "no HSTS over plain http")
}

func TestLoggingAndAudit(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	status := http.StatusCreated
	h := Logging(logger)(Audit(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/background/keys", nil))
	require.Equal(t, 1, logs.FilterMessage("http_request").Len())
	assert.Equal(t, int64(http.StatusCreated), logs.FilterMessage("http_request").All()[0].ContextMap()["status_code"])
	assert.Equal(t, 1, logs.FilterMessage("admin_change").Len())

	status = http.StatusForbidden
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil))
	assert.Equal(t, 1, logs.FilterMessage("security_event").Len())

	status = http.StatusTooManyRequests
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/background/remove", nil))
	assert.Equal(t, 1, logs.FilterMessage("rate_limit_violation").Len())
	assert.Equal(t, 1, logs.FilterMessage("admin_change").Len())
}
