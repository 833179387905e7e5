package request

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/resale-hub/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain uses first hop", map[string]string{"X-Forwarded-For": " 203.0.113.7 , 10.0.0.2"}, "10.0.0.2:443", "203.0.113.7"},
		{"empty first hop falls through", map[string]string{"X-Forwarded-For": " ,10.0.0.2", "X-Real-IP": "198.51.100.4"}, "", "198.51.100.4"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.4"}, "10.0.0.2:443", "198.51.100.4"},
		{"port stripped", nil, "192.0.2.10:52144", "192.0.2.10"},
		{"ipv6 port stripped", nil, "[2001:db8::1]:52144", "2001:db8::1"},
		{"bare remote addr kept", nil, "unix-socket", "unix-socket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/api/v1/shop/products", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if tt.remote != "" {
				r.RemoteAddr = tt.remote
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}

func TestOperatorFromContext(t *testing.T) {
	t.Parallel()

	op := &models.Operator{Sub: "auth0|shopkeeper", Email: "owner@thrift.example"}
	tests := []struct {
		name string
		ctx  context.Context
		want *models.Operator
	}{
		{"present", WithOperator(context.Background(), op), op},
		{"absent", context.Background(), nil},
		{"wrong type", context.WithValue(context.Background(), OperatorContextKey(), "owner"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil).WithContext(tt.ctx)
			assert.Same(t, tt.want, OperatorFromContext(r))
		})
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	assert.Empty(t, RequestID(context.Background()))
	assert.Equal(t, "req-42", RequestID(WithRequestID(context.Background(), "req-42")))
}
