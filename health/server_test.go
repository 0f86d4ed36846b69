package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleHealthzHealthy(t *testing.T) {
	h := NewHealthChecker(0)
	h.RegisterCheck("ok", func(ctx context.Context) error { return nil })
	s := NewServer(h, nil, 0, "")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.handleHealthz(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body SystemHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, StatusHealthy, body.Status)
}

func TestHandleHealthzUnhealthy(t *testing.T) {
	h := NewHealthChecker(0)
	h.RegisterCheck("bad", func(ctx context.Context) error { return assert.AnError })
	s := NewServer(h, nil, 0, "")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.handleHealthz(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleLiveness(t *testing.T) {
	s := NewServer(NewHealthChecker(0), nil, 0, "")

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	s.handleLiveness(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleReadinessFailsWhenUnhealthy(t *testing.T) {
	h := NewHealthChecker(0)
	h.RegisterCheck("bad", func(ctx context.Context) error { return assert.AnError })
	s := NewServer(h, nil, 0, "")

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	s.handleReadiness(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDefaultPathIsHealthz(t *testing.T) {
	s := NewServer(NewHealthChecker(0), nil, 0, "")
	assert.Equal(t, "/healthz", s.path)
}
