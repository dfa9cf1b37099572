package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"quill/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.NewFormError(models.FieldErrors{"title": {"x"}}), http.StatusUnprocessableEntity},
		{models.NewNotFoundError("Post", 1), http.StatusNotFound},
		{models.NewForbiddenError("no"), http.StatusForbidden},
		{models.NewUnauthorizedError("no"), http.StatusUnauthorized},
		{models.NewUnsupportedImageError(errors.New("bad")), http.StatusInternalServerError},
		{models.NewIOError(errors.New("disk")), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mapServiceError(tt.err), tt.err.Error())
	}
}

func TestHealthChecks(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/health/ready", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "unavailable", body.Checks["redis"])
}

func TestReadiness_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	h := newHarnessWithRedis(t, rdb)

	resp := h.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	mr.Close()
	resp = h.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
