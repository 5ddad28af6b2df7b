package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewise/tidewise/internal/activity"
	"github.com/tidewise/tidewise/internal/api/handler"
	"github.com/tidewise/tidewise/internal/api/models"
	"github.com/tidewise/tidewise/internal/resilience"
)

type stubCatalog struct {
	err error
}

func (s stubCatalog) List(context.Context) ([]activity.Activity, error) { return nil, s.err }

func (s stubCatalog) Get(context.Context, string) (*activity.Activity, error) { return nil, s.err }

func (s stubCatalog) Upsert(context.Context, *activity.Activity) error { return s.err }

func (s stubCatalog) Delete(context.Context, string) error { return s.err }

func (s stubCatalog) Ping(context.Context) error { return s.err }

func activityRouter(catalog handler.ActivityCatalog) http.Handler {
	h := handler.NewActivityHandler(catalog, zerolog.Nop())
	r := chi.NewRouter()
	r.Get("/activities", h.ListActivities)
	r.Get("/activities/{activityId}", h.GetActivity)
	r.Delete("/activities/{activityId}", h.DeleteActivity)
	return r
}

func problemStatus(t *testing.T, rec *httptest.ResponseRecorder) int {
	t.Helper()
	var p struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p.Status
}

func TestActivityHandler_DependencyErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		method string
		path   string
		want   int
	}{
		{name: "circuit open on list", err: resilience.ErrCircuitOpen, method: http.MethodGet, path: "/activities", want: http.StatusServiceUnavailable},
		{name: "retries exhausted on get", err: fmt.Errorf("catalog: %w", resilience.ErrMaxRetriesExceeded), method: http.MethodGet, path: "/activities/swim", want: http.StatusServiceUnavailable},
		{name: "not found on get", err: activity.ErrActivityNotFound, method: http.MethodGet, path: "/activities/swim", want: http.StatusNotFound},
		{name: "not found on delete", err: activity.ErrActivityNotFound, method: http.MethodDelete, path: "/activities/swim", want: http.StatusNotFound},
		{name: "unexpected failure", err: errors.New("disk on fire"), method: http.MethodDelete, path: "/activities/swim", want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)

			activityRouter(stubCatalog{err: tt.err}).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.want, problemStatus(t, rec))
			assert.NotContains(t, rec.Body.String(), "disk on fire", "internal errors are not leaked")
		})
	}
}

func TestActivityHandler_ListEmpty(t *testing.T) {
	rec := httptest.NewRecorder()
	activityRouter(stubCatalog{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/activities", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[],"count":0}`, rec.Body.String())
}

func TestOpsHandler_ReadinessFailsWhenCatalogDown(t *testing.T) {
	h := handler.NewOpsHandler("1.0.0", "now", stubCatalog{err: errors.New("connection refused")}, nil)

	rec := httptest.NewRecorder()
	h.ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var health models.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusFail, health.Status)
	assert.Equal(t, "connection refused", health.Details["catalog"])
}

func TestOpsHandler_SystemStatusReportsOpenBreaker(t *testing.T) {
	guard := resilience.NewGuard(resilience.GuardConfig{
		Name:            "results-publisher",
		MaxRetries:      5,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
	})
	err := guard.Do(context.Background(), func(context.Context) error { return errors.New("topic gone") })
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)

	registry := resilience.NewRegistry()
	registry.Register(guard)

	h := handler.NewOpsHandler("1.0.0", "now", stubCatalog{}, registry)
	rec := httptest.NewRecorder()
	h.SystemStatus(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusDegraded, status.Status)
	require.Len(t, status.Subsystems, 1)
	assert.Equal(t, models.HealthStatusOK, status.Subsystems[0].Status)
	require.Len(t, status.Breakers, 1)
	assert.Equal(t, "results-publisher", status.Breakers[0].Name)
	assert.Equal(t, "open", status.Breakers[0].State)
	assert.Equal(t, models.HealthStatusFail, status.Breakers[0].Status)
}
