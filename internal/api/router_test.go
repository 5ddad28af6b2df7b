package api_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewise/tidewise/internal/activity"
	"github.com/tidewise/tidewise/internal/api"
	"github.com/tidewise/tidewise/internal/api/models"
	"github.com/tidewise/tidewise/internal/auth"
	"github.com/tidewise/tidewise/internal/conditions"
	"github.com/tidewise/tidewise/internal/resilience"
	"github.com/tidewise/tidewise/internal/suggest"
)

var day = time.Date(2026, time.July, 4, 0, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func testJWTService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.tidewise.app",
		Audience:   "tidewise-api",
	})
}

func generateTestToken(t *testing.T, scopes ...string) string {
	t.Helper()
	token, _, err := testJWTService().GenerateAccessToken("curator-1", scopes...)
	require.NoError(t, err)
	return token
}

func seedActivities() []activity.Activity {
	return []activity.Activity{
		{
			ID: "swim", Name: "Swimming", Priority: 4,
			Constraints: activity.Constraints{
				activity.SunConstraint{RequiresDaylight: true},
				activity.TideConstraint{EventType: conditions.TideHigh, MaxHoursBefore: ptr(1.0), MaxHoursAfter: ptr(1.0)},
			},
		},
		{
			ID: "kitesurf", Name: "Kitesurfing", Priority: 8,
			Constraints: activity.Constraints{
				activity.WindConstraint{MinSpeed: ptr(12.0), MaxSpeed: ptr(18.0)},
			},
		},
	}
}

// testDay has a single high tide at 11:00 and wind equal to the hour.
func testDay() conditions.DataContext {
	data := conditions.DataContext{
		ReferenceDate: day,
		Sun:           conditions.SunTimes{Sunrise: day.Add(6 * time.Hour), Sunset: day.Add(21 * time.Hour)},
		Tide: []conditions.TideEvent{
			{Time: 5, Height: 0.4, Type: conditions.TideLow},
			{Time: 11, Height: 2.2, Type: conditions.TideHigh},
			{Time: 17, Height: 0.5, Type: conditions.TideLow},
		},
	}
	for h := 0; h < 24; h++ {
		at := day.Add(time.Duration(h) * time.Hour)
		data.Wind = append(data.Wind, conditions.WindSample{Time: at, Speed: float64(h), Direction: 250})
		data.Weather = append(data.Weather, conditions.WeatherSample{Time: at, Temperature: 18, CloudCover: 20})
	}
	return data
}

type testEnv struct {
	router  http.Handler
	catalog *activity.Service
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)

	catalog := activity.NewService(activity.ServiceConfig{
		Repository: activity.NewInMemoryRepository(seedActivities()...),
		Logger:     logger,
	})
	suggester, err := suggest.NewService(suggest.ServiceConfig{
		Catalog: catalog,
		Logger:  logger,
		Now:     func() time.Time { return day.Add(7 * time.Hour) },
	})
	require.NoError(t, err)

	breakers := resilience.NewRegistry()
	breakers.Register(resilience.NewGuard(resilience.GuardConfig{Name: "catalog"}))

	router := api.NewRouter(api.RouterConfig{
		Version:   "test",
		BuildTime: "2026-01-01T00:00:00Z",
		Logger:    logger,
		Tokens:    testJWTService(),
		Catalog:   catalog,
		Suggester: suggester,
		Breakers:  breakers,
	})
	return testEnv{router: router, catalog: catalog}
}

func (e testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRouter_HealthCheck(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/ops/health", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	health := decode[models.Health](t, w)
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Details["version"])
}

func TestRouter_ReadinessCheck(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/ops/ready", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.HealthStatusOK, decode[models.Health](t, w).Status)
}

func TestRouter_SystemStatus(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/ops/status", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/v1/ops/status", nil, generateTestToken(t))
	require.Equal(t, http.StatusOK, w.Code)

	status := decode[models.SystemStatus](t, w)
	assert.Equal(t, models.HealthStatusOK, status.Status)
	require.Len(t, status.Breakers, 1)
	assert.Equal(t, "catalog", status.Breakers[0].Name)
	assert.Equal(t, "closed", status.Breakers[0].State)
}

func TestRouter_ListActivities(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/activities", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	list := decode[models.ActivityList](t, w)
	require.Equal(t, 2, list.Count)
	assert.Equal(t, "kitesurf", list.Items[0].ID, "higher priority first")
	assert.Equal(t, "swim", list.Items[1].ID)
	require.Len(t, list.Items[1].Constraints, 2)
	assert.Equal(t, activity.KindTide, list.Items[1].Constraints[1].Kind())
}

func TestRouter_GetActivity(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/activities/swim", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Swimming", decode[activity.Activity](t, w).Name)

	w = env.do(t, http.MethodGet, "/v1/activities/paraglide", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.ContentTypeProblem, w.Header().Get("Content-Type"))
	assert.Equal(t, "/v1/activities/paraglide", decode[models.Problem](t, w).Instance)
}

func TestRouter_UpsertActivity(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]any{
		"name":     "Sailing",
		"priority": 6,
		"constraints": []map[string]any{
			{"type": "wind", "minSpeed": 4, "maxSpeed": 10},
			{"type": "sun", "requiresDaylight": true},
		},
	}

	t.Run("requires token", func(t *testing.T) {
		w := env.do(t, http.MethodPut, "/v1/activities/sail", body, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("requires write scope", func(t *testing.T) {
		w := env.do(t, http.MethodPut, "/v1/activities/sail", body, generateTestToken(t))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("stores activity", func(t *testing.T) {
		w := env.do(t, http.MethodPut, "/v1/activities/sail", body, generateTestToken(t, auth.ScopeCatalogWrite))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "sail", decode[activity.Activity](t, w).ID)

		w = env.do(t, http.MethodGet, "/v1/activities", nil, "")
		assert.Equal(t, 3, decode[models.ActivityList](t, w).Count)
	})

	t.Run("rejects invalid activity", func(t *testing.T) {
		bad := map[string]any{
			"name":        "Sailing",
			"priority":    11,
			"constraints": []map[string]any{{"type": "wind", "minSpeed": 12, "maxSpeed": 4}},
		}
		w := env.do(t, http.MethodPut, "/v1/activities/sail", bad, generateTestToken(t, auth.ScopeCatalogWrite))
		require.Equal(t, http.StatusBadRequest, w.Code)

		problem := decode[models.Problem](t, w)
		fields := make([]string, 0, len(problem.Errors))
		for _, fe := range problem.Errors {
			fields = append(fields, fe.Field)
		}
		assert.Contains(t, fields, "priority")
		assert.Contains(t, fields, "constraints[0].minSpeed")
	})

	t.Run("rejects unknown constraint type", func(t *testing.T) {
		bad := map[string]any{
			"name":        "Stargazing",
			"priority":    3,
			"constraints": []map[string]any{{"type": "moon"}},
		}
		w := env.do(t, http.MethodPut, "/v1/activities/stars", bad, generateTestToken(t, auth.ScopeCatalogWrite))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "unknown constraint type")
	})
}

func TestRouter_DeleteActivity(t *testing.T) {
	env := newTestEnv(t)
	token := generateTestToken(t, auth.ScopeCatalogWrite)

	w := env.do(t, http.MethodDelete, "/v1/activities/swim", nil, token)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodDelete, "/v1/activities/swim", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/v1/activities/swim", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_ComputeSuggestions(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/suggestions:compute", map[string]any{
		"data":         testDay(),
		"activityIds":  []string{"swim"},
		"workingHours": map[string]any{"startHour": 8, "endHour": 18, "enabled": true},
		"grouping":     "time",
		"feasibleOnly": true,
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[models.ComputeSuggestionsResponse](t, w)
	assert.Equal(t, day.Add(7*time.Hour), resp.GeneratedAt.Time())
	require.NotEmpty(t, resp.Ranked)
	assert.Equal(t, "swim", resp.Ranked[0].Activity.ID)
	assert.Equal(t, 1.0, resp.Ranked[0].Score)

	require.NotEmpty(t, resp.Grouped)
	best := resp.Grouped[0]
	assert.Equal(t, day.Add(10*time.Hour), best.Interval.Start)
	assert.Equal(t, day.Add(12*time.Hour), best.Interval.End)
}

func TestRouter_ComputeSuggestions_LowercaseTideTypes(t *testing.T) {
	env := newTestEnv(t)

	raw, err := json.Marshal(testDay())
	require.NoError(t, err)
	var data map[string]any
	require.NoError(t, json.Unmarshal(raw, &data))
	for _, event := range data["tide"].([]any) {
		e := event.(map[string]any)
		e["type"] = strings.ToLower(e["type"].(string))
	}

	w := env.do(t, http.MethodPost, "/v1/suggestions:compute", map[string]any{
		"data":         data,
		"activityIds":  []string{"swim"},
		"grouping":     "time",
		"feasibleOnly": true,
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[models.ComputeSuggestionsResponse](t, w)
	require.NotEmpty(t, resp.Grouped, "lowercase high tide must still match the swim constraint")
	assert.Equal(t, day.Add(10*time.Hour), resp.Grouped[0].Interval.Start)
	assert.Equal(t, day.Add(12*time.Hour), resp.Grouped[0].Interval.End)
}

func TestRouter_ComputeSuggestions_InlineActivities(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/suggestions:compute", map[string]any{
		"data": testDay(),
		"activities": []map[string]any{
			{"id": "walk", "name": "Walk", "priority": 2, "constraints": []any{}},
		},
		"limit": 5,
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[models.ComputeSuggestionsResponse](t, w)
	assert.Len(t, resp.Ranked, 5)
	for _, r := range resp.Ranked {
		assert.Equal(t, "walk", r.Activity.ID)
		assert.Equal(t, 1.0, r.Score)
		assert.True(t, r.Feasible)
	}
}

func TestRouter_ComputeSuggestions_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		body   any
		status int
		field  string
	}{
		{
			name:   "missing reference date",
			body:   map[string]any{"grouping": "time"},
			status: http.StatusBadRequest,
			field:  "data.referenceDate",
		},
		{
			name:   "unknown grouping",
			body:   map[string]any{"data": testDay(), "grouping": "weekly"},
			status: http.StatusBadRequest,
			field:  "grouping",
		},
		{
			name:   "negative limit",
			body:   map[string]any{"data": testDay(), "limit": -1},
			status: http.StatusBadRequest,
			field:  "limit",
		},
		{
			name:   "reversed working hours",
			body:   map[string]any{"data": testDay(), "workingHours": map[string]any{"startHour": 18, "endHour": 8, "enabled": true}},
			status: http.StatusBadRequest,
			field:  "workingHours.endHour",
		},
		{
			name: "invalid inline activity",
			body: map[string]any{"data": testDay(), "activities": []map[string]any{
				{"id": "walk", "name": "Walk", "priority": 0},
			}},
			status: http.StatusBadRequest,
			field:  "activities[0].priority",
		},
		{
			name: "unknown tide type",
			body: map[string]any{"data": map[string]any{
				"referenceDate": day,
				"tide":          []map[string]any{{"time": 5, "height": 0.4, "type": "low"}, {"time": 11, "height": 2.2, "type": "slack"}},
			}},
			status: http.StatusBadRequest,
			field:  "data.tide[1].type",
		},
		{
			name:   "unknown activity id",
			body:   map[string]any{"data": testDay(), "activityIds": []string{"paraglide"}},
			status: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/v1/suggestions:compute", tt.body, "")
			require.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, models.ContentTypeProblem, w.Header().Get("Content-Type"))

			if tt.field == "" {
				return
			}
			problem := decode[models.Problem](t, w)
			fields := make([]string, 0, len(problem.Errors))
			for _, fe := range problem.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestRouter_ComputeSuggestions_RejectsNonJSON(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/suggestions:compute", bytes.NewBufferString("data=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestRouter_ComputeSuggestions_EmptyCatalog(t *testing.T) {
	env := newTestEnv(t)
	token := generateTestToken(t, auth.ScopeCatalogWrite)
	for _, id := range []string{"swim", "kitesurf"} {
		require.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/v1/activities/"+id, nil, token).Code)
	}

	w := env.do(t, http.MethodPost, "/v1/suggestions:compute", map[string]any{"data": testDay()}, "")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "no activities")
}

func TestRouter_UnknownRoute(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/routes:compute", nil, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.ContentTypeProblem, w.Header().Get("Content-Type"))
}
