package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tidewise/tidewise/internal/activity"
	"github.com/tidewise/tidewise/internal/api/middleware"
	"github.com/tidewise/tidewise/internal/api/models"
	"github.com/tidewise/tidewise/internal/api/response"
)

// ActivityCatalog is the catalog used by the activity endpoints.
// *activity.Service satisfies it.
type ActivityCatalog interface {
	List(ctx context.Context) ([]activity.Activity, error)
	Get(ctx context.Context, id string) (*activity.Activity, error)
	Upsert(ctx context.Context, a *activity.Activity) error
	Delete(ctx context.Context, id string) error
}

// ActivityHandler handles activity catalog endpoints.
type ActivityHandler struct {
	catalog ActivityCatalog
	logger  zerolog.Logger
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(catalog ActivityCatalog, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{catalog: catalog, logger: logger}
}

// ListActivities handles GET /v1/activities - list the catalog by priority.
func (h *ActivityHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.catalog.List(r.Context())
	if err != nil {
		writeDependencyError(w, r, h.logger, err, "list activities failed")
		return
	}
	if activities == nil {
		activities = []activity.Activity{}
	}
	response.JSON(w, r, http.StatusOK, models.ActivityList{Items: activities, Count: len(activities)})
}

// GetActivity handles GET /v1/activities/{activityId} - get one activity.
func (h *ActivityHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "activityId")

	a, err := h.catalog.Get(r.Context(), id)
	switch {
	case err == nil:
		response.JSON(w, r, http.StatusOK, a)
	case errors.Is(err, activity.ErrActivityNotFound):
		response.NotFound(w, r, "activity "+id+" not found")
	default:
		writeDependencyError(w, r, h.logger, err, "get activity failed")
	}
}

// UpsertActivity handles PUT /v1/activities/{activityId} - create or
// replace an activity.
func (h *ActivityHandler) UpsertActivity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "activityId")

	var input models.UpsertActivityRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	a := input.ToActivity(id)
	err := h.catalog.Upsert(r.Context(), &a)

	var verr *activity.ValidationError
	switch {
	case err == nil:
		h.logger.Info().
			Str("activity_id", id).
			Str("subject", middleware.GetSubject(r.Context())).
			Msg("activity upserted via api")
		response.JSON(w, r, http.StatusOK, a)
	case errors.As(err, &verr):
		response.BadRequest(w, r, "invalid activity", models.FieldErrorsFrom(verr.Errors))
	default:
		writeDependencyError(w, r, h.logger, err, "upsert activity failed")
	}
}

// DeleteActivity handles DELETE /v1/activities/{activityId} - remove an activity.
func (h *ActivityHandler) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "activityId")

	err := h.catalog.Delete(r.Context(), id)
	switch {
	case err == nil:
		h.logger.Info().
			Str("activity_id", id).
			Str("subject", middleware.GetSubject(r.Context())).
			Msg("activity deleted via api")
		response.NoContent(w, r)
	case errors.Is(err, activity.ErrActivityNotFound):
		response.NotFound(w, r, "activity "+id+" not found")
	default:
		writeDependencyError(w, r, h.logger, err, "delete activity failed")
	}
}
