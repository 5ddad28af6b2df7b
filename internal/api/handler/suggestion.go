package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tidewise/tidewise/internal/activity"
	"github.com/tidewise/tidewise/internal/api/models"
	"github.com/tidewise/tidewise/internal/api/response"
	"github.com/tidewise/tidewise/internal/grouping"
	"github.com/tidewise/tidewise/internal/suggest"
	"github.com/tidewise/tidewise/internal/validation"
)

// Suggester computes suggestions. *suggest.Service satisfies it.
type Suggester interface {
	Suggest(ctx context.Context, req suggest.Request) (*suggest.Result, error)
}

// SuggestionHandler handles suggestion endpoints.
type SuggestionHandler struct {
	suggester Suggester
	logger    zerolog.Logger
}

// NewSuggestionHandler creates a new SuggestionHandler.
func NewSuggestionHandler(suggester Suggester, logger zerolog.Logger) *SuggestionHandler {
	return &SuggestionHandler{suggester: suggester, logger: logger}
}

// ComputeSuggestions handles POST /v1/suggestions:compute - rank activities
// for one day of conditions.
func (h *SuggestionHandler) ComputeSuggestions(w http.ResponseWriter, r *http.Request) {
	var input models.ComputeSuggestionsRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	if fields := validateSuggestionRequest(input); len(fields) > 0 {
		response.ValidationFailed(w, r, fields)
		return
	}

	mode, err := grouping.ParseMode(string(input.Grouping))
	if err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	req := suggest.Request{
		Data:         input.Data,
		Activities:   input.Activities,
		ActivityIDs:  input.ActivityIDs,
		WorkingHours: input.WorkingHours,
		Grouping:     mode,
		Limit:        input.Limit,
		FeasibleOnly: input.FeasibleOnly,
	}
	if input.From != nil {
		from := input.From.Time()
		req.From = &from
	}

	result, err := h.suggester.Suggest(r.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, suggest.ErrNoActivities):
		response.Unprocessable(w, r, "no activities to score")
		return
	case errors.Is(err, activity.ErrActivityNotFound):
		response.Unprocessable(w, r, err.Error())
		return
	default:
		writeDependencyError(w, r, h.logger, err, "suggestion computation failed")
		return
	}

	response.JSON(w, r, http.StatusOK, models.ComputeSuggestionsResponse{
		GeneratedAt: models.Timestamp(result.GeneratedAt),
		Ranked:      result.Ranked,
		Grouped:     result.Grouped,
	})
}

// validateSuggestionRequest checks the envelope and every inline activity.
func validateSuggestionRequest(input models.ComputeSuggestionsRequest) []validation.FieldError {
	var fields []validation.FieldError

	var verr *validation.Error
	if errors.As(validation.Struct(input), &verr) {
		fields = append(fields, verr.Fields...)
	}
	if input.Data.ReferenceDate.IsZero() {
		fields = append(fields, validation.FieldError{
			Field:   "data.referenceDate",
			Tag:     "required",
			Message: "data.referenceDate is required",
		})
	}

	for i, a := range input.Activities {
		var aerr *activity.ValidationError
		if !errors.As(a.Validate(), &aerr) {
			continue
		}
		prefixed := validation.Prefix(&validation.Error{Fields: aerr.Errors}, fmt.Sprintf("activities[%d]", i))
		if errors.As(prefixed, &verr) {
			fields = append(fields, verr.Fields...)
		}
	}
	return fields
}
