package models

import (
	"github.com/tidewise/tidewise/internal/activity"
	"github.com/tidewise/tidewise/internal/conditions"
	"github.com/tidewise/tidewise/internal/grouping"
	"github.com/tidewise/tidewise/internal/scoring"
	"github.com/tidewise/tidewise/internal/slot"
)

// ComputeSuggestionsRequest is the body of POST /v1/suggestions:compute.
type ComputeSuggestionsRequest struct {
	Data         conditions.DataContext `json:"data"`
	Activities   []activity.Activity    `json:"activities,omitempty" validate:"omitempty,max=100"`
	ActivityIDs  []string               `json:"activityIds,omitempty" validate:"omitempty,max=100,dive,required"`
	WorkingHours *slot.WorkingHours     `json:"workingHours,omitempty"`
	Grouping     grouping.Mode          `json:"grouping,omitempty" validate:"omitempty,oneof=none time timeAndActivity"`
	Limit        int                    `json:"limit,omitempty" validate:"gte=0,lte=1000"`
	FeasibleOnly bool                   `json:"feasibleOnly,omitempty"`
	From         *Timestamp             `json:"from,omitempty"`
}

// ComputeSuggestionsResponse is the result of a suggestion computation.
type ComputeSuggestionsResponse struct {
	GeneratedAt Timestamp                        `json:"generatedAt"`
	Ranked      []scoring.ActivityScore          `json:"ranked"`
	Grouped     []grouping.EnrichedActivityScore `json:"grouped"`
}
