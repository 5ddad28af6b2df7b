package models

import "github.com/tidewise/tidewise/internal/activity"

// ActivityList is the response of GET /v1/activities.
type ActivityList struct {
	Items []activity.Activity `json:"items"`
	Count int                 `json:"count"`
}

// UpsertActivityRequest is the body of PUT /v1/activities/{activityId}. The
// id comes from the path.
type UpsertActivityRequest struct {
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Priority    int                  `json:"priority"`
	Constraints activity.Constraints `json:"constraints"`
}

// ToActivity builds the activity stored under id.
func (r UpsertActivityRequest) ToActivity(id string) activity.Activity {
	return activity.Activity{
		ID:          id,
		Name:        r.Name,
		Description: r.Description,
		Priority:    r.Priority,
		Constraints: r.Constraints,
	}
}
