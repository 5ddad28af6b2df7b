// Package activity provides the catalog of activity definitions and the
// constraints each activity places on environmental conditions.
package activity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidewise/tidewise/internal/validation"
)

// Catalog errors.
var (
	ErrActivityNotFound      = errors.New("activity not found")
	ErrUnknownConstraintType = errors.New("unknown constraint type")
)

// Priority bounds.
const (
	MinPriority = 1
	MaxPriority = 10
)

// Activity is something a user may want to do, together with the conditions
// under which it is worth doing. An empty constraint list means the activity
// is always feasible.
type Activity struct {
	ID          string      `json:"id" validate:"required,max=64"`
	Name        string      `json:"name" validate:"required,max=80"`
	Description string      `json:"description,omitempty" validate:"max=500"`
	Priority    int         `json:"priority" validate:"gte=1,lte=10"`
	Constraints Constraints `json:"constraints"`
}

// ValidationError carries field-level problems found in an activity.
type ValidationError struct {
	Errors []validation.FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Message)
	}
	return "invalid activity: " + strings.Join(msgs, "; ")
}

// Validate checks the activity and every constraint it carries.
func (a Activity) Validate() error {
	var fields []validation.FieldError
	collect := func(err error) {
		var verr *validation.Error
		if errors.As(err, &verr) {
			fields = append(fields, verr.Fields...)
		}
	}

	collect(validation.Struct(a))

	for i, c := range a.Constraints {
		prefix := fmt.Sprintf("constraints[%d]", i)
		collect(validation.Prefix(validation.Struct(c), prefix))

		if field, msg, ok := checkConstraint(c); !ok {
			fields = append(fields, validation.FieldError{
				Field:   prefix + "." + field,
				Tag:     "range",
				Message: prefix + "." + field + " " + msg,
			})
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Errors: fields}
	}
	return nil
}

// checkConstraint covers the cross-field rules struct tags cannot express.
func checkConstraint(c Constraint) (field, msg string, ok bool) {
	switch c := c.(type) {
	case WindConstraint:
		if c.MinSpeed != nil && c.MaxSpeed != nil && *c.MinSpeed > *c.MaxSpeed {
			return "minSpeed", "must not exceed maxSpeed", false
		}
	case WeatherConstraint:
		if c.MinTemperature != nil && c.MaxTemperature != nil && *c.MinTemperature > *c.MaxTemperature {
			return "minTemperature", "must not exceed maxTemperature", false
		}
	case TideConstraint:
		if c.MinHeight != nil && c.MaxHeight != nil && *c.MinHeight > *c.MaxHeight {
			return "minHeight", "must not exceed maxHeight", false
		}
	case SunConstraint:
		if c.RequiresDaylight && c.RequiresDarkness {
			return "requiresDarkness", "cannot be combined with requiresDaylight", false
		}
	case TimeConstraint:
		if c.EarliestHour != nil && c.LatestHour != nil && *c.EarliestHour > *c.LatestHour {
			return "earliestHour", "must not be after latestHour", false
		}
	case DayConstraint:
		for i, r := range c.DateRanges {
			if r.Start.IsZero() || r.End.IsZero() {
				return fmt.Sprintf("dateRanges[%d]", i), "requires start and end", false
			}
			if r.End.Before(r.Start.Time) {
				return fmt.Sprintf("dateRanges[%d].end", i), "must not be before start", false
			}
		}
	}
	return "", "", true
}
