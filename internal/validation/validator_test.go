package validation_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewise/tidewise/internal/validation"
)

type window struct {
	Start float64 `json:"start" validate:"gte=0,lte=24"`
	End   float64 `json:"end" validate:"gte=0,lte=24,gtefield=Start"`
}

type request struct {
	Name     string `json:"name" validate:"required"`
	Grouping string `json:"grouping,omitempty" validate:"omitempty,oneof=none time timeAndActivity"`
	Window   window `json:"window"`
	Internal string `json:"-" validate:"max=3"`
}

func TestStruct_Valid(t *testing.T) {
	err := validation.Struct(request{Name: "swim", Grouping: "time", Window: window{Start: 8, End: 18}})
	assert.NoError(t, err)
}

func TestStruct_FieldErrors(t *testing.T) {
	err := validation.Struct(request{Grouping: "weekly", Window: window{Start: 25, End: 10}})
	require.Error(t, err)

	var verr *validation.Error
	require.True(t, errors.As(err, &verr))

	byField := map[string]validation.FieldError{}
	for _, f := range verr.Fields {
		byField[f.Field] = f
	}

	require.Contains(t, byField, "name")
	assert.Equal(t, "required", byField["name"].Tag)
	assert.Equal(t, "name is required", byField["name"].Message)

	require.Contains(t, byField, "grouping")
	assert.Equal(t, "grouping must be one of: none time timeAndActivity", byField["grouping"].Message)

	require.Contains(t, byField, "window.start")
	assert.Equal(t, "24", byField["window.start"].Param)
	assert.Equal(t, "window.start must be less than or equal to 24", byField["window.start"].Message)

	require.Contains(t, byField, "window.end")
	assert.Equal(t, "window.end failed gtefield validation", byField["window.end"].Message)

	assert.Contains(t, err.Error(), "name is required")
}

func TestStruct_IgnoredJSONFieldUsesGoName(t *testing.T) {
	err := validation.Struct(request{Name: "swim", Internal: "toolong"})

	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "Internal", verr.Fields[0].Field)
	assert.Equal(t, "max", verr.Fields[0].Tag)
}

func TestPrefix(t *testing.T) {
	err := validation.Prefix(validation.Struct(window{Start: -1}), "workingHours")

	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "workingHours.start", verr.Fields[0].Field)
	assert.Equal(t, "workingHours.start must be greater than or equal to 0", verr.Fields[0].Message)

	plain := errors.New("boom")
	assert.Equal(t, plain, validation.Prefix(plain, "workingHours"))
	assert.NoError(t, validation.Prefix(nil, "workingHours"))
}

func TestError_Empty(t *testing.T) {
	assert.Equal(t, "validation failed", (&validation.Error{}).Error())
}
