package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/booklist-server/internal/errors"
	"github.com/listenupapp/booklist-server/internal/validation"
)

type testRecord struct {
	Name      string   `json:"name" validate:"required,min=4"`
	Published int      `json:"published" validate:"gte=-5000,lte=3000"`
	Genres    []string `json:"genres,omitempty" validate:"max=2"`
	Internal  string   `json:"-" validate:"omitempty,oneof=a b"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(testRecord{Name: "Frank Herbert", Published: 1965, Genres: []string{"scifi"}})
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		rec       testRecord
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing required field",
			rec:       testRecord{Published: 1965},
			wantField: "name",
			wantMsg:   "is required",
		},
		{
			name:      "name too short",
			rec:       testRecord{Name: "Bob", Published: 1965},
			wantField: "name",
			wantMsg:   "must be at least 4 characters",
		},
		{
			name:      "year out of range",
			rec:       testRecord{Name: "Frank Herbert", Published: 9999},
			wantField: "published",
			wantMsg:   "must be less than or equal to 3000",
		},
		{
			name:      "too many genres",
			rec:       testRecord{Name: "Frank Herbert", Genres: []string{"a", "b", "c"}},
			wantField: "genres",
			wantMsg:   "must not contain more than 2 items",
		},
		{
			name:      "field without json name",
			rec:       testRecord{Name: "Frank Herbert", Internal: "z"},
			wantField: "Internal",
			wantMsg:   "must be one of: a b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.rec)
			require.Error(t, err)

			var domainErr *errors.Error
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, errors.CodeBadUserInput, domainErr.Code)
			assert.True(t, errors.Is(err, errors.ErrBadUserInput))

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Equal(t, tt.wantMsg, details[tt.wantField])
			assert.Contains(t, domainErr.Message, tt.wantField+" "+tt.wantMsg)
		})
	}
}

func TestValidator_MinCountsCharactersNotBytes(t *testing.T) {
	v := validation.New()

	// Four runes, eight bytes.
	err := v.Validate(testRecord{Name: "ÉÉÉÉ", Published: 1})
	assert.NoError(t, err)
}

func TestValidator_SummaryIsSorted(t *testing.T) {
	v := validation.New()

	err := v.Validate(testRecord{Published: 5000})
	require.Error(t, err)
	assert.Equal(t, "name is required; published must be less than or equal to 3000", err.Error())
}
