package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Title     string   `json:"title" validate:"required,min=5,max=200"`
	Name      string   `json:"name" validate:"notblank"`
	Budget    string   `json:"budgetRange" validate:"budget"`
	LawyerIDs []string `json:"lawyerIds" validate:"required,min=1,dive,uuid"`
	Date      string   `json:"expectedDate" validate:"omitempty,isodate"`
	Urgency   string   `json:"urgency" validate:"omitempty,oneof=low medium high urgent"`
}

func TestValidate_OK(t *testing.T) {
	errs, err := Validate(sample{
		Title:     "Tenancy dispute",
		Name:      "Hearing 1",
		Budget:    "50000-100000",
		LawyerIDs: []string{"6f1c0a5e-8a4b-4b8e-9a55-0d7f2b7c1e11"},
		Date:      "2026-03-01",
		Urgency:   "high",
	})
	require.NoError(t, err)
	assert.Nil(t, errs)
}

func TestValidate_Messages(t *testing.T) {
	errs, err := Validate(sample{
		Title:     "abc",
		Name:      "   ",
		Budget:    "1-2",
		LawyerIDs: []string{"nope"},
		Date:      "March",
		Urgency:   "whenever",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Must be at least 5 characters"}, errs["title"])
	assert.Equal(t, []string{"This field is required"}, errs["name"])
	assert.Contains(t, errs["budgetRange"][0], "500000+")
	assert.Equal(t, []string{"Invalid UUID format"}, errs["lawyerIds[0]"])
	assert.Equal(t, []string{"Must be a date in YYYY-MM-DD format"}, errs["expectedDate"])
	assert.Equal(t, []string{"Value is not allowed"}, errs["urgency"])
}

func TestValidate_EmptySlice(t *testing.T) {
	errs, err := Validate(sample{Title: "Valid title", Name: "n", Budget: "500000+", LawyerIDs: []string{}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Must contain at least 1 items"}, errs["lawyerIds"])
}
