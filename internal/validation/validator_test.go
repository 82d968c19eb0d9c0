package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type colorRequest struct {
	Color string `json:"color" validate:"required,tagcolor"`
}

type itemRequest struct {
	ID     uint `json:"id" validate:"required"`
	Amount int  `json:"amount" validate:"gte=1"`
}

type nestedRequest struct {
	Name  string        `json:"name" validate:"required,max=5"`
	Items []itemRequest `json:"items" validate:"required,min=1,dive"`
}

func TestTagColor(t *testing.T) {
	for _, color := range []string{"#FFAA00", "#fa0", "#123abc"} {
		assert.Nil(t, ValidateStruct(&colorRequest{Color: color}), color)
		assert.True(t, IsTagColor(color))
	}

	for _, color := range []string{"red", "FFAA00", "#FFAA0", "#GGGGGG", "#ffaa001"} {
		errs := ValidateStruct(&colorRequest{Color: color})
		require.NotNil(t, errs, color)
		assert.Contains(t, errs, "color")
	}
}

func TestValidateStructUsesJSONNames(t *testing.T) {
	errs := ValidateStruct(&nestedRequest{Name: "too long"})
	require.NotNil(t, errs)
	assert.Equal(t, []string{"Ensure this field has no more than 5 characters."}, errs["name"])
	assert.Equal(t, []string{"This field is required."}, errs["items"])
}

func TestValidateStructNestedErrors(t *testing.T) {
	errs := ValidateStruct(&nestedRequest{
		Name:  "soup",
		Items: []itemRequest{{ID: 1, Amount: 0}},
	})
	require.NotNil(t, errs)
	assert.Equal(t, []string{"amount: Ensure this value is greater than or equal to 1."}, errs["items"])

	errs = ValidateStruct(&nestedRequest{Name: "soup", Items: []itemRequest{}})
	require.NotNil(t, errs)
	assert.Equal(t, []string{"Ensure this field has at least 1 elements."}, errs["items"])
}

func TestErrors(t *testing.T) {
	errs := Errors{}
	errs.Add("tags", "bad")
	errs.Add("name", "empty")
	errs.Add("tags", "worse")
	assert.Equal(t, "name: empty; tags: bad, worse", errs.Error())

	var err error = Field("image", "missing")
	got, ok := AsErrors(err)
	require.True(t, ok)
	assert.Equal(t, []string{"missing"}, got["image"])
}
