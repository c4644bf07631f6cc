package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count" validate:"gte=1"`
}

func TestValidateUsesJSONNames(t *testing.T) {
	errs := Validate(sample{})
	assert.Equal(t, map[string]string{"name": "required", "count": "gte"}, errs)

	assert.Nil(t, Validate(sample{Name: "x", Count: 1}))
}
