package validation

import (
	"testing"

	"Sahaaya/internal/apperror"

	"github.com/stretchr/testify/assert"
)

type signup struct {
	Email    string  `json:"email" validate:"required,email"`
	Amount   float64 `json:"amount" validate:"gt=0"`
	Category string  `json:"category" validate:"omitempty,oneof=Education Other"`
}

func TestValidator(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(&signup{Email: "a@b.org", Amount: 1}))

	err := v.Validate(&signup{Email: "nope", Amount: 0, Category: "Sports"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.Contains(t, err.Error(), "email must be a valid email")
	assert.Contains(t, err.Error(), "amount must be greater than 0")
	assert.Contains(t, err.Error(), "category must be one of [Education Other]")
}
