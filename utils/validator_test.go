package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	type form struct {
		Email  string `validate:"required,email"`
		Status string `validate:"omitempty,oneof=todo done"`
	}

	assert.NoError(t, ValidateStruct(form{Email: "a@example.com"}))
	assert.NoError(t, ValidateStruct(form{Email: "a@example.com", Status: "done"}))

	err := ValidateStruct(form{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email is required")

	err = ValidateStruct(form{Email: "not-an-email", Status: "maybe"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email must be a valid email")
	assert.Contains(t, err.Error(), "status must be one of: todo done")
}

func TestParseUint(t *testing.T) {
	t.Parallel()

	assert.EqualValues(t, 42, ParseUint("42"))
	assert.Zero(t, ParseUint("abc"))
	assert.Zero(t, ParseUint(""))
}
