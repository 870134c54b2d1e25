package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("maria@example.com"))
	assert.True(t, ValidateEmail("financeiro@credanalyzer.com.br"))
	assert.False(t, ValidateEmail("sem-arroba.com"))
	assert.False(t, ValidateEmail("maria@"))
	assert.False(t, ValidateEmail(""))
}

func TestCheckPasswordUsesConfiguredMinimum(t *testing.T) {
	assert.Equal(t, "password", CheckPassword("12345"))
	assert.Equal(t, "", CheckPassword("123456"))

	old := PasswordMinLength
	PasswordMinLength = 10
	defer func() { PasswordMinLength = old }()

	assert.Equal(t, "password", CheckPassword("123456789"))
	assert.Equal(t, "", CheckPassword("1234567890"))
}
