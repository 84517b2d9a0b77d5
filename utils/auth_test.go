package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePhoneNumber(t *testing.T) {
	assert.True(t, ValidatePhoneNumber("+15551234567"))
	assert.True(t, ValidatePhoneNumber("+442071234567"))

	assert.False(t, ValidatePhoneNumber("15551234567"))       // missing +
	assert.False(t, ValidatePhoneNumber("+1555"))             // too short
	assert.False(t, ValidatePhoneNumber("+1555123456789012")) // too long
	assert.False(t, ValidatePhoneNumber("+1555abc4567"))      // letters
}

func TestFormatPhoneNumber(t *testing.T) {
	assert.Equal(t, "+15551234567", FormatPhoneNumber("+15551234567"))
	assert.Equal(t, "+15551234567", FormatPhoneNumber("5551234567"))
	assert.Equal(t, "+15551234567", FormatPhoneNumber("  5551234567"))
}

func TestValidatePasswordStrength(t *testing.T) {
	ok, problems := ValidatePasswordStrength("Sup3rSecret")
	assert.True(t, ok)
	assert.Empty(t, problems)

	ok, problems = ValidatePasswordStrength("weak")
	assert.False(t, ok)
	assert.NotEmpty(t, problems)

	ok, _ = ValidatePasswordStrength("alllowercase1")
	assert.False(t, ok)

	ok, _ = ValidatePasswordStrength("NoDigitsHere")
	assert.False(t, ok)
}
