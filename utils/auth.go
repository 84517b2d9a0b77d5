package utils

import (
	"strings"
	"unicode"

	"roadside-assist-server/config"
)

// ValidatePhoneNumber validates phone number format: leading +, country
// code, 10 to 15 characters total.
func ValidatePhoneNumber(phoneNumber string) bool {
	if len(phoneNumber) < 10 || len(phoneNumber) > 16 {
		return false
	}
	if phoneNumber[0] != '+' {
		return false
	}
	for _, r := range phoneNumber[1:] {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// FormatPhoneNumber formats a phone number to include the default country
// code if not present.
func FormatPhoneNumber(phoneNumber string) string {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if strings.HasPrefix(phoneNumber, "+") {
		return phoneNumber
	}

	countryCode := "+1"
	if config.AppConfig != nil && config.AppConfig.Phone.DefaultCountryCode != "" {
		countryCode = config.AppConfig.Phone.DefaultCountryCode
	}
	return countryCode + phoneNumber
}

// ValidatePasswordStrength checks minimal password requirements
func ValidatePasswordStrength(password string) (bool, []string) {
	var problems []string

	if len(password) < 8 {
		problems = append(problems, "Password must be at least 8 characters long")
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper {
		problems = append(problems, "Password must contain an uppercase letter")
	}
	if !hasLower {
		problems = append(problems, "Password must contain a lowercase letter")
	}
	if !hasDigit {
		problems = append(problems, "Password must contain a digit")
	}

	return len(problems) == 0, problems
}
