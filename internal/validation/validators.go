package validation

import (
	"fmt"
	"strings"
	"unicode"

	"authlink/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validate is the shared validator instance for request structs.
var Validate = validator.New()

// SanitizeText trims surrounding whitespace and strips control characters,
// keeping newline and tab.
func SanitizeText(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, strings.TrimSpace(text))
}

// ValidateUserStatus checks a status value arriving as a string, as from the
// configure CLI.
func ValidateUserStatus(value string) error {
	switch models.UserStatus(value) {
	case models.UserStatusActive, models.UserStatusSuspended:
		return nil
	default:
		return fmt.Errorf("invalid status: %s (must be 'active' or 'suspended')", value)
	}
}
