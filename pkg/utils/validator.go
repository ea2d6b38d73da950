package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	emailRegex   = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRegex   = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidatePhone accepts international numbers with optional leading +,
// ignoring spaces and dashes
func ValidatePhone(phone string) error {
	normalized := strings.NewReplacer(" ", "", "-", "").Replace(phone)
	if !phoneRegex.MatchString(normalized) {
		return fmt.Errorf("invalid phone number: %s", phone)
	}
	return nil
}

// ValidateAmount requires a non-negative monetary amount
func ValidateAmount(field string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%s must not be negative: %s", field, amount.String())
	}
	return nil
}

// SanitizeString removes control characters and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}

// SplitIDs parses a comma-separated ID list, dropping blanks and duplicates
// while keeping the original order
func SplitIDs(csv string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Split(csv, ",") {
		id := strings.TrimSpace(part)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
