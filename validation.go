package stockfolio

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/etnz/stockfolio/date"
)

// Input checks. Each validator returns nil or a *ValidationError naming the
// offending field, and never touches any state.

var codePattern = regexp.MustCompile(`^[A-Za-z0-9]{4,6}$`)

const (
	maxAccountName        = 50
	forbiddenAccountChars = `<>:"/\|?*`
)

// NormalizeCode trims and uppercases a stock code.
func NormalizeCode(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }

// ValidateCode checks that code is 4 to 6 alphanumeric characters.
func ValidateCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return invalid("code", "stock code is required")
	}
	if !codePattern.MatchString(code) {
		return invalid("code", "stock code %q must be 4 to 6 letters or digits", code)
	}
	return nil
}

// ValidateShares checks that n is a positive whole number of shares.
func ValidateShares(n int64) error {
	if n <= 0 {
		return invalid("shares", "shares must be a positive integer, got %d", n)
	}
	return nil
}

// ValidateAmount checks that v is a finite, strictly positive number.
func ValidateAmount(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(field, "%s must be a number", field)
	}
	if v <= 0 {
		return invalid(field, "%s must be positive, got %v", field, v)
	}
	return nil
}

// ValidateNonNegative checks that v is a finite number, zero or above.
func ValidateNonNegative(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(field, "%s must be a number", field)
	}
	if v < 0 {
		return invalid(field, "%s cannot be negative, got %v", field, v)
	}
	return nil
}

// ValidatePurchaseDate checks that d is set and not in the future.
func ValidatePurchaseDate(d date.Date) error {
	if d.IsZero() {
		return invalid("purchaseDate", "purchase date is required")
	}
	if d.After(date.Today()) {
		return invalid("purchaseDate", "purchase date %s is in the future", d)
	}
	return nil
}

// ValidateDateString checks that s is a calendar date and returns it.
func ValidateDateString(field, s string) (date.Date, error) {
	d, err := date.ParseAny(s)
	if err != nil {
		return date.Date{}, invalid(field, "%v", err)
	}
	return d, nil
}

// ValidateAccountName checks the account name length and character set.
func ValidateAccountName(name string) error {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n == 0 {
		return invalid("name", "account name is required")
	}
	if n > maxAccountName {
		return invalid("name", "account name cannot exceed %d characters", maxAccountName)
	}
	if i := strings.IndexAny(name, forbiddenAccountChars); i >= 0 {
		return invalid("name", "account name cannot contain %q", name[i])
	}
	return nil
}
