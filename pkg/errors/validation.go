package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxPromoCodeLength is the longest promo code an administrator may add.
const MaxPromoCodeLength = 10

// promoCodeRegex matches codes made of ASCII letters and digits.
var promoCodeRegex = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// ValidatePromoCode validates a promo code before it is stored in the ledger.
//
// The validation rules:
//   - No empty codes
//   - Maximum length of [MaxPromoCodeLength] characters
//   - Only ASCII letters and digits
func ValidatePromoCode(code string) error {
	if code == "" {
		return New(ErrCodeInvalidCode, "code cannot be empty")
	}
	if len(code) > MaxPromoCodeLength {
		return New(ErrCodeInvalidCode, "code must be at most %d characters", MaxPromoCodeLength)
	}
	if !promoCodeRegex.MatchString(code) {
		return New(ErrCodeInvalidCode, "code may only contain letters and digits: %q", code)
	}
	return nil
}

// MaxCodeCredits is the largest credit amount one promo code may carry.
const MaxCodeCredits = 100

// ValidateCredits validates a credit amount attached to a promo code.
func ValidateCredits(n int) error {
	if n < 1 || n > MaxCodeCredits {
		return New(ErrCodeInvalidInput, "credits must be between 1 and %d, got %d", MaxCodeCredits, n)
	}
	return nil
}

// ValidateAssetName validates a generated asset or export file name.
// It ensures the name is a simple basename that is safe to join onto an
// output directory.
func ValidateAssetName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPath, "asset name cannot be empty")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "asset name contains invalid control characters")
		}
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidPath, "asset name cannot contain path separators")
	}

	if name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return New(ErrCodeInvalidPath, "asset name cannot be a hidden file")
	}

	return nil
}

// ValidateLinkURL validates the target of a link directive.
// The bare "#" placeholder and http(s) or mailto targets are accepted.
func ValidateLinkURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	if rawURL == "#" {
		return nil
	}
	for _, scheme := range []string{"http://", "https://", "mailto:"} {
		if strings.HasPrefix(rawURL, scheme) {
			return nil
		}
	}
	return New(ErrCodeInvalidInput, "URL must use http, https or mailto scheme: %q", rawURL)
}
