package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	vatIDRegex   = regexp.MustCompile(`^([A-Z]{2})([A-Z]?)(\d+)$`)
	controlRegex = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// vatFormat is the fixed layout after the country prefix
type vatFormat struct {
	letter string
	digits int
}

// vatFormats lists country prefixes with a fixed-length format
var vatFormats = map[string]vatFormat{
	"DE": {digits: 9},
	"AT": {letter: "U", digits: 8},
	"DK": {digits: 8},
	"FI": {digits: 8},
	"LU": {digits: 8},
}

// ValidateVATID checks the format of a VAT identification number: a two-letter
// country prefix followed by digits (e.g. DE123456789, ATU12345678). It does not verify the number.
func ValidateVATID(vatID string) error {
	m := vatIDRegex.FindStringSubmatch(vatID)
	if m == nil {
		return fmt.Errorf("VAT ID must be a two-letter country code followed by digits: %s", vatID)
	}
	country, letter, digits := m[1], m[2], m[3]

	format, ok := vatFormats[country]
	if !ok {
		if letter != "" {
			return fmt.Errorf("VAT ID must be a two-letter country code followed by digits: %s", vatID)
		}
		return nil
	}
	if letter != format.letter || len(digits) != format.digits {
		return fmt.Errorf("%s VAT ID must be %s%s followed by %d digits: %s", country, country, format.letter, format.digits, vatID)
	}

	return nil
}

// NormalizeVATID upper-cases and strips spaces, dots and dashes
func NormalizeVATID(vatID string) string {
	return strings.ToUpper(strings.NewReplacer(" ", "", ".", "", "-", "").Replace(strings.TrimSpace(vatID)))
}

// SanitizeString replaces control characters with spaces and collapses whitespace runs
func SanitizeString(s string) string {
	return strings.Join(strings.Fields(controlRegex.ReplaceAllString(s, " ")), " ")
}
