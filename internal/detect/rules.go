package detect

import (
	"regexp"
	"strings"
)

// GetDefaultRules returns the built-in rules in enumeration order
func GetDefaultRules() []Rule {
	return []Rule{
		{
			Category:    CategoryNationalID,
			Description: "Aadhaar number, 12 digits optionally grouped 4-4-4",
			Pattern:     regexp.MustCompile(`\b\d{4}\s?\d{4}\s?\d{4}\b`),
			Normalize:   stripSpace,
		},
		{
			Category:    CategoryTaxID,
			Description: "PAN, 5 letters, 4 digits, 1 letter",
			Pattern:     regexp.MustCompile(`\b[A-Z]{5}[0-9]{4}[A-Z]{1}\b`),
		},
		{
			Category:    CategoryMobileNumber,
			Description: "Indian mobile number with optional +91 prefix",
			Pattern:     regexp.MustCompile(`\b(?:(?:\+91[\-\s]?)?[6-9]\d{9})\b`),
		},
	}
}

// stripSpace removes the optional group separators of an Aadhaar number
func stripSpace(value string) string {
	return strings.Join(strings.Fields(value), "")
}
