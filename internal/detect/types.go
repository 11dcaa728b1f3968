package detect

import "regexp"

// Category identifies a kind of regulated personal data
type Category string

const (
	// CategoryNationalID is a 12 digit Aadhaar number
	CategoryNationalID Category = "NATIONAL_ID"
	// CategoryTaxID is a 10 character PAN
	CategoryTaxID Category = "TAX_ID"
	// CategoryMobileNumber is an Indian mobile number
	CategoryMobileNumber Category = "MOBILE_NUMBER"
)

// Rule binds a category to its compiled pattern. Normalize, when set,
// canonicalizes a matched span before it is reported.
type Rule struct {
	Category    Category
	Description string
	Pattern     *regexp.Regexp
	Normalize   func(string) string
}

// Match is a raw, unredacted occurrence of a pattern
type Match struct {
	Category Category
	Value    string
}

// Finding represents one detected occurrence, safe to report
type Finding struct {
	Category    Category `json:"type" yaml:"type"`
	MaskedValue string   `json:"value_masked" yaml:"value_masked"`
	Location    string   `json:"line" yaml:"line"`
}
