package detect

import "strings"

const (
	// MaskChar replaces every hidden character of a redacted value
	MaskChar = "*"
	// VisibleSuffix is the number of trailing characters left in clear text
	VisibleSuffix = 4
)

// Redact hides all but the last VisibleSuffix bytes of raw. Values of
// VisibleSuffix bytes or fewer are masked entirely. Patterns only match
// ASCII, so bytes and characters coincide.
func Redact(raw string) string {
	if len(raw) <= VisibleSuffix {
		return strings.Repeat(MaskChar, len(raw))
	}

	hidden := len(raw) - VisibleSuffix
	return strings.Repeat(MaskChar, hidden) + raw[hidden:]
}
