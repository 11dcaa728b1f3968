package detect

// Scanner applies a registry to units of text. It holds no mutable state
// and may be shared between concurrent scans.
type Scanner struct {
	registry *Registry
}

// NewScanner creates a scanner backed by registry
func NewScanner(registry *Registry) *Scanner {
	return &Scanner{registry: registry}
}

// Registry returns the registry the scanner matches against
func (s *Scanner) Registry() *Registry {
	return s.registry
}

// Scan finds PII in text and returns redacted findings tagged with location
func (s *Scanner) Scan(text, location string) []Finding {
	matches := s.registry.MatchAll(text)
	if len(matches) == 0 {
		return nil
	}

	findings := make([]Finding, 0, len(matches))
	for _, m := range matches {
		findings = append(findings, Finding{
			Category:    m.Category,
			MaskedValue: Redact(m.Value),
			Location:    location,
		})
	}

	return findings
}
