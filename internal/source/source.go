// Package source adapts files, database tables and object-store buckets
// into ordered streams of labelled text units.
package source

import (
	"context"
	"errors"
	"iter"
	"path/filepath"
	"strings"
)

// TextUnit is one piece of text to scan and where it came from
type TextUnit struct {
	Text     string
	Location string
}

// Source produces a finite, ordered, lazy sequence of text units.
//
// Units yields (unit, nil) for each unit. A yielded *PartialReadError means
// one unit was skipped and iteration continues; any other yielded error is
// fatal and ends the sequence.
type Source interface {
	Name() string
	Units(ctx context.Context) iter.Seq2[TextUnit, error]
}

// IsPartial reports whether err only skipped a single unit
func IsPartial(err error) bool {
	var partial *PartialReadError
	return errors.As(err, &partial)
}

// hasExtension reports whether name ends in one of the allowed extensions
func hasExtension(name string, allowed []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}

// decodeLossy drops invalid UTF-8 sequences
func decodeLossy(text string) string {
	return strings.ToValidUTF8(text, "")
}
