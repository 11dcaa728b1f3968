// Package history persists a summary of every completed scan and answers
// "most recent N scans" queries.
package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/raaihank/dpdp-scanner/internal/scan"
)

// DateLayout is the timestamp layout of a record's "date" field
const DateLayout = "2006-01-02 15:04:05"

// Record summarises one scan. Findings themselves are never stored.
type Record struct {
	ID           int64     `db:"id" json:"-"`
	ScanID       string    `db:"scan_id" json:"scan_id"`
	Source       string    `db:"filename" json:"filename"`
	ScannedAt    time.Time `db:"scan_date" json:"date"`
	FindingCount int       `db:"total_leaks" json:"leaks"`
	RiskLevel    string    `db:"risk_score" json:"risk"`
}

// recordView is the JSON and YAML shape of a Record
type recordView struct {
	ScanID       string `json:"scan_id" yaml:"scan_id"`
	Source       string `json:"filename" yaml:"filename"`
	Date         string `json:"date" yaml:"date"`
	FindingCount int    `json:"leaks" yaml:"leaks"`
	RiskLevel    string `json:"risk" yaml:"risk"`
}

func (r Record) view() recordView {
	return recordView{
		ScanID:       r.ScanID,
		Source:       r.Source,
		Date:         r.ScannedAt.Format(DateLayout),
		FindingCount: r.FindingCount,
		RiskLevel:    r.RiskLevel,
	}
}

// MarshalJSON writes the date with DateLayout rather than RFC 3339
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.view())
}

// MarshalYAML mirrors MarshalJSON
func (r Record) MarshalYAML() (any, error) {
	return r.view(), nil
}

// Store is a scan history backend. It satisfies scan.Recorder.
type Store interface {
	Record(ctx context.Context, result *scan.Result) error
	Recent(ctx context.Context, n int) ([]Record, error)
	Close() error
}

// FromResult builds the history record for a completed scan
func FromResult(result *scan.Result) Record {
	scannedAt := result.CompletedAt
	if scannedAt.IsZero() {
		scannedAt = time.Now().UTC()
	}

	return Record{
		ScanID:       result.ID,
		Source:       result.Source,
		ScannedAt:    scannedAt,
		FindingCount: result.TotalCount,
		RiskLevel:    string(result.RiskLevel),
	}
}
