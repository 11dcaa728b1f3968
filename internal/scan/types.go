package scan

import (
	"context"
	"time"

	"github.com/raaihank/dpdp-scanner/internal/detect"
)

// RiskLevel is the binary classification of a scanned target
type RiskLevel string

const (
	RiskHigh RiskLevel = "HIGH"
	RiskLow  RiskLevel = "LOW"
)

// ComplianceStatus mirrors RiskLevel in the terms reports use
type ComplianceStatus string

const (
	StatusCompliant    ComplianceStatus = "COMPLIANT"
	StatusNonCompliant ComplianceStatus = "NON_COMPLIANT"
)

// Result is the outcome of one scan. Findings are in source emission order.
type Result struct {
	ID               string           `json:"scan_id" yaml:"scan_id"`
	Source           string           `json:"filename" yaml:"source"`
	StartedAt        time.Time        `json:"started_at" yaml:"started_at"`
	CompletedAt      time.Time        `json:"completed_at" yaml:"completed_at"`
	Findings         []detect.Finding `json:"details" yaml:"findings"`
	TotalCount       int              `json:"total_leaks" yaml:"total_count"`
	RiskLevel        RiskLevel        `json:"risk_score" yaml:"risk_level"`
	ComplianceStatus ComplianceStatus `json:"compliance_status" yaml:"compliance_status"`
	UnitsScanned     int              `json:"units_scanned" yaml:"units_scanned"`
	Skipped          []string         `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Classify derives the risk level from a finding count
func Classify(total int) RiskLevel {
	if total > 0 {
		return RiskHigh
	}
	return RiskLow
}

// Status derives the compliance status from a risk level
func (r RiskLevel) Status() ComplianceStatus {
	if r == RiskHigh {
		return StatusNonCompliant
	}
	return StatusCompliant
}

// Recorder persists completed scans
type Recorder interface {
	Record(ctx context.Context, result *Result) error
}

// Notifier is told about every completed scan
type Notifier interface {
	ScanCompleted(result *Result)
}
