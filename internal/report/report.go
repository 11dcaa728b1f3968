// Package report renders scan results for people and machines
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/raaihank/dpdp-scanner/internal/history"
	"github.com/raaihank/dpdp-scanner/internal/scan"
)

// Format selects a renderer
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a format name
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatTable, FormatJSON, FormatYAML:
		return Format(name), nil
	default:
		return "", fmt.Errorf("unknown report format: %s (must be table, json, or yaml)", name)
	}
}

// WriteResult renders a scan result in format
func WriteResult(w io.Writer, result *scan.Result, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(result)
	default:
		return writeResultTable(w, result)
	}
}

func writeResultTable(w io.Writer, result *scan.Result) error {
	fmt.Fprintln(w, "DPDP Compliance Audit Report")
	fmt.Fprintf(w, "Target: %s\n\n", result.Source)

	if result.TotalCount == 0 {
		fmt.Fprintln(w, "STATUS: COMPLIANT")
		fmt.Fprintln(w, "No Personally Identifiable Information (PII) detected.")
	} else {
		fmt.Fprintf(w, "STATUS: NON-COMPLIANT (Risk Level: %s)\n", result.RiskLevel)
		fmt.Fprintf(w, "Total Leaks Found: %d\n\n", result.TotalCount)

		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Violation Type", "Location", "Masked Data"})
		table.SetAutoWrapText(false)
		for _, f := range result.Findings {
			table.Append([]string{string(f.Category), f.Location, f.MaskedValue})
		}
		table.Render()

		fmt.Fprintln(w, "\nACTION REQUIRED: Encrypt or anonymize the data above to comply with the DPDP Act 2023.")
	}

	if len(result.Skipped) > 0 {
		fmt.Fprintf(w, "\nSkipped %d unreadable unit(s):\n", len(result.Skipped))
		for _, s := range result.Skipped {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}

	return nil
}

// WriteHistory renders scan history records in format
func WriteHistory(w io.Writer, records []history.Record, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(records)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Source", "Date", "Leaks", "Risk"})
	table.SetAutoWrapText(false)
	for _, r := range records {
		table.Append([]string{
			r.Source,
			r.ScannedAt.Format(history.DateLayout),
			fmt.Sprint(r.FindingCount),
			r.RiskLevel,
		})
	}
	table.Render()

	return nil
}
