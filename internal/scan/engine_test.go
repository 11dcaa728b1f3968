package scan

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"testing"

	"github.com/raaihank/dpdp-scanner/internal/detect"
	"github.com/raaihank/dpdp-scanner/internal/logger"
	"github.com/raaihank/dpdp-scanner/internal/source"
)

// step is one element yielded by a fakeSource
type step struct {
	unit source.TextUnit
	err  error
}

type fakeSource struct {
	name  string
	steps []step
}

func (f *fakeSource) Name() string {
	return f.name
}

func (f *fakeSource) Units(ctx context.Context) iter.Seq2[source.TextUnit, error] {
	return func(yield func(source.TextUnit, error) bool) {
		for _, s := range f.steps {
			if !yield(s.unit, s.err) {
				return
			}
		}
	}
}

type fakeRecorder struct {
	results []*Result
	err     error
}

func (r *fakeRecorder) Record(ctx context.Context, result *Result) error {
	r.results = append(r.results, result)
	return r.err
}

type fakeNotifier struct {
	results []*Result
}

func (n *fakeNotifier) ScanCompleted(result *Result) {
	n.results = append(n.results, result)
}

func newTestEngine(opts ...Option) *Engine {
	return NewEngine(detect.NewScanner(detect.DefaultRegistry()), logger.NewNop(), opts...)
}

func unit(text, location string) step {
	return step{unit: source.TextUnit{Text: text, Location: location}}
}

func TestEngine_Run_OrderAndRisk(t *testing.T) {
	src := &fakeSource{
		name: "memory",
		steps: []step{
			unit("PAN ABCDE1234F", "1"),
			unit("nothing here", "2"),
			unit("Aadhaar 4521 8956 2314 phone 9876543210", "3"),
		},
	}

	result, err := newTestEngine().Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.ID == "" {
		t.Error("Expected scan ID")
	}
	if result.Source != "memory" {
		t.Errorf("Expected source memory, got %s", result.Source)
	}
	if result.UnitsScanned != 3 {
		t.Errorf("Expected 3 units, got %d", result.UnitsScanned)
	}
	if result.TotalCount != 3 || len(result.Findings) != 3 {
		t.Fatalf("Expected 3 findings, got %d", result.TotalCount)
	}
	if result.RiskLevel != RiskHigh || result.ComplianceStatus != StatusNonCompliant {
		t.Errorf("Expected HIGH/NON_COMPLIANT, got %s/%s", result.RiskLevel, result.ComplianceStatus)
	}

	want := []detect.Finding{
		{Category: detect.CategoryTaxID, MaskedValue: "******234F", Location: "1"},
		{Category: detect.CategoryNationalID, MaskedValue: "********2314", Location: "3"},
		{Category: detect.CategoryMobileNumber, MaskedValue: "******3210", Location: "3"},
	}
	for i := range want {
		if result.Findings[i] != want[i] {
			t.Errorf("Finding %d: expected %+v, got %+v", i, want[i], result.Findings[i])
		}
	}
}

func TestEngine_Run_EmptySource(t *testing.T) {
	result, err := newTestEngine().Run(context.Background(), &fakeSource{name: "empty"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.TotalCount != 0 || result.RiskLevel != RiskLow || result.ComplianceStatus != StatusCompliant {
		t.Errorf("Expected clean LOW result, got %+v", result)
	}
	if result.Findings == nil {
		t.Error("Findings should be an empty slice, not nil")
	}
}

func TestEngine_Run_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	src, err := source.NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}

	result, err := newTestEngine().Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.TotalCount != 0 || result.RiskLevel != RiskLow {
		t.Errorf("Expected total 0 and LOW, got %d and %s", result.TotalCount, result.RiskLevel)
	}
}

func TestEngine_Run_PartialFailure(t *testing.T) {
	src := &fakeSource{
		name: "db",
		steps: []step{
			unit("('Raj', '9876543210')", "Table 'a' -> Row 1"),
			{err: &source.PartialReadError{Unit: "table 'b'", Err: errors.New("permission denied")}},
			unit("('ABCDE1234F',)", "Table 'c' -> Row 1"),
		},
	}

	result, err := newTestEngine().Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Partial failure must not abort the scan: %v", err)
	}
	if result.TotalCount != 2 {
		t.Errorf("Expected findings from both readable tables, got %d", result.TotalCount)
	}
	if len(result.Skipped) != 1 {
		t.Errorf("Expected one skipped unit, got %v", result.Skipped)
	}
}

func TestEngine_Run_FatalError(t *testing.T) {
	recorder := &fakeRecorder{}
	notifier := &fakeNotifier{}
	connErr := &source.ConnectionError{Backend: "database", Err: errors.New("connection refused")}

	src := &fakeSource{
		name: "db",
		steps: []step{
			unit("9876543210", "1"),
			{err: connErr},
			unit("ABCDE1234F", "2"),
		},
	}

	result, err := newTestEngine(WithRecorder(recorder), WithNotifier(notifier)).Run(context.Background(), src)
	if err == nil {
		t.Fatal("Expected error")
	}
	if result != nil {
		t.Errorf("Expected no partial result, got %+v", result)
	}

	var target *source.ConnectionError
	if !errors.As(err, &target) {
		t.Errorf("Expected ConnectionError in chain, got %v", err)
	}
	if len(recorder.results) != 0 || len(notifier.results) != 0 {
		t.Error("Failed scans must not be recorded or announced")
	}
}

func TestEngine_Run_Cancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	if err := os.WriteFile(path, []byte("ABCDE1234F\n"), 0o600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	src, err := source.NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}

	recorder := &fakeRecorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newTestEngine(WithRecorder(recorder)).Run(ctx, src)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if result != nil {
		t.Errorf("Expected no result for a cancelled scan, got %+v", result)
	}
	if len(recorder.results) != 0 {
		t.Error("Cancelled scans must not be recorded")
	}
}

func TestEngine_Run_RecorderAndNotifier(t *testing.T) {
	recorder := &fakeRecorder{err: errors.New("history unavailable")}
	notifier := &fakeNotifier{}

	src := &fakeSource{name: "file.txt", steps: []step{unit("9876543210", "1")}}

	result, err := newTestEngine(WithRecorder(recorder), WithNotifier(notifier)).Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Recorder failure must not fail the scan: %v", err)
	}
	if len(recorder.results) != 1 || recorder.results[0] != result {
		t.Error("Expected result to be recorded once")
	}
	if len(notifier.results) != 1 || notifier.results[0] != result {
		t.Error("Expected result to be announced once")
	}
}

func TestClassify(t *testing.T) {
	if Classify(0) != RiskLow {
		t.Error("Zero findings should be LOW")
	}
	if Classify(1) != RiskHigh {
		t.Error("One finding should be HIGH")
	}
	if RiskLow.Status() != StatusCompliant || RiskHigh.Status() != StatusNonCompliant {
		t.Error("Unexpected compliance mapping")
	}
}
