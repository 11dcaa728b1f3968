package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/raaihank/dpdp-scanner/internal/detect"
	"github.com/raaihank/dpdp-scanner/internal/logger"
	"github.com/raaihank/dpdp-scanner/internal/source"
)

// Engine drives any source through the scanner. It keeps no state between
// runs and may be used by concurrent scans.
type Engine struct {
	scanner  *detect.Scanner
	logger   *logger.Logger
	tracer   trace.Tracer
	recorder Recorder
	notifier Notifier
}

// Option configures an Engine
type Option func(*Engine)

// WithRecorder persists every successful scan
func WithRecorder(recorder Recorder) Option {
	return func(e *Engine) {
		e.recorder = recorder
	}
}

// WithNotifier announces every successful scan
func WithNotifier(notifier Notifier) Option {
	return func(e *Engine) {
		e.notifier = notifier
	}
}

// WithTracer overrides the global OpenTelemetry tracer
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// NewEngine creates a scan engine
func NewEngine(scanner *detect.Scanner, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		scanner: scanner,
		logger:  log,
		tracer:  otel.Tracer("github.com/raaihank/dpdp-scanner/internal/scan"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Detectors lists the categories this engine looks for
func (e *Engine) Detectors() []detect.Category {
	return e.scanner.Registry().Categories()
}

// Run scans every unit src produces. Partial read failures are logged and
// listed in Result.Skipped. Any other error aborts the scan and no result
// is returned.
func (e *Engine) Run(ctx context.Context, src source.Source) (*Result, error) {
	result := &Result{
		ID:        uuid.NewString(),
		Source:    src.Name(),
		StartedAt: time.Now().UTC(),
		Findings:  []detect.Finding{},
	}
	log := e.logger.WithScan(result.ID, result.Source)

	ctx, span := e.tracer.Start(ctx, "scan.run", trace.WithAttributes(
		attribute.String("scan.id", result.ID),
		attribute.String("scan.source", result.Source),
	))
	defer span.End()

	log.Info("Scan started")

	for unit, err := range src.Units(ctx) {
		if err != nil {
			if source.IsPartial(err) {
				log.Warn("Skipping unreadable unit", zap.Error(err))
				result.Skipped = append(result.Skipped, err.Error())
				continue
			}

			span.RecordError(err)
			span.SetStatus(codes.Error, "scan aborted")
			log.Error("Scan aborted", zap.Error(err), zap.Int("units_scanned", result.UnitsScanned))
			return nil, fmt.Errorf("scan of %s failed: %w", result.Source, err)
		}

		result.UnitsScanned++
		result.Findings = append(result.Findings, e.scanner.Scan(unit.Text, unit.Location)...)
	}

	result.CompletedAt = time.Now().UTC()
	result.TotalCount = len(result.Findings)
	result.RiskLevel = Classify(result.TotalCount)
	result.ComplianceStatus = result.RiskLevel.Status()

	span.SetAttributes(
		attribute.Int("scan.units", result.UnitsScanned),
		attribute.Int("scan.findings", result.TotalCount),
		attribute.Int("scan.skipped", len(result.Skipped)),
		attribute.String("scan.risk", string(result.RiskLevel)),
	)

	log.Info("Scan completed",
		zap.Int("units_scanned", result.UnitsScanned),
		zap.Int("findings", result.TotalCount),
		zap.Int("skipped", len(result.Skipped)),
		zap.String("risk_level", string(result.RiskLevel)),
		zap.Duration("duration", result.CompletedAt.Sub(result.StartedAt)),
	)

	if e.recorder != nil {
		if err := e.recorder.Record(ctx, result); err != nil {
			log.Error("Failed to record scan history", zap.Error(err))
		}
	}
	if e.notifier != nil {
		e.notifier.ScanCompleted(result)
	}

	return result, nil
}
