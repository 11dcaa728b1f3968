package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/raaihank/dpdp-scanner/internal/logger"
	"github.com/raaihank/dpdp-scanner/internal/scan"
	"github.com/raaihank/dpdp-scanner/internal/source"
)

const schema = `
	CREATE TABLE IF NOT EXISTS scans (
		id          BIGSERIAL PRIMARY KEY,
		scan_id     TEXT NOT NULL,
		filename    TEXT NOT NULL,
		scan_date   TIMESTAMPTZ NOT NULL,
		total_leaks INTEGER NOT NULL,
		risk_score  TEXT NOT NULL
	)`

// PostgresStore keeps scan history in a PostgreSQL table
type PostgresStore struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewPostgresStore connects to databaseURL and creates the scans table
func NewPostgresStore(ctx context.Context, databaseURL string, maxOpenConns int, log *logger.Logger) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	store := &PostgresStore{db: db, logger: log}

	if err := store.initialize(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history store: %w", err)
	}

	log.Info("History store initialized",
		zap.String("backend", "postgres"),
		zap.String("database_url", source.MaskDSN(databaseURL)),
	)

	return store, nil
}

// NewPostgresStoreFromDB wraps an existing pool without creating the schema
func NewPostgresStoreFromDB(db *sqlx.DB, log *logger.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: log}
}

func (s *PostgresStore) initialize(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *PostgresStore) Record(ctx context.Context, result *scan.Result) error {
	record := FromResult(result)

	query := `
		INSERT INTO scans (scan_id, filename, scan_date, total_leaks, risk_score)
		VALUES (:scan_id, :filename, :scan_date, :total_leaks, :risk_score)`

	if _, err := s.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("failed to insert scan record: %w", err)
	}

	s.logger.Debug("Scan recorded",
		zap.String("scan_id", record.ScanID),
		zap.Int("total_leaks", record.FindingCount),
	)
	return nil
}

// Recent returns up to n records, newest first
func (s *PostgresStore) Recent(ctx context.Context, n int) ([]Record, error) {
	query := `
		SELECT id, scan_id, filename, scan_date, total_leaks, risk_score
		FROM scans
		ORDER BY id DESC
		LIMIT $1`

	records := []Record{}
	if err := s.db.SelectContext(ctx, &records, query, n); err != nil {
		return nil, fmt.Errorf("failed to query scan history: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
