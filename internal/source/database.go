package source

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// MaxRowsPerTable bounds how many rows are sampled from each table
const MaxRowsPerTable = 100

// DatabaseSourceName identifies live database scans in results and history
const DatabaseSourceName = "Live Database Scan"

// Catalog is the introspection and sampling capability a database scan
// needs from a backend
type Catalog interface {
	// Tables lists accessible tables in introspection order
	Tables(ctx context.Context) ([]string, error)
	// SampleRows reads at most limit rows of table as column values
	SampleRows(ctx context.Context, table string, limit int) ([][]any, error)
	Close() error
}

// sqlCatalog implements Catalog over a sqlx connection pool
type sqlCatalog struct {
	db *sqlx.DB
}

// OpenCatalog connects to a database. The driver must be registered;
// "postgres" is provided by lib/pq.
func OpenCatalog(ctx context.Context, driver, dsn string) (Catalog, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, &ConnectionError{Backend: "database", Err: err}
	}

	// one scan runs sequentially over its tables
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(time.Minute)

	return &sqlCatalog{db: db}, nil
}

// NewCatalog wraps an existing connection pool
func NewCatalog(db *sqlx.DB) Catalog {
	return &sqlCatalog{db: db}
}

func (c *sqlCatalog) Tables(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	var tables []string
	if err := c.db.SelectContext(ctx, &tables, query); err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return tables, nil
}

func (c *sqlCatalog) SampleRows(ctx context.Context, table string, limit int) ([][]any, error) {
	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", pq.QuoteIdentifier(table), limit)

	rows, err := c.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result [][]any
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		result = append(result, values)
	}

	return result, rows.Err()
}

func (c *sqlCatalog) Close() error {
	return c.db.Close()
}

// Database samples every table of a live database
type Database struct {
	catalog Catalog
}

// NewDatabase creates a database source over catalog
func NewDatabase(catalog Catalog) *Database {
	return &Database{catalog: catalog}
}

// OpenDatabase connects to the database described by driver and dsn
func OpenDatabase(ctx context.Context, driver, dsn string) (*Database, error) {
	catalog, err := OpenCatalog(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	return NewDatabase(catalog), nil
}

// Name returns the identifier recorded for database scans
func (d *Database) Name() string {
	return DatabaseSourceName
}

// Units yields one unit per sampled row, labelled with its table and
// 1-based row number. A table that cannot be read is skipped.
func (d *Database) Units(ctx context.Context) iter.Seq2[TextUnit, error] {
	return func(yield func(TextUnit, error) bool) {
		tables, err := d.catalog.Tables(ctx)
		if err != nil {
			yield(TextUnit{}, &ConnectionError{Backend: "database", Err: err})
			return
		}
		if len(tables) == 0 {
			yield(TextUnit{}, &NotFoundError{Target: DatabaseSourceName, Message: "no accessible tables"})
			return
		}

		for _, table := range tables {
			if err := ctx.Err(); err != nil {
				yield(TextUnit{}, err)
				return
			}

			rows, err := d.catalog.SampleRows(ctx, table, MaxRowsPerTable)
			if err != nil {
				if !yield(TextUnit{}, &PartialReadError{Unit: fmt.Sprintf("table '%s'", table), Err: err}) {
					return
				}
				continue
			}

			for i, row := range rows {
				unit := TextUnit{
					Text:     FormatRow(row),
					Location: fmt.Sprintf("Table '%s' -> Row %d", table, i+1),
				}
				if !yield(unit, nil) {
					return
				}
			}
		}
	}
}

// Close releases the database connection
func (d *Database) Close() error {
	return d.catalog.Close()
}

// FormatRow renders column values as a single tuple-like line, for example
// ('Raj', '9876543210', 42, None)
func FormatRow(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatValue(v)
	}

	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case string:
		return "'" + decodeLossy(val) + "'"
	case []byte:
		return "'" + decodeLossy(string(val)) + "'"
	case time.Time:
		return "'" + val.Format(time.RFC3339) + "'"
	default:
		return fmt.Sprint(val)
	}
}

var dsnPassword = regexp.MustCompile(`(?i)(password\s*=\s*)('[^']*'|\S+)`)

// MaskDSN hides the password of a URL or key=value connection string for
// logging
func MaskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err == nil && u.User != nil {
		return u.Redacted()
	}
	return dsnPassword.ReplaceAllString(dsn, "${1}xxxxx")
}
