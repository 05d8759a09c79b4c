package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
	"go.uber.org/zap"

	"github.com/cladtek/dbchat-engine/pkg/config"
	"github.com/cladtek/dbchat-engine/pkg/logging"
	"github.com/cladtek/dbchat-engine/pkg/retry"
)

// DB wraps a *sql.DB connected to SQL Server.
type DB struct {
	db     *sql.DB
	logger *zap.Logger
}

// Connect opens a SQL Server connection and verifies it with a bounded
// retry. A failure here is how the service ends up in AI-only mode, so the
// caller decides whether the error is fatal.
func Connect(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("sqlserver", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("open connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(30 * time.Second)

	if err := retry.Do(ctx, retry.DefaultConfig(), func() error {
		return db.PingContext(ctx)
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("connection test failed: %w", err)
	}

	logger.Info("SQL Server connection established",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &DB{db: db, logger: logger.Named("db")}, nil
}

// Query runs a statement and returns all rows as maps keyed by column name.
// Byte-slice values are converted to strings so results marshal cleanly.
func (d *DB) Query(ctx context.Context, query string, args ...any) (*Result, error) {
	start := time.Now()

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		d.logger.Warn("query failed",
			zap.String("query", logging.SanitizeQuery(query)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	result := &Result{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			switch v := values[i].(type) {
			case []byte:
				row[col] = string(v)
			default:
				row[col] = v
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	d.logger.Debug("query executed",
		zap.String("query", logging.SanitizeQuery(query)),
		zap.Int("rows", len(result.Rows)),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

// Ping verifies the connection is still alive.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close releases the connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ensure DB implements Querier at compile time.
var _ Querier = (*DB)(nil)
