// Package schema caches column metadata and sample rows for registered
// tables. The cache is populated once at startup; a table whose load
// fails simply has no entry, which disables SQL generation for it.
package schema

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cladtek/dbchat-engine/pkg/database"
	"github.com/cladtek/dbchat-engine/pkg/registry"
)

// Column describes one column of a cached table.
type Column struct {
	Name      string
	DataType  string
	MaxLength int64 // 0 when not applicable, -1 for max types
	Nullable  bool
}

// Entry is the cached metadata for one table.
type Entry struct {
	TableName  string
	Columns    []Column
	SampleRows []map[string]any
}

// HasColumn reports whether the table has a column with the given name,
// case-insensitively.
func (e *Entry) HasColumn(name string) bool {
	for _, col := range e.Columns {
		if strings.EqualFold(col.Name, name) {
			return true
		}
	}
	return false
}

const columnQuery = `SELECT COLUMN_NAME, DATA_TYPE, CHARACTER_MAXIMUM_LENGTH, IS_NULLABLE
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_NAME = @p1
ORDER BY ORDINAL_POSITION`

// Cache holds schema entries keyed by table name. Writes happen only
// during WarmUp; reads afterwards are lock-free via the loaded map.
type Cache struct {
	db         database.Querier
	logger     *zap.Logger
	sampleRows int
	entries    map[string]*Entry
}

// NewCache builds an empty cache reading from db. sampleRows bounds how
// many example rows are fetched per table.
func NewCache(db database.Querier, sampleRows int, logger *zap.Logger) *Cache {
	if sampleRows <= 0 {
		sampleRows = 2
	}
	return &Cache{
		db:         db,
		logger:     logger.Named("schema"),
		sampleRows: sampleRows,
		entries:    make(map[string]*Entry),
	}
}

// WarmUp loads every registered table sequentially. A failed table is
// logged and skipped; it never aborts the rest. Returns how many tables
// loaded successfully.
func (c *Cache) WarmUp(ctx context.Context, reg *registry.Registry) int {
	loaded := 0
	for _, mapping := range reg.Mappings() {
		entry, err := c.load(ctx, mapping.TableName)
		if err != nil {
			c.logger.Warn("schema load failed, table disabled for generation",
				zap.String("table", mapping.TableName),
				zap.Error(err))
			continue
		}
		c.entries[mapping.TableName] = entry
		loaded++
		c.logger.Info("schema cached",
			zap.String("table", mapping.TableName),
			zap.Int("columns", len(entry.Columns)),
			zap.Int("sample_rows", len(entry.SampleRows)))
	}
	return loaded
}

// Len returns how many tables loaded successfully.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Get returns the cached entry for a table, if its load succeeded.
func (c *Cache) Get(tableName string) (*Entry, bool) {
	entry, ok := c.entries[tableName]
	return entry, ok
}

func (c *Cache) load(ctx context.Context, tableName string) (*Entry, error) {
	cols, err := c.db.Query(ctx, columnQuery, tableName)
	if err != nil {
		return nil, fmt.Errorf("loading columns for %s: %w", tableName, err)
	}
	if cols.RowCount() == 0 {
		return nil, fmt.Errorf("table %s has no columns in INFORMATION_SCHEMA", tableName)
	}

	entry := &Entry{TableName: tableName}
	for _, row := range cols.Rows {
		col := Column{
			Name:     toString(row["COLUMN_NAME"]),
			DataType: toString(row["DATA_TYPE"]),
			Nullable: strings.EqualFold(toString(row["IS_NULLABLE"]), "YES"),
		}
		if v, ok := row["CHARACTER_MAXIMUM_LENGTH"]; ok && v != nil {
			col.MaxLength = toInt64(v)
		}
		entry.Columns = append(entry.Columns, col)
	}

	// The table name comes from static configuration, never user input.
	sampleQuery := fmt.Sprintf("SELECT TOP %d * FROM %s", c.sampleRows, tableName)
	sample, err := c.db.Query(ctx, sampleQuery)
	if err != nil {
		c.logger.Debug("sample fetch failed, continuing without samples",
			zap.String("table", tableName),
			zap.Error(err))
	} else {
		entry.SampleRows = sample.Rows
	}

	return entry, nil
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
