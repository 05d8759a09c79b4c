// Package export renders query results to Excel workbooks. Only SQL that
// already passed validation and was recorded in session history is ever
// re-executed here.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/cladtek/dbchat-engine/pkg/apperrors"
	"github.com/cladtek/dbchat-engine/pkg/database"
	"github.com/cladtek/dbchat-engine/pkg/registry"
	"github.com/cladtek/dbchat-engine/pkg/session"
	"github.com/cladtek/dbchat-engine/pkg/sqlguard"
)

const (
	defaultSheetName = "Data"
	// maxColumnWidth caps auto-sized columns, in characters.
	maxColumnWidth = 50
)

// Exporter re-runs a session's last validated query and writes the rows
// as an .xlsx workbook.
type Exporter struct {
	db       database.Querier
	registry *registry.Registry
	logger   *zap.Logger
}

// NewExporter builds an Exporter. db may be nil when the engine runs
// without a database; every export then fails with ErrNoExportableQuery.
func NewExporter(db database.Querier, reg *registry.Registry, logger *zap.Logger) *Exporter {
	return &Exporter{db: db, registry: reg, logger: logger.Named("export")}
}

// Result is a generated workbook plus its suggested filename.
type Result struct {
	Filename string
	Content  []byte
}

// LastQuery exports the most recent query recorded in the session's
// history. Field-level authorization is applied the same way the chat
// pipeline applies it, so an export never widens what a session can see.
func (e *Exporter) LastQuery(ctx context.Context, sess *session.Session) (*Result, error) {
	if e.db == nil || sess == nil {
		return nil, apperrors.ErrNoExportableQuery
	}

	query, tableName := lastRecordedQuery(sess)
	if query == "" {
		return nil, apperrors.ErrNoExportableQuery
	}

	// History only ever holds validated SQL, but re-check before touching
	// the database: history contents are still session state.
	if err := sqlguard.Validate(query); err != nil {
		e.logger.Warn("recorded query failed re-validation",
			zap.String("session_id", sess.ID()),
			zap.Error(err))
		return nil, apperrors.ErrNoExportableQuery
	}

	result, err := e.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("export query failed: %w", err)
	}
	if result.RowCount() == 0 {
		return nil, apperrors.ErrNoExportableQuery
	}

	mapping := e.registry.Lookup(tableName)
	rows := registry.FilterFieldsByAuth(mapping, result.Rows, sess.Authenticated())
	columns := visibleColumns(result.Columns, rows)

	content, err := WriteWorkbook(defaultSheetName, columns, rows)
	if err != nil {
		return nil, fmt.Errorf("workbook generation failed: %w", err)
	}

	base := tableName
	if base == "" {
		base = "export"
	}
	e.logger.Info("export generated",
		zap.String("session_id", sess.ID()),
		zap.String("table", base),
		zap.Int("rows", len(rows)))

	return &Result{Filename: Filename(base), Content: content}, nil
}

// WriteWorkbook renders rows into a single-sheet .xlsx. Columns preserves
// the select-list order; widths are auto-sized from the data.
func WriteWorkbook(sheetName string, columns []string, rows []map[string]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if sheetName == "" {
		sheetName = defaultSheetName
	}
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, col); err != nil {
			return nil, err
		}
	}

	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}

	for r, row := range rows {
		for i, col := range columns {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return nil, err
			}
			value := cellValue(row[col])
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, err
			}
			if n := len(fmt.Sprint(value)); n > widths[i] {
				widths[i] = n
			}
		}
	}

	for i := range columns {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		width := widths[i] + 2
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		if err := f.SetColWidth(sheetName, name, name, float64(width)); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Filename appends a second-resolution timestamp to the base name.
func Filename(base string) string {
	stamp := time.Now().UTC().Format("2006-01-02_15-04-05")
	return fmt.Sprintf("%s_%s.xlsx", base, stamp)
}

// lastRecordedQuery walks history newest-first for the last user turn
// that carried a query.
func lastRecordedQuery(sess *session.Session) (query, tableName string) {
	history := sess.History()
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "user" && history[i].SQLQuery != "" {
			return history[i].SQLQuery, history[i].TableName
		}
	}
	return "", ""
}

// visibleColumns keeps the original column order but drops columns the
// authorization filter removed.
func visibleColumns(columns []string, rows []map[string]any) []string {
	if len(rows) == 0 {
		return columns
	}
	kept := make([]string, 0, len(columns))
	for _, col := range columns {
		if _, ok := rows[0][col]; ok {
			kept = append(kept, col)
		}
	}
	return kept
}

func cellValue(v any) any {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case []byte:
		return string(val)
	default:
		return val
	}
}
