package export

import (
	"bytes"
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/cladtek/dbchat-engine/pkg/access"
	"github.com/cladtek/dbchat-engine/pkg/apperrors"
	"github.com/cladtek/dbchat-engine/pkg/database"
	"github.com/cladtek/dbchat-engine/pkg/registry"
	"github.com/cladtek/dbchat-engine/pkg/session"
)

func testRegistry() *registry.Registry {
	return registry.New([]registry.TableMapping{{
		TableName:        "view_employee",
		Keywords:         []string{"employee"},
		PublicFields:     []string{"EmpName", "Dept"},
		RestrictedFields: []string{"badgeId"},
	}})
}

func employeeResult() *database.Result {
	return &database.Result{
		Columns: []string{"EmpName", "Dept", "badgeId"},
		Rows: []map[string]any{
			{"EmpName": "Fernando Siboro", "Dept": "QA", "badgeId": "4106"},
			{"EmpName": "Ah muh Rojab", "Dept": "Production", "badgeId": "4127"},
		},
	}
}

func sessionWithQuery(store *session.Store, id, query, table string) *session.Session {
	sess := store.GetOrCreate(id)
	sess.Append(session.Message{Role: "user", Content: "tampilkan employee", SQLQuery: query, TableName: table})
	sess.Append(session.Message{Role: "assistant", Content: "Berikut datanya."})
	return sess
}

func TestLastQueryWritesWorkbook(t *testing.T) {
	db := database.NewMockQuerier()
	db.QueryFunc = func(ctx context.Context, query string, args ...any) (*database.Result, error) {
		return employeeResult(), nil
	}
	store := session.NewStore(20, time.Hour, zap.NewNop())
	sess := sessionWithQuery(store, "sess-export", "SELECT TOP 100 * FROM view_employee", "view_employee")

	exporter := NewExporter(db, testRegistry(), zap.NewNop())
	result, err := exporter.LastQuery(context.Background(), sess)
	require.NoError(t, err)

	assert.Equal(t, []string{"SELECT TOP 100 * FROM view_employee"}, db.Queries)
	assert.Regexp(t, regexp.MustCompile(`^view_employee_\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}\.xlsx$`), result.Filename)

	f, err := excelize.OpenReader(bytes.NewReader(result.Content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Data")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"EmpName", "Dept"}, rows[0], "restricted columns must be dropped for anonymous sessions")
	assert.Equal(t, []string{"Fernando Siboro", "QA"}, rows[1])
}

func TestLastQueryKeepsRestrictedColumnsWhenAuthenticated(t *testing.T) {
	db := database.NewMockQuerier()
	db.QueryFunc = func(ctx context.Context, query string, args ...any) (*database.Result, error) {
		return employeeResult(), nil
	}
	store := session.NewStore(20, time.Hour, zap.NewNop())
	sess := store.GetOrCreate("sess-auth")
	ctrl := access.DefaultControl()
	require.NotNil(t, sess.AdvanceAuth(ctrl, "saya nur iswanto"))
	require.NotNil(t, sess.AdvanceAuth(ctrl, "5553"))
	sess.Append(session.Message{Role: "user", Content: "tampilkan employee", SQLQuery: "SELECT TOP 100 * FROM view_employee", TableName: "view_employee"})

	exporter := NewExporter(db, testRegistry(), zap.NewNop())
	result, err := exporter.LastQuery(context.Background(), sess)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(result.Content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Data")
	require.NoError(t, err)
	assert.Equal(t, []string{"EmpName", "Dept", "badgeId"}, rows[0])
}

func TestLastQueryWithoutHistory(t *testing.T) {
	store := session.NewStore(20, time.Hour, zap.NewNop())
	sess := store.GetOrCreate("sess-empty")

	exporter := NewExporter(database.NewMockQuerier(), testRegistry(), zap.NewNop())
	_, err := exporter.LastQuery(context.Background(), sess)
	assert.ErrorIs(t, err, apperrors.ErrNoExportableQuery)
}

func TestLastQueryWithoutDatabase(t *testing.T) {
	store := session.NewStore(20, time.Hour, zap.NewNop())
	sess := sessionWithQuery(store, "sess-nodb", "SELECT TOP 10 * FROM view_employee", "view_employee")

	exporter := NewExporter(nil, testRegistry(), zap.NewNop())
	_, err := exporter.LastQuery(context.Background(), sess)
	assert.ErrorIs(t, err, apperrors.ErrNoExportableQuery)
}

func TestLastQueryRevalidatesRecordedSQL(t *testing.T) {
	db := database.NewMockQuerier()
	store := session.NewStore(20, time.Hour, zap.NewNop())
	sess := sessionWithQuery(store, "sess-bad", "DELETE FROM view_employee", "view_employee")

	exporter := NewExporter(db, testRegistry(), zap.NewNop())
	_, err := exporter.LastQuery(context.Background(), sess)
	assert.ErrorIs(t, err, apperrors.ErrNoExportableQuery)
	assert.Zero(t, db.QueryCalls, "rejected SQL must never reach the database")
}

func TestLastQueryEmptyResult(t *testing.T) {
	db := database.NewMockQuerier()
	store := session.NewStore(20, time.Hour, zap.NewNop())
	sess := sessionWithQuery(store, "sess-zero", "SELECT TOP 10 * FROM view_employee", "view_employee")

	exporter := NewExporter(db, testRegistry(), zap.NewNop())
	_, err := exporter.LastQuery(context.Background(), sess)
	assert.ErrorIs(t, err, apperrors.ErrNoExportableQuery)
}

func TestWriteWorkbookColumnOrderPreserved(t *testing.T) {
	content, err := WriteWorkbook("Hasil", []string{"B", "A"}, []map[string]any{
		{"A": 1, "B": "dua"},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Hasil")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, rows[0])
	assert.Equal(t, []string{"dua", "1"}, rows[1])
}
