package schema

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cladtek/dbchat-engine/pkg/database"
	"github.com/cladtek/dbchat-engine/pkg/registry"
)

func testRegistry() *registry.Registry {
	return registry.New([]registry.TableMapping{
		{TableName: "RecordOBCard", Keywords: []string{"obcard"}},
		{TableName: "employees", Keywords: []string{"karyawan"}},
	})
}

func columnResult(names ...string) *database.Result {
	res := &database.Result{Columns: []string{"COLUMN_NAME", "DATA_TYPE", "CHARACTER_MAXIMUM_LENGTH", "IS_NULLABLE"}}
	for _, name := range names {
		res.Rows = append(res.Rows, map[string]any{
			"COLUMN_NAME":               name,
			"DATA_TYPE":                 "nvarchar",
			"CHARACTER_MAXIMUM_LENGTH":  int64(255),
			"IS_NULLABLE":               "YES",
		})
	}
	return res
}

func TestWarmUpCachesAllTables(t *testing.T) {
	mock := &database.MockQuerier{
		QueryFunc: func(ctx context.Context, query string, args ...any) (*database.Result, error) {
			if strings.Contains(query, "INFORMATION_SCHEMA") {
				return columnResult("EmpName", "Department"), nil
			}
			return &database.Result{
				Columns: []string{"EmpName", "Department"},
				Rows:    []map[string]any{{"EmpName": "Nur Iswanto", "Department": "QA"}},
			}, nil
		},
	}

	cache := NewCache(mock, 2, zap.NewNop())
	loaded := cache.WarmUp(context.Background(), testRegistry())
	assert.Equal(t, 2, loaded)

	entry, ok := cache.Get("RecordOBCard")
	require.True(t, ok)
	assert.Len(t, entry.Columns, 2)
	assert.True(t, entry.Columns[0].Nullable)
	assert.Len(t, entry.SampleRows, 1)
	assert.True(t, entry.HasColumn("empname"))
	assert.False(t, entry.HasColumn("Salary"))
}

func TestWarmUpSoftFailsPerTable(t *testing.T) {
	mock := &database.MockQuerier{
		QueryFunc: func(ctx context.Context, query string, args ...any) (*database.Result, error) {
			if len(args) > 0 && args[0] == "employees" {
				return nil, errors.New("login failed")
			}
			if strings.Contains(query, "INFORMATION_SCHEMA") {
				return columnResult("TrackingNum"), nil
			}
			return &database.Result{}, nil
		},
	}

	cache := NewCache(mock, 2, zap.NewNop())
	loaded := cache.WarmUp(context.Background(), testRegistry())
	assert.Equal(t, 1, loaded)

	_, ok := cache.Get("employees")
	assert.False(t, ok)
	_, ok = cache.Get("RecordOBCard")
	assert.True(t, ok)
}

func TestLoadContinuesWithoutSamples(t *testing.T) {
	mock := &database.MockQuerier{
		QueryFunc: func(ctx context.Context, query string, args ...any) (*database.Result, error) {
			if strings.Contains(query, "INFORMATION_SCHEMA") {
				return columnResult("EmpName"), nil
			}
			return nil, errors.New("timeout")
		},
	}

	cache := NewCache(mock, 2, zap.NewNop())
	loaded := cache.WarmUp(context.Background(), testRegistry())
	assert.Equal(t, 2, loaded)

	entry, _ := cache.Get("RecordOBCard")
	assert.Empty(t, entry.SampleRows)
	assert.Len(t, entry.Columns, 1)
}
