package texttosql

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cladtek/dbchat-engine/pkg/llm"
	"github.com/cladtek/dbchat-engine/pkg/registry"
	"github.com/cladtek/dbchat-engine/pkg/schema"
)

func testMapping() *registry.TableMapping {
	return &registry.TableMapping{
		TableName: "RecordOBCard",
		FieldAliases: map[string]string{
			"nomor tracking": "TrackingNum",
			"nama":           "EmpName",
		},
		Description: "Observation card records",
	}
}

func testEntry() *schema.Entry {
	return &schema.Entry{
		TableName: "RecordOBCard",
		Columns: []schema.Column{
			{Name: "TrackingNum", DataType: "nvarchar", Nullable: false},
			{Name: "EmpName", DataType: "nvarchar", Nullable: true},
		},
		SampleRows: []map[string]any{{"TrackingNum": "OB-001", "EmpName": "Nur Iswanto"}},
	}
}

func TestGenerateReturnsValidatedSQL(t *testing.T) {
	mock := llm.NewMockClient()
	mock.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
		return "SELECT TOP 100 * FROM RecordOBCard", nil
	}

	g := NewGenerator(mock, zap.NewNop())
	sql := g.Generate(context.Background(), "tampilkan semua obcard", testMapping(), testEntry())
	assert.Equal(t, "SELECT TOP 100 * FROM RecordOBCard", sql)
	assert.Equal(t, 1, mock.GenerateCalls)
}

func TestGeneratePromptContainsSchemaAndAliases(t *testing.T) {
	mock := llm.NewMockClient()
	mock.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
		return "SELECT COUNT(*) FROM RecordOBCard", nil
	}

	g := NewGenerator(mock, zap.NewNop())
	g.Generate(context.Background(), "berapa total obcard?", testMapping(), testEntry())

	require.Len(t, mock.Prompts, 1)
	prompt := mock.Prompts[0]
	assert.Contains(t, prompt, "TrackingNum (nvarchar, not null)")
	assert.Contains(t, prompt, "EmpName (nvarchar, nullable)")
	assert.Contains(t, prompt, "nomor tracking")
	assert.Contains(t, prompt, "OB-001")
	assert.Contains(t, prompt, "Use TOP instead of LIMIT")
}

func TestGenerateWithoutSchemaReturnsEmpty(t *testing.T) {
	mock := llm.NewMockClient()
	g := NewGenerator(mock, zap.NewNop())
	sql := g.Generate(context.Background(), "berapa total obcard?", testMapping(), nil)
	assert.Empty(t, sql)
	assert.Zero(t, mock.GenerateCalls)
}

func TestGenerateRejectsUnsafeSQL(t *testing.T) {
	mock := llm.NewMockClient()
	mock.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
		return "DROP TABLE RecordOBCard", nil
	}

	g := NewGenerator(mock, zap.NewNop())
	sql := g.Generate(context.Background(), "hapus semua data", testMapping(), testEntry())
	assert.Empty(t, sql)
}

func TestGenerateSwallowsLLMFailure(t *testing.T) {
	mock := llm.NewMockClient()
	mock.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
		return "", errors.New("connection refused")
	}

	g := NewGenerator(mock, zap.NewNop())
	sql := g.Generate(context.Background(), "berapa total obcard?", testMapping(), testEntry())
	assert.Empty(t, sql)
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "SELECT 1", "SELECT 1"},
		{"fenced", "```sql\nSELECT 1\n```", "SELECT 1"},
		{"fenced without language", "```\nSELECT 1\n```", "SELECT 1"},
		{"labelled", "SQL Query: SELECT 1", "SELECT 1"},
		{"label and fence", "```sql\nSQL: SELECT 1\n```", "SELECT 1"},
		{"surrounding prose is kept outside fences", "  SELECT 1  ", "SELECT 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanResponse(tt.raw))
		})
	}
}

func TestParseFollowUpFilter(t *testing.T) {
	t.Run("clean fragment", func(t *testing.T) {
		mock := llm.NewMockClient()
		mock.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
			return "YEAR(ReportDate) = 2025", nil
		}
		g := NewGenerator(mock, zap.NewNop())
		got := g.ParseFollowUpFilter(context.Background(), "yang tahun 2025", testMapping())
		assert.Equal(t, "YEAR(ReportDate) = 2025", got)
	})

	t.Run("leading WHERE is stripped", func(t *testing.T) {
		mock := llm.NewMockClient()
		mock.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
			return "WHERE gender = 'Female'", nil
		}
		g := NewGenerator(mock, zap.NewNop())
		got := g.ParseFollowUpFilter(context.Background(), "yang perempuan saja", testMapping())
		assert.Equal(t, "gender = 'Female'", got)
	})

	t.Run("cannot parse sentinel", func(t *testing.T) {
		mock := llm.NewMockClient()
		mock.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
			return CannotParse, nil
		}
		g := NewGenerator(mock, zap.NewNop())
		assert.Empty(t, g.ParseFollowUpFilter(context.Background(), "hmm", testMapping()))
	})

	t.Run("dangerous fragment rejected", func(t *testing.T) {
		mock := llm.NewMockClient()
		mock.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
			return "1=1; DROP TABLE employees", nil
		}
		g := NewGenerator(mock, zap.NewNop())
		assert.Empty(t, g.ParseFollowUpFilter(context.Background(), "yang aneh", testMapping()))
	})
}

func TestRewriteQuestion(t *testing.T) {
	t.Run("successful rewrite", func(t *testing.T) {
		mock := llm.NewMockClient()
		mock.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
			return `"berapa obcard atas nama Budi?"`, nil
		}
		g := NewGenerator(mock, zap.NewNop())
		got := g.RewriteQuestion(context.Background(), "berapa obcard atas nama Ann?", "Budi")
		assert.Equal(t, "berapa obcard atas nama Budi?", got)
	})

	t.Run("cannot parse", func(t *testing.T) {
		mock := llm.NewMockClient()
		mock.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
			return CannotParse, nil
		}
		g := NewGenerator(mock, zap.NewNop())
		got := g.RewriteQuestion(context.Background(), "berapa obcard atas nama Ann?", "Budi")
		assert.Empty(t, got)
	})
}
