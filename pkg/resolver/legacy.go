package resolver

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

const tablesQuery = `SELECT TABLE_NAME
FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_TYPE = 'BASE TABLE'
ORDER BY TABLE_NAME`

// legacyRule is one fixed heuristic query keyed on literal substrings.
type legacyRule struct {
	keywords    []string
	kind        string
	query       string
	description string
}

// legacyRules predate LLM generation and survive as a fallback. The
// employee rules that used to live here were removed once the employees
// table moved behind access control; do not bring them back.
var legacyRules = []legacyRule{
	{
		keywords:    []string{"penduduk"},
		kind:        "penduduk_data",
		query:       "SELECT TOP 10 * FROM penduduk ORDER BY id DESC",
		description: "Data penduduk dari database",
	},
	{
		keywords:    []string{"berita", "news"},
		kind:        "berita_data",
		query:       "SELECT TOP 10 * FROM berita ORDER BY id DESC",
		description: "Data berita dari database",
	},
}

var tablesAvailableKeywords = []string{"data", "informasi", "jumlah", "berapa"}

// legacyFallback runs the fixed heuristic queries. The first one that
// returns rows wins; a failing table is logged and skipped. Returns nil
// when nothing applies, which means "answer from the LLM alone".
func (r *Resolver) legacyFallback(ctx context.Context, question string) Outcome {
	lowered := strings.ToLower(question)

	for _, rule := range legacyRules {
		if !containsAny(lowered, rule.keywords) {
			continue
		}
		result, err := r.db.Query(ctx, rule.query)
		if err != nil {
			r.logger.Debug("legacy query failed",
				zap.String("kind", rule.kind),
				zap.Error(err))
			continue
		}
		if result.RowCount() == 0 {
			continue
		}
		return LegacyOutcome{Kind: rule.kind, Rows: result.Rows, Description: rule.description}
	}

	if containsAny(lowered, tablesAvailableKeywords) {
		result, err := r.db.Query(ctx, tablesQuery)
		if err != nil {
			r.logger.Debug("table listing failed", zap.Error(err))
			return nil
		}
		var tables []string
		for _, row := range result.Rows {
			if name, ok := row["TABLE_NAME"].(string); ok {
				tables = append(tables, name)
			}
		}
		if len(tables) == 0 {
			return nil
		}
		return TablesAvailableOutcome{
			Tables:      tables,
			Description: "Daftar tabel yang tersedia di database",
		}
	}

	return nil
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
