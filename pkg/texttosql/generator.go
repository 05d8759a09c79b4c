// Package texttosql turns a natural-language question into a SQL Server
// query via the LLM, post-validated by sqlguard. Generation is soft: any
// failure yields no query, never an error the caller must surface.
package texttosql

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/cladtek/dbchat-engine/pkg/llm"
	"github.com/cladtek/dbchat-engine/pkg/registry"
	"github.com/cladtek/dbchat-engine/pkg/schema"
	"github.com/cladtek/dbchat-engine/pkg/sqlguard"
)

// CannotParse is what the rewrite prompt instructs the model to return
// when it cannot perform an entity substitution.
const CannotParse = "CANNOT_PARSE"

// Generator builds SQL from questions using the LLM.
type Generator struct {
	llm    llm.Client
	logger *zap.Logger
}

// NewGenerator builds a Generator.
func NewGenerator(client llm.Client, logger *zap.Logger) *Generator {
	return &Generator{llm: client, logger: logger.Named("texttosql")}
}

var (
	codeFenceRe = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")
	sqlLabelRe  = regexp.MustCompile(`(?i)^\s*sql\s*(query)?\s*:\s*`)
)

// Generate asks the LLM for a SQL query answering the question against
// the table. Returns "" when the table has no cached schema, the LLM
// call fails, or the generated query does not survive validation.
func (g *Generator) Generate(ctx context.Context, question string, mapping *registry.TableMapping, entry *schema.Entry) string {
	if entry == nil {
		return ""
	}

	prompt := buildGenerationPrompt(question, mapping, entry)
	raw, err := g.llm.Generate(ctx, prompt, "")
	if err != nil {
		g.logger.Warn("sql generation call failed",
			zap.String("table", mapping.TableName),
			zap.Error(err))
		return ""
	}

	cleaned := sqlguard.Normalize(CleanResponse(raw))
	if cleaned == "" {
		return ""
	}
	if err := sqlguard.Validate(cleaned); err != nil {
		g.logger.Warn("generated sql rejected",
			zap.String("table", mapping.TableName),
			zap.String("sql", cleaned),
			zap.Error(err))
		return ""
	}

	g.logger.Info("sql generated",
		zap.String("table", mapping.TableName),
		zap.String("sql", cleaned))
	return cleaned
}

// RewriteQuestion asks the LLM to rewrite a prior question replacing
// only the named entity ("kalau Budi?" over "berapa obcard atas nama
// Ann"). Returns "" when the model cannot produce a rewrite.
func (g *Generator) RewriteQuestion(ctx context.Context, prevQuestion, replacement string) string {
	prompt := buildRewritePrompt(prevQuestion, replacement)
	raw, err := g.llm.Generate(ctx, prompt, "")
	if err != nil {
		g.logger.Warn("question rewrite call failed", zap.Error(err))
		return ""
	}

	rewritten := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"`))
	if rewritten == "" || strings.Contains(rewritten, CannotParse) {
		return ""
	}
	return rewritten
}

// ParseFollowUpFilter asks the LLM to turn an elliptical filter ("yang
// tahun 2025 saja") into a single WHERE-clause fragment, without the
// WHERE keyword, for extending a previous query. Returns "" when the
// model cannot parse the filter or the fragment fails validation.
func (g *Generator) ParseFollowUpFilter(ctx context.Context, followUpText string, mapping *registry.TableMapping) string {
	prompt := buildFilterPrompt(followUpText, mapping)
	raw, err := g.llm.Generate(ctx, prompt, "")
	if err != nil {
		g.logger.Warn("filter parse call failed", zap.Error(err))
		return ""
	}

	fragment := strings.TrimSpace(CleanResponse(raw))
	fragment = strings.TrimPrefix(strings.TrimPrefix(fragment, "WHERE "), "where ")
	if fragment == "" || strings.Contains(fragment, CannotParse) {
		return ""
	}

	// The fragment will be spliced into a SELECT, so vet it as one.
	probe := "SELECT * FROM " + mapping.TableName + " WHERE " + fragment
	if err := sqlguard.Validate(probe); err != nil {
		g.logger.Warn("filter fragment rejected",
			zap.String("fragment", fragment),
			zap.Error(err))
		return ""
	}
	return fragment
}

// CleanResponse strips markdown fences and "SQL Query:" labels the
// model sometimes wraps its answer in.
func CleanResponse(raw string) string {
	out := strings.TrimSpace(raw)
	if m := codeFenceRe.FindStringSubmatch(out); m != nil {
		out = m[1]
	}
	out = sqlLabelRe.ReplaceAllString(strings.TrimSpace(out), "")
	return strings.TrimSpace(out)
}
