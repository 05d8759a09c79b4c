// Package resolver orchestrates one question's trip through table
// detection, access control, SQL generation, execution, and result
// classification. Data-layer failures never escape as errors; they
// degrade into legacy fallbacks, suggestions, or an empty outcome.
package resolver

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/cladtek/dbchat-engine/pkg/access"
	"github.com/cladtek/dbchat-engine/pkg/database"
	"github.com/cladtek/dbchat-engine/pkg/registry"
	"github.com/cladtek/dbchat-engine/pkg/schema"
	"github.com/cladtek/dbchat-engine/pkg/session"
	"github.com/cladtek/dbchat-engine/pkg/sqlguard"
	"github.com/cladtek/dbchat-engine/pkg/texttosql"
)

// maxSubstitutionDepth bounds entity-substitution re-entry. One level is
// enough: a substituted question resolving into another substitution is
// a loop, not progress.
const maxSubstitutionDepth = 1

// Generator is what the resolver needs from the text-to-SQL layer.
type Generator interface {
	Generate(ctx context.Context, question string, mapping *registry.TableMapping, entry *schema.Entry) string
	RewriteQuestion(ctx context.Context, prevQuestion, replacement string) string
	ParseFollowUpFilter(ctx context.Context, followUpText string, mapping *registry.TableMapping) string
}

var _ Generator = (*texttosql.Generator)(nil)

// Resolver runs the per-request resolution state machine.
type Resolver struct {
	registry *registry.Registry
	ctrl     *access.Control
	schemas  *schema.Cache
	gen      Generator
	db       database.Querier
	logger   *zap.Logger
}

// New builds a Resolver.
func New(reg *registry.Registry, ctrl *access.Control, schemas *schema.Cache, gen Generator, db database.Querier, logger *zap.Logger) *Resolver {
	return &Resolver{
		registry: reg,
		ctrl:     ctrl,
		schemas:  schemas,
		gen:      gen,
		db:       db,
		logger:   logger.Named("resolver"),
	}
}

var substitutionRe = regexp.MustCompile(`(?i)^(kalau|bagaimana dengan|how about|what about)\s+([a-z][a-z\s]*?)\s*\??$`)

// Resolve answers one question. A nil outcome means the database had
// nothing to contribute and the answer should come from the LLM alone.
func (r *Resolver) Resolve(ctx context.Context, question string, sess *session.Session) Outcome {
	return r.resolve(ctx, question, sess, 0)
}

func (r *Resolver) resolve(ctx context.Context, question string, sess *session.Session, depth int) Outcome {
	if depth < maxSubstitutionDepth {
		if outcome, ok := r.trySubstitution(ctx, question, sess, depth); ok {
			return outcome
		}
	}

	mapping := r.registry.FindTableMapping(question)
	if mapping == nil {
		return r.legacyFallback(ctx, question)
	}

	decision := r.ctrl.CheckTableAccess(mapping.TableName, sess)
	if !decision.Allowed {
		r.logger.Info("table access denied",
			zap.String("table", mapping.TableName),
			zap.String("session_id", sess.ID()))
		return AccessDeniedOutcome{Message: decision.DenialMessage}
	}

	entry, _ := r.schemas.Get(mapping.TableName)
	sql := r.gen.Generate(ctx, question, mapping, entry)
	if sql == "" {
		return r.legacyFallback(ctx, question)
	}

	result, err := r.db.Query(ctx, sql)
	if err != nil {
		r.logger.Warn("generated query failed, trying legacy fallback",
			zap.String("sql", sql),
			zap.Error(err))
		return r.legacyFallback(ctx, question)
	}

	return r.classify(ctx, question, sql, mapping, result, sess)
}

// trySubstitution handles "kalau Budi?" style turns by asking the LLM to
// rewrite the prior SQL-producing question with the new entity, then
// re-running resolution on the rewrite.
func (r *Resolver) trySubstitution(ctx context.Context, question string, sess *session.Session, depth int) (Outcome, bool) {
	m := substitutionRe.FindStringSubmatch(strings.TrimSpace(question))
	if m == nil {
		return nil, false
	}

	prevQuestion := lastQuestionWithSQL(sess)
	if prevQuestion == "" {
		return nil, false
	}

	rewritten := r.gen.RewriteQuestion(ctx, prevQuestion, strings.TrimSpace(m[2]))
	if rewritten == "" || strings.EqualFold(rewritten, question) {
		return nil, false
	}

	r.logger.Info("entity substitution",
		zap.String("from", question),
		zap.String("to", rewritten))
	return r.resolve(ctx, rewritten, sess, depth+1), true
}

// ExtendPrevious extends the previous turn's query with a follow-up
// filter ("yang tahun 2025 saja"). Returns nil when there is no prior
// query, the filter cannot be parsed, or the extended query fails.
func (r *Resolver) ExtendPrevious(ctx context.Context, filterText string, sess *session.Session) Outcome {
	prevSQL, prevTable := lastSQL(sess)
	if prevSQL == "" || prevTable == "" {
		return nil
	}
	mapping := r.registry.Lookup(prevTable)
	if mapping == nil {
		return nil
	}

	fragment := r.gen.ParseFollowUpFilter(ctx, filterText, mapping)
	if fragment == "" {
		return nil
	}

	extended := spliceFilter(prevSQL, fragment)
	if err := sqlguard.Validate(extended); err != nil {
		r.logger.Warn("extended query rejected", zap.String("sql", extended), zap.Error(err))
		return nil
	}

	result, err := r.db.Query(ctx, extended)
	if err != nil {
		r.logger.Warn("extended query failed", zap.String("sql", extended), zap.Error(err))
		return nil
	}

	r.logger.Info("previous query extended",
		zap.String("sql", extended),
		zap.String("fragment", fragment))
	return r.classify(ctx, filterText, extended, mapping, result, sess)
}

// spliceFilter appends a fragment to a query's WHERE clause, adding one
// if the query has none. ORDER BY and GROUP BY tails stay behind the
// new condition.
func spliceFilter(sql, fragment string) string {
	upper := strings.ToUpper(sql)

	insertAt := len(sql)
	for _, clause := range []string{" GROUP BY ", " ORDER BY "} {
		if idx := strings.Index(upper, clause); idx >= 0 && idx < insertAt {
			insertAt = idx
		}
	}

	head, tail := sql[:insertAt], sql[insertAt:]
	if strings.Contains(strings.ToUpper(head), " WHERE ") {
		return head + " AND (" + fragment + ")" + tail
	}
	return head + " WHERE " + fragment + tail
}

func (r *Resolver) classify(ctx context.Context, question, sql string, mapping *registry.TableMapping, result *database.Result, sess *session.Session) Outcome {
	upper := strings.ToUpper(sql)
	isSimpleCount := strings.Contains(upper, "COUNT(") && !strings.Contains(upper, "GROUP BY")

	if isSimpleCount && result.RowCount() > 0 {
		// Only the first selected column is inspected. A count that is
		// not the first column slips past this check; known gap.
		value, ok := firstColumnNumber(result)
		if ok {
			if value == 0 {
				return r.noResults(ctx, question, sql, mapping)
			}
			return CountOutcome{
				Value:       value,
				SQL:         sql,
				TableName:   mapping.TableName,
				Description: mapping.Description,
			}
		}
	}

	if result.RowCount() == 0 {
		return r.noResults(ctx, question, sql, mapping)
	}

	rows := registry.FilterFieldsByAuth(mapping, result.Rows, sess.Authenticated())
	return RowsOutcome{
		Rows:        rows,
		SQL:         sql,
		TableName:   mapping.TableName,
		Description: mapping.Description,
	}
}

// noResults distinguishes a failed name search, which gets fuzzy
// suggestions, from a plain empty result.
func (r *Resolver) noResults(ctx context.Context, question, sql string, mapping *registry.TableMapping) Outcome {
	if suggestion := r.suggestNames(ctx, sql, mapping); suggestion != nil {
		return *suggestion
	}
	return EmptyOutcome{Question: question, TableName: mapping.TableName, SQL: sql}
}

func firstColumnNumber(result *database.Result) (int64, bool) {
	if len(result.Columns) == 0 || result.RowCount() == 0 {
		return 0, false
	}
	switch v := result.Rows[0][result.Columns[0]].(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// lastQuestionWithSQL returns the content of the most recent user turn
// that produced a SQL query.
func lastQuestionWithSQL(sess *session.Session) string {
	history := sess.History()
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "user" && history[i].SQLQuery != "" {
			return history[i].Content
		}
	}
	return ""
}

// lastSQL returns the most recent generated query and its table.
func lastSQL(sess *session.Session) (string, string) {
	history := sess.History()
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].SQLQuery != "" {
			return history[i].SQLQuery, history[i].TableName
		}
	}
	return "", ""
}
