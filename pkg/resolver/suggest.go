package resolver

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/cladtek/dbchat-engine/pkg/registry"
	"github.com/cladtek/dbchat-engine/pkg/sqlguard"
)

// maxSuggestions caps how many similar names come back for a failed
// name search.
const maxSuggestions = 5

var likeRe = regexp.MustCompile(`(?i)(\[?\w+\]?)\s+LIKE\s+'([^']*)'`)

// suggestNames turns a zero-hit name search into fuzzy suggestions: the
// searched name is split into tokens and each token becomes one LIKE
// branch against the same column. Returns nil when the query was not a
// name search or no similar names exist.
func (r *Resolver) suggestNames(ctx context.Context, sql string, mapping *registry.TableMapping) *SuggestionsOutcome {
	m := likeRe.FindStringSubmatch(sql)
	if m == nil {
		return nil
	}
	column := strings.Trim(m[1], "[]")
	searched := strings.TrimSpace(strings.ReplaceAll(m[2], "%", " "))
	tokens := strings.Fields(searched)
	if searched == "" || len(tokens) == 0 {
		return nil
	}

	var branches []string
	var args []any
	for _, token := range tokens {
		if hit := sqlguard.CheckParameterForInjection("name_token", token); hit != nil {
			r.logger.Warn("suggestion token rejected",
				zap.String("token", token),
				zap.String("fingerprint", hit.Fingerprint))
			return nil
		}
		branches = append(branches, fmt.Sprintf("%s LIKE @p%d", column, len(args)+1))
		args = append(args, "%"+token+"%")
	}

	query := fmt.Sprintf("SELECT DISTINCT TOP %d %s FROM %s WHERE %s",
		maxSuggestions, column, mapping.TableName, strings.Join(branches, " OR "))

	result, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Debug("suggestion query failed", zap.Error(err))
		return nil
	}

	var names []string
	for _, row := range result.Rows {
		if name, ok := row[column].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}

	return &SuggestionsOutcome{
		SearchedName: searched,
		Names:        names,
		TableName:    mapping.TableName,
	}
}
