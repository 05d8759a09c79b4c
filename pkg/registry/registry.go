// Package registry holds the static catalog of tables the assistant can
// answer questions about: trigger keywords, natural-language field aliases,
// and the public/restricted visibility split per table.
package registry

import "strings"

// TableMapping binds a database table to the keywords that trigger it, the
// aliases users use for its columns, and its visibility policy. Immutable
// after load.
type TableMapping struct {
	TableName string `yaml:"table_name"`

	// Keywords trigger this table when any of them appears in a question.
	Keywords []string `yaml:"keywords"`

	// FieldAliases maps natural-language names to real column names,
	// case-insensitive, many-to-one.
	FieldAliases map[string]string `yaml:"field_aliases"`

	// PublicFields is the ordered list of columns a non-authenticated
	// session may see. Nil means every column is public.
	PublicFields []string `yaml:"public_fields"`

	// RestrictedFields lists columns withheld from non-authenticated
	// sessions. Informational; filtering projects onto PublicFields.
	RestrictedFields []string `yaml:"restricted_fields"`

	Description string `yaml:"description"`
}

// Registry is an ordered list of table mappings. Order matters: when two
// tables share a keyword, the first registered mapping wins. That ambiguity
// is accepted rather than scored away.
type Registry struct {
	mappings []TableMapping
}

// New creates a registry over the given mappings, preserving order.
func New(mappings []TableMapping) *Registry {
	return &Registry{mappings: mappings}
}

// FindTableMapping returns the first mapping with any keyword contained in
// the question (case-insensitive substring match), or nil when no table is
// concerned.
func (r *Registry) FindTableMapping(question string) *TableMapping {
	lower := strings.ToLower(question)

	for i := range r.mappings {
		for _, keyword := range r.mappings[i].Keywords {
			if strings.Contains(lower, strings.ToLower(keyword)) {
				return &r.mappings[i]
			}
		}
	}
	return nil
}

// Lookup returns the mapping registered under the exact table name, or
// nil when the table is unknown.
func (r *Registry) Lookup(tableName string) *TableMapping {
	for i := range r.mappings {
		if r.mappings[i].TableName == tableName {
			return &r.mappings[i]
		}
	}
	return nil
}

// Mappings returns the registered mappings in registration order.
func (r *Registry) Mappings() []TableMapping {
	return r.mappings
}

// TranslateAlias resolves a natural-language field name to the real column
// name, case-insensitive. Unknown aliases come back unchanged; a missing
// alias is never an error.
func TranslateAlias(mapping *TableMapping, alias string) string {
	if mapping == nil {
		return alias
	}
	lower := strings.ToLower(alias)
	for a, col := range mapping.FieldAliases {
		if strings.ToLower(a) == lower {
			return col
		}
	}
	return alias
}

// FilterFieldsByAuth projects rows onto the mapping's public fields for
// non-authenticated sessions. Authenticated sessions, and tables with no
// public-field list, see rows unchanged. Input rows are never mutated.
func FilterFieldsByAuth(mapping *TableMapping, rows []map[string]any, isAuthenticated bool) []map[string]any {
	if isAuthenticated || mapping == nil || mapping.PublicFields == nil {
		return rows
	}

	filtered := make([]map[string]any, len(rows))
	for i, row := range rows {
		projected := make(map[string]any, len(mapping.PublicFields))
		for _, field := range mapping.PublicFields {
			if v, ok := row[field]; ok {
				projected[field] = v
			}
		}
		filtered[i] = projected
	}
	return filtered
}
