package resolver

// Outcome is the classified result of resolving one question against
// the database. Consumers must switch over every variant; there is no
// generic shape to sniff.
type Outcome interface {
	isOutcome()
}

// CountOutcome is a simple COUNT(*) answer with a non-zero value.
type CountOutcome struct {
	Value       int64
	SQL         string
	TableName   string
	Description string
}

// RowsOutcome carries row data from a generated query, already
// projected through field-level access filtering.
type RowsOutcome struct {
	Rows        []map[string]any
	SQL         string
	TableName   string
	Description string
}

// SuggestionsOutcome is returned when a name search found nothing but
// similar names exist.
type SuggestionsOutcome struct {
	SearchedName string
	Names        []string
	TableName    string
}

// AccessDeniedOutcome short-circuits resolution for a restricted table.
type AccessDeniedOutcome struct {
	Message string
}

// TablesAvailableOutcome lists the base tables in the database.
type TablesAvailableOutcome struct {
	Tables      []string
	Description string
}

// LegacyOutcome carries rows from one of the fixed heuristic queries.
type LegacyOutcome struct {
	Kind        string
	Rows        []map[string]any
	Description string
}

// EmptyOutcome means the query ran but matched nothing.
type EmptyOutcome struct {
	Question  string
	TableName string
	SQL       string
}

func (CountOutcome) isOutcome()           {}
func (RowsOutcome) isOutcome()            {}
func (SuggestionsOutcome) isOutcome()     {}
func (AccessDeniedOutcome) isOutcome()    {}
func (TablesAvailableOutcome) isOutcome() {}
func (LegacyOutcome) isOutcome()          {}
func (EmptyOutcome) isOutcome()           {}
