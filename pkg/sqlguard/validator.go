// Package sqlguard validates generated SQL before it is allowed anywhere
// near the database. Only single SELECT statements pass; everything else
// is rejected with a descriptive error.
package sqlguard

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrQueryTooLong indicates the query exceeds the maximum allowed length.
	ErrQueryTooLong = errors.New("query exceeds maximum allowed length")
	// ErrNotASelect indicates the query is not a SELECT statement.
	ErrNotASelect = errors.New("only SELECT statements are allowed")
	// ErrMultipleStatements indicates the query contains more than one statement.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed")
	// ErrForbiddenKeyword indicates the query contains a deny-listed keyword.
	ErrForbiddenKeyword = errors.New("query contains forbidden keyword")
	// ErrSuspiciousPattern indicates the query matches a known injection shape.
	ErrSuspiciousPattern = errors.New("query matches suspicious pattern")
)

// MaxQueryLength caps generated SQL. Anything longer is rejected outright.
const MaxQueryLength = 5000

// forbiddenKeywords are matched as plain substrings against the uppercased
// query. This deliberately over-blocks (a column named last_updated trips
// "UPDATE") in exchange for never under-blocking.
var forbiddenKeywords = []string{
	"DROP",
	"DELETE",
	"TRUNCATE",
	"ALTER",
	"CREATE",
	"INSERT",
	"UPDATE",
	"EXEC",
	"EXECUTE",
	"SP_",
	"XP_",
	"BACKUP",
	"RESTORE",
	"SHUTDOWN",
	"GRANT",
	"REVOKE",
	"DENY",
	";--",
	"UNION",
	"0X",
	"CHAR(",
	"CONCAT(",
	"WAITFOR",
	"BENCHMARK",
	"SLEEP(",
}

// suspiciousPatterns catch injection shapes that slip past the keyword list.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)--\s*$`),
	regexp.MustCompile(`(?i)/\*.*\*/`),
	regexp.MustCompile(`(?i)\bor\s+['"]?\d+['"]?\s*=\s*['"]?\d+`),
	regexp.MustCompile(`(?i)\band\s+['"]?\d+['"]?\s*=\s*['"]?\d+`),
	regexp.MustCompile(`(?i)\bunion\s+(all\s+)?select\b`),
	regexp.MustCompile(`(?i)\binto\s+(out|dump)file\b`),
	regexp.MustCompile(`(?i)\bload_file\s*\(`),
}

// Validate checks a generated SQL query against the guard rules:
// length cap, SELECT-only, single statement, keyword deny-list, and
// suspicious-pattern regexes. Returns nil only when the query is safe
// to execute.
func Validate(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return ErrNotASelect
	}
	if len(trimmed) > MaxQueryLength {
		return fmt.Errorf("%w: %d characters", ErrQueryTooLong, len(trimmed))
	}

	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") {
		return ErrNotASelect
	}

	if err := checkSingleStatement(trimmed); err != nil {
		return err
	}

	for _, kw := range forbiddenKeywords {
		if strings.Contains(upper, kw) {
			return fmt.Errorf("%w: %s", ErrForbiddenKeyword, kw)
		}
	}

	for _, pattern := range suspiciousPatterns {
		if pattern.MatchString(trimmed) {
			return fmt.Errorf("%w: %s", ErrSuspiciousPattern, pattern.String())
		}
	}

	return nil
}

// Normalize strips a trailing semicolon and surrounding whitespace so a
// single terminated statement does not trip the multi-statement check.
func Normalize(query string) string {
	query = strings.TrimSpace(query)
	query = strings.TrimRight(query, " \t\n\r")
	if strings.HasSuffix(query, ";") {
		query = strings.TrimSuffix(query, ";")
		query = strings.TrimRight(query, " \t\n\r")
	}
	return query
}

// checkSingleStatement rejects queries that contain more than one
// non-empty statement when split on semicolons.
func checkSingleStatement(query string) error {
	parts := strings.Split(query, ";")
	nonEmpty := 0
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			nonEmpty++
		}
	}
	if nonEmpty > 1 {
		return ErrMultipleStatements
	}
	return nil
}
