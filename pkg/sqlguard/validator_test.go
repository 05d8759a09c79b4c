package sqlguard

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateAcceptsCleanSelect(t *testing.T) {
	queries := []string{
		"SELECT TOP 10 * FROM employees WHERE name = 'Ann'",
		"select count(*) from RecordOBCard",
		"SELECT department, COUNT(*) AS total FROM employees GROUP BY department",
		"  SELECT name FROM employees  ",
	}
	for _, q := range queries {
		if err := Validate(q); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", q, err)
		}
	}
}

func TestValidateRejectsNonSelect(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"empty", ""},
		{"whitespace only", "   \n\t  "},
		{"with clause", "WITH cte AS (SELECT 1) SELECT * FROM cte"},
		{"show", "SHOW TABLES"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.query)
			if !errors.Is(err, ErrNotASelect) {
				t.Errorf("Validate(%q) = %v, want ErrNotASelect", tt.query, err)
			}
		})
	}
}

func TestValidateRejectsForbiddenKeywords(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"drop", "SELECT 1; DROP TABLE employees"},
		{"delete", "SELECT * FROM x WHERE id IN (DELETE FROM y)"},
		{"insert", "SELECT * FROM employees INSERT INTO log VALUES (1)"},
		{"update substring", "SELECT last_updated FROM employees"},
		{"create substring", "SELECT TOP 10 * FROM RecordOBCard ORDER BY CreatedDate DESC"},
		{"exec", "SELECT * FROM x EXEC sp_who"},
		{"stored proc prefix", "SELECT * FROM x WHERE col = 'sp_help'"},
		{"union", "SELECT a FROM x UNION SELECT b FROM y"},
		{"hex literal", "SELECT * FROM x WHERE id = 0x41"},
		{"char call", "SELECT CHAR(65) FROM x"},
		{"waitfor", "SELECT 1 WAITFOR DELAY '0:0:5'"},
		{"sleep", "SELECT SLEEP(10)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.query)
			if err == nil {
				t.Fatalf("Validate(%q) = nil, want error", tt.query)
			}
			if !errors.Is(err, ErrForbiddenKeyword) && !errors.Is(err, ErrMultipleStatements) {
				t.Errorf("Validate(%q) = %v, want forbidden keyword or multi-statement", tt.query, err)
			}
		})
	}
}

func TestValidateRejectsMultipleStatements(t *testing.T) {
	err := Validate("SELECT name FROM employees; SELECT badge FROM employees")
	if !errors.Is(err, ErrMultipleStatements) {
		t.Errorf("got %v, want ErrMultipleStatements", err)
	}
}

func TestValidateRejectsSuspiciousPatterns(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"trailing comment", "SELECT * FROM employees --"},
		{"block comment", "SELECT /* hidden */ * FROM employees"},
		{"or tautology", "SELECT * FROM employees WHERE id = 1 OR 1=1"},
		{"and tautology", "SELECT * FROM employees WHERE id = 1 AND '1'='1'"},
		{"load_file", "SELECT LOAD_FILE('/etc/passwd')"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.query)
			if err == nil {
				t.Fatalf("Validate(%q) = nil, want error", tt.query)
			}
			if !errors.Is(err, ErrSuspiciousPattern) && !errors.Is(err, ErrForbiddenKeyword) {
				t.Errorf("Validate(%q) = %v, want suspicious pattern or forbidden keyword", tt.query, err)
			}
		})
	}
}

func TestValidateRejectsOverlongQuery(t *testing.T) {
	query := "SELECT '" + strings.Repeat("a", MaxQueryLength) + "'"
	if err := Validate(query); !errors.Is(err, ErrQueryTooLong) {
		t.Errorf("got %v, want ErrQueryTooLong", err)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"SELECT 1;", "SELECT 1"},
		{"SELECT 1 ; ", "SELECT 1"},
		{"SELECT 1", "SELECT 1"},
		{"  SELECT 1\n", "SELECT 1"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizedTerminatedSelectPasses(t *testing.T) {
	query := Normalize("SELECT TOP 5 name FROM employees;")
	if err := Validate(query); err != nil {
		t.Errorf("Validate(%q) = %v, want nil", query, err)
	}
}
