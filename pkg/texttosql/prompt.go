package texttosql

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cladtek/dbchat-engine/pkg/registry"
	"github.com/cladtek/dbchat-engine/pkg/schema"
)

// buildGenerationPrompt embeds the table schema (with alias and
// nullability annotations), a small JSON sample, and the SQL Server
// dialect rules.
func buildGenerationPrompt(question string, mapping *registry.TableMapping, entry *schema.Entry) string {
	var b strings.Builder

	b.WriteString("You are an expert SQL query generator for SQL Server database.\n\n")
	b.WriteString("TABLE SCHEMA:\n")
	fmt.Fprintf(&b, "Table: %s\n", entry.TableName)
	if mapping.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", mapping.Description)
	}
	for _, col := range entry.Columns {
		fmt.Fprintf(&b, "- %s (%s%s)", col.Name, col.DataType, nullability(col))
		if aliases := aliasesFor(mapping, col.Name); len(aliases) > 0 {
			fmt.Fprintf(&b, " -- user may call this: %s", strings.Join(aliases, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nSAMPLE DATA (for context):\n")
	b.WriteString(sampleJSON(entry))

	fmt.Fprintf(&b, "\n\nUSER QUESTION: %q\n", question)
	b.WriteString(`
INSTRUCTIONS:
1. Generate ONLY a valid SQL Server query based on the question
2. Use TOP instead of LIMIT for SQL Server
3. Return ONLY the SQL query, no explanations
4. STRICTLY use ONLY columns that exist in the schema above - DO NOT assume or invent column names!
5. For counting rows, use COUNT(*) - DO NOT use SUM() unless explicitly needed for numeric columns
6. For "berapa total" or "how many", use COUNT(*) to count rows
7. Use GROUP BY when showing breakdown by categories
8. Handle NULL values appropriately
9. For text searches with names, use LIKE with wildcards and be flexible with spacing
10. Maximum 100 rows for safety (TOP 100)

CRITICAL RULES:
- If question asks "berapa total X" or "how many X", use: SELECT COUNT(*) FROM TableName WHERE conditions
- NEVER use SUM() for counting - use COUNT(*)
- NEVER invent column names not in the schema
- For name searches, use: WHERE ColumnName LIKE '%FirstName%LastName%' OR ColumnName LIKE '%FirstName LastName%'

IMPORTANT: Return ONLY the SQL query, nothing else. No markdown, no code blocks, just pure SQL.

SQL Query:`)

	return b.String()
}

func buildRewritePrompt(prevQuestion, replacement string) string {
	return fmt.Sprintf(`Rewrite the question below, replacing ONLY the person or entity it asks about with %q. Keep everything else identical.

QUESTION: %q

Return ONLY the rewritten question, nothing else. If you cannot identify which entity to replace, return exactly %s.

Rewritten question:`, replacement, prevQuestion, CannotParse)
}

func buildFilterPrompt(followUpText string, mapping *registry.TableMapping) string {
	var b strings.Builder
	b.WriteString("Convert the follow-up filter below into ONE SQL Server WHERE-clause fragment for the table ")
	b.WriteString(mapping.TableName)
	b.WriteString(".\n\nCOLUMN ALIASES (what the user says -> actual column):\n")
	var aliases []string
	for alias, column := range mapping.FieldAliases {
		aliases = append(aliases, fmt.Sprintf("- %q -> %s", alias, column))
	}
	sort.Strings(aliases)
	for _, line := range aliases {
		b.WriteString(line)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, `
FOLLOW-UP FILTER: %q

EXAMPLES:
- "yang tahun 2025" -> YEAR(ReportDate) = 2025
- "yang perempuan saja" -> gender = 'Female'
- "hanya dept IT" -> department = 'IT'

RULES:
1. Return ONLY the fragment, without the WHERE keyword
2. Use ONLY columns listed above
3. If the filter cannot be expressed, return exactly %s

Fragment:`, followUpText, CannotParse)
	return b.String()
}

func nullability(col schema.Column) string {
	if col.Nullable {
		return ", nullable"
	}
	return ", not null"
}

func aliasesFor(mapping *registry.TableMapping, column string) []string {
	var out []string
	for alias, target := range mapping.FieldAliases {
		if strings.EqualFold(target, column) {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}

func sampleJSON(entry *schema.Entry) string {
	if len(entry.SampleRows) == 0 {
		return "(no sample rows available)"
	}
	data, err := json.MarshalIndent(entry.SampleRows, "", "  ")
	if err != nil {
		return "(sample rows unavailable)"
	}
	return string(data)
}
