package answer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DebugInfo describes the retrieval that produced an answer.
type DebugInfo struct {
	TableName string
	SQL       string
	Aliases   map[string]string
}

var debugTrailerRe = regexp.MustCompile(`(?s)---\n\*\*🔧 DEBUG INFO.*$`)

// AppendDebugTrailer attaches the retrieval trailer to an answer.
// Only sessions in debug mode should ever see this output.
func AppendDebugTrailer(text string, info DebugInfo) string {
	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\n---\n**🔧 DEBUG INFO**\n")
	if info.TableName != "" {
		fmt.Fprintf(&b, "📊 Datasource: %s\n", info.TableName)
	} else {
		b.WriteString("📊 Datasource: tidak ada (jawaban AI)\n")
	}
	if info.SQL != "" {
		fmt.Fprintf(&b, "🔍 SQL Query: `%s`\n", info.SQL)
	} else {
		b.WriteString("🔍 SQL Query: tidak ada\n")
	}
	if len(info.Aliases) > 0 {
		names := make([]string, 0, len(info.Aliases))
		for name := range info.Aliases {
			names = append(names, name)
		}
		sort.Strings(names)
		pairs := make([]string, 0, len(names))
		for _, name := range names {
			pairs = append(pairs, name+" → "+info.Aliases[name])
		}
		fmt.Fprintf(&b, "🗺️ Mapping Info: %s\n", strings.Join(pairs, ", "))
	}
	return b.String()
}

// StripDebugTrailer removes any debug trailer from an answer. Applied
// server-side to every response bound for a session that is not in
// debug mode, including trailers the model hallucinated on its own.
func StripDebugTrailer(text string) string {
	return strings.TrimRight(debugTrailerRe.ReplaceAllString(text, ""), "\n ")
}
