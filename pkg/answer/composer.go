// Package answer assembles the final natural-language generation
// request: system prompt, conversation transcript, query outcome, and
// mode framing. It also owns the debug trailer and response masking.
package answer

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cladtek/dbchat-engine/pkg/resolver"
	"github.com/cladtek/dbchat-engine/pkg/session"
)

// SystemPrompt frames every answer request.
const SystemPrompt = `Kamu adalah AI assistant dari Cladtek yang cerdas dan membantu.
Kamu memiliki akses ke database internal perusahaan.

Karakteristik:
- Profesional dan ramah
- Menjawab dengan bahasa Indonesia yang natural
- Jika ada data dari database, selalu sebutkan sumbernya
- Jika tidak tahu, jujur katakan tidak tahu
- Gunakan formatting markdown jika perlu (bold, list, dll)`

// Composer builds answer prompts from query outcomes.
type Composer struct {
	transcriptExchanges int
	logger              *zap.Logger
}

// NewComposer builds a Composer. transcriptExchanges bounds how many
// recent user/assistant pairs are rendered into the prompt.
func NewComposer(transcriptExchanges int, logger *zap.Logger) *Composer {
	if transcriptExchanges <= 0 {
		transcriptExchanges = 5
	}
	return &Composer{transcriptExchanges: transcriptExchanges, logger: logger.Named("answer")}
}

// Request is one answer-composition request.
type Request struct {
	Question string
	Outcome  resolver.Outcome
	History  []session.Message
	Mode     string // internal or external
}

// Build returns either a prompt for the LLM or a direct answer that
// needs no model call (access denials are relayed verbatim). Exactly
// one of the two is non-empty. The prompt is the user message; callers
// pass SystemPrompt as the system message alongside it.
func (c *Composer) Build(req Request) (prompt string, direct string) {
	if denied, ok := req.Outcome.(resolver.AccessDeniedOutcome); ok {
		return "", denied.Message
	}

	var b strings.Builder
	if req.Mode == "external" {
		b.WriteString("MODE: external. Kamu sedang melayani pengguna publik; jangan merujuk ke data atau sistem internal.\n\n")
	}

	if transcript := c.renderTranscript(req.History); transcript != "" {
		b.WriteString("CONVERSATION HISTORY:\n")
		b.WriteString(transcript)
		b.WriteString(`

IMPORTANT: Gunakan konteks percakapan di atas untuk memahami pertanyaan user yang mungkin mereferensikan topik sebelumnya.
Jika pertanyaan tidak memiliki keyword spesifik tapi jelas merujuk ke topik sebelumnya (contoh: "berapa yang perempuan?"), gunakan konteks untuk menjawab.

---

`)
	}

	c.writeOutcomeSection(&b, req)
	return b.String(), ""
}

// writeOutcomeSection renders the data block and its instructions. The
// switch is exhaustive over every outcome variant; a nil outcome means
// the database had nothing to contribute.
func (c *Composer) writeOutcomeSection(b *strings.Builder, req Request) {
	switch outcome := req.Outcome.(type) {
	case nil:
		fmt.Fprintf(b, `Pertanyaan user: %s

Jawab pertanyaan ini dengan pengetahuanmu. Jika pertanyaan merujuk ke percakapan sebelumnya, gunakan konteks conversation history di atas untuk memberikan jawaban yang relevan.

Jawab dengan bahasa Indonesia yang natural dan profesional:`, req.Question)

	case resolver.SuggestionsOutcome:
		payload := []map[string]any{{
			"type":          "name_suggestions",
			"searched_name": outcome.SearchedName,
			"data":          outcome.Names,
		}}
		fmt.Fprintf(b, `Pertanyaan user: %s

Data yang saya temukan:
%s

Instruksi untuk Name Suggestions:
1. PENTING: Nama %q TIDAK ditemukan di database
2. Berikan sugesti nama yang mirip dari data
3. Format jawaban: "Nama %s tidak ditemukan. Apakah yang Anda maksud adalah:"
4. List maksimal 3 nama teratas yang paling mirip
5. Tanyakan kembali dengan sopan: "Apakah salah satu dari nama di atas yang Anda maksud?"
6. JANGAN sebutkan detail teknis (tabel, SQL, database, dll)
7. Gunakan bahasa yang ramah dan membantu

Jawab dengan bahasa Indonesia yang natural dan helpful:`,
			req.Question, toJSON(payload), outcome.SearchedName, outcome.SearchedName)

	case resolver.CountOutcome:
		c.writeDataSection(b, req.Question, []map[string]any{{
			"type":        "ai_generated_query",
			"data":        []map[string]any{{"count": outcome.Value}},
			"description": outcome.Description,
		}})

	case resolver.RowsOutcome:
		c.writeDataSection(b, req.Question, []map[string]any{{
			"type":        "ai_generated_query",
			"data":        outcome.Rows,
			"description": outcome.Description,
		}})

	case resolver.TablesAvailableOutcome:
		c.writeDataSection(b, req.Question, []map[string]any{{
			"type":        "tables_available",
			"data":        outcome.Tables,
			"description": outcome.Description,
		}})

	case resolver.LegacyOutcome:
		c.writeDataSection(b, req.Question, []map[string]any{{
			"type":        outcome.Kind,
			"data":        outcome.Rows,
			"description": outcome.Description,
		}})

	case resolver.EmptyOutcome:
		fmt.Fprintf(b, `Pertanyaan user: %s

Query ke database berhasil dijalankan tetapi tidak menemukan data yang cocok.

Instruksi:
1. Sampaikan dengan sopan bahwa data yang dicari tidak ditemukan
2. JANGAN sebutkan detail teknis (tabel, SQL, database, dll)
3. Tawarkan bantuan untuk pertanyaan lain

Jawab dengan bahasa Indonesia yang natural dan helpful:`, req.Question)

	case resolver.AccessDeniedOutcome:
		// handled in Build; unreachable

	default:
		c.logger.Warn("unknown outcome variant", zap.String("type", fmt.Sprintf("%T", outcome)))
		fmt.Fprintf(b, "Pertanyaan user: %s\n\nJawab dengan bahasa Indonesia yang natural dan profesional:", req.Question)
	}
}

func (c *Composer) writeDataSection(b *strings.Builder, question string, payload []map[string]any) {
	fmt.Fprintf(b, `Pertanyaan user: %s

Data yang saya temukan untuk menjawab pertanyaan Anda:
%s

Instruksi:
1. PENTING: JANGAN sebutkan sumber teknis data (nama tabel, database, schema, SQL query, dll)
2. JANGAN PERNAH menambahkan emoji atau simbol debug info seperti 📊 Datasource, 🔍 SQL Query, 🗺️ Mapping Info
3. JANGAN mengarang nama tabel, database, atau query yang tidak ada
4. Sistem akan menambahkan debug info secara otomatis untuk user yang authorized - JANGAN menambahkan debug info sendiri
5. Analisa data dengan lengkap dan mendalam
6. Berikan jawaban yang natural seolah Anda memiliki pengetahuan langsung tentang informasi ini
7. Jika ada data dalam bentuk tabel/array, ringkas menjadi informasi yang mudah dibaca dan informatif
8. Berikan insight atau analisa tambahan jika relevan
9. Jika pertanyaan merujuk ke percakapan sebelumnya, gunakan konteks conversation history di atas
10. Jawab seolah Anda adalah expert yang tahu semua detail tentang topik ini

Jawab dengan bahasa Indonesia yang natural, profesional, dan informatif:`, question, toJSON(payload))
}

// renderTranscript renders the most recent exchanges as alternating
// User/Assistant lines.
func (c *Composer) renderTranscript(history []session.Message) string {
	if len(history) == 0 {
		return ""
	}
	limit := c.transcriptExchanges * 2
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	var lines []string
	for _, msg := range history {
		speaker := "User"
		if msg.Role == "assistant" {
			speaker = "Assistant"
		}
		lines = append(lines, speaker+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}

func toJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}
