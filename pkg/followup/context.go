package followup

import (
	"regexp"
	"strings"

	"github.com/cladtek/dbchat-engine/pkg/session"
)

// contextChain is what prior turns tell us about the current topic.
type contextChain struct {
	baseQuestion string
	filters      []string
	entity       *Entity
}

var (
	filterPrefixes    = []string{"yang ", "which ", "with ", "di ", "hanya ", "cuma ", "kalau ", "bagaimana "}
	timeUnitPrefix    = regexp.MustCompile(`(?i)^(tahun|bulan|year|month)\s+`)
	sajaAnywhere      = regexp.MustCompile(`\b(saja|aja)\b`)
	detailRequestRe  = regexp.MustCompile(`\b(tampilkan|sebutkan|list|show|minta|tolong|coba)\b`)
	bareDetailRe      = regexp.MustCompile(`(?i)^(apa saja|siapa saja|sebutkan|tampilkan|show|list|daftarnya)[\s\?]*$`)
	requestFilterRe   = regexp.MustCompile(`(?i)(saya minta|tolong|coba|minta|kasih lihat)\s+(yang\s+)?(.+)`)
	bareFilterRe      = regexp.MustCompile(`(?i)^yang\s+(.+)$`)
	kalauRe           = regexp.MustCompile(`(?i)^kalau\s+(.+)$`)
	howAboutRe        = regexp.MustCompile(`(?i)^(bagaimana dengan|bagaimana|how about|what about)\s+(.+)$`)
)

// buildChain walks prior user turns most-recent-first, skipping
// authentication exchanges, and classifies each as a filter or as the
// base (topic-carrying) question. The first substantive non-filter turn
// wins as base.
func (e *Engine) buildChain(history []session.Message) contextChain {
	var chain contextChain

	var userContents []string
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if msg.Role != "user" {
			continue
		}
		if e.isAuthTurn(msg.Content) {
			continue
		}
		userContents = append(userContents, msg.Content)
	}
	if len(userContents) == 0 {
		return chain
	}

	for _, question := range userContents {
		lowered := strings.ToLower(question)
		isFilter := isFilterShaped(lowered)
		isDetail := detailRequestRe.MatchString(lowered)

		switch {
		case isFilter && !isDetail:
			chain.filters = append(chain.filters, question)
		case isDetail && chain.baseQuestion != "":
			// detail request over an established topic, not a new base
		case chain.baseQuestion == "":
			chain.baseQuestion = question
			chain.entity = e.ExtractEntity(question)
		}
	}

	// No substantive base found; fall back to the most recent turn.
	if chain.baseQuestion == "" {
		chain.baseQuestion = userContents[0]
		chain.entity = e.ExtractEntity(userContents[0])
	}

	return chain
}

// isAuthTurn filters out masked password exchanges, "saya <registered
// user>" triggers, and turns too short to carry a topic.
func (e *Engine) isAuthTurn(content string) bool {
	if content == session.MaskedContent {
		return true
	}
	if len(content) <= 3 {
		return true
	}
	lowered := strings.ToLower(content)
	if strings.HasPrefix(lowered, "saya ") {
		for _, username := range e.authUsernames {
			if strings.Contains(lowered, username) {
				return true
			}
		}
	}
	return false
}

func isFilterShaped(lowered string) bool {
	for _, prefix := range filterPrefixes {
		if strings.HasPrefix(lowered, prefix) {
			return true
		}
	}
	return timeUnitPrefix.MatchString(lowered) || sajaAnywhere.MatchString(lowered)
}

// rewrite applies the ordered templates. Returns "" when none matches.
func (e *Engine) rewrite(question string, chain contextChain) string {
	lowered := strings.ToLower(strings.TrimSpace(question))
	if chain.entity == nil {
		return ""
	}

	// Bare detail request: "siapa saja?" -> "tampilkan daftar <entity> <filters>"
	if bareDetailRe.MatchString(lowered) {
		out := "tampilkan daftar " + chain.entity.Type
		if len(chain.filters) > 0 {
			out += " " + strings.Join(chain.filters, " ")
		}
		return out
	}

	// "saya minta yang perempuan" -> "tampilkan <entity> [<filters>] perempuan"
	if m := requestFilterRe.FindStringSubmatch(lowered); m != nil {
		requested := m[3]
		if len(chain.filters) > 0 {
			existing := strings.ToLower(strings.Join(chain.filters, " "))
			if !strings.Contains(existing, strings.ToLower(requested)) {
				return "tampilkan " + chain.entity.Type + " " + strings.Join(chain.filters, " ") + " " + requested
			}
		}
		return "tampilkan " + chain.entity.Type + " " + requested
	}

	// "yang 2025" -> "<entity> 2025"
	if m := bareFilterRe.FindStringSubmatch(lowered); m != nil {
		return chain.entity.Type + " " + m[1]
	}

	// "kalau dept IT?" -> "<entity> dept IT?"
	if m := kalauRe.FindStringSubmatch(lowered); m != nil {
		return chain.entity.Type + " " + m[1]
	}

	// "bagaimana dengan 2024" -> "<entity> 2024"
	if m := howAboutRe.FindStringSubmatch(lowered); m != nil {
		return chain.entity.Type + " " + m[2]
	}

	return ""
}
