// Package followup detects elliptical follow-up questions ("yang tahun
// 2025 saja", "siapa saja?") and rewrites them into standalone questions
// using the session's prior turns. Rewriting is best-effort: when no
// template applies, the original question passes through unchanged.
package followup

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/cladtek/dbchat-engine/pkg/session"
)

// Type classifies what kind of follow-up a question is.
type Type string

const (
	DetailRequest     Type = "detail_request"
	FilterRequest     Type = "filter_request"
	TimeFilter        Type = "time_filter"
	ComparisonRequest Type = "comparison_request"
	StatisticRequest  Type = "statistic_request"
)

// PatternGroup is one ordered family of trigger phrases.
type PatternGroup struct {
	Patterns    []string `yaml:"patterns"`
	Type        Type     `yaml:"type"`
	Description string   `yaml:"description"`
}

// Entity maps topic keywords in a prior question to a topic label used
// in rewrites.
type Entity struct {
	Keywords []string `yaml:"keywords"`
	Type     string   `yaml:"entityType"`
}

// Detection is the result of matching a question against the phrase
// tables.
type Detection struct {
	Type        Type
	Description string
	Pattern     string
}

// Engine holds the compiled phrase tables. Matching is deterministic:
// groups are checked in declaration order, and within a group each
// phrase is tried as an exact match, then a prefix, then on word
// boundaries.
type Engine struct {
	groups        []PatternGroup
	wordBoundary  map[string]*regexp.Regexp
	entities      []Entity
	authUsernames []string
	logger        *zap.Logger
}

// NewEngine compiles the phrase tables. authUsernames are the
// registered lowercase usernames whose "saya <name>" turns must be
// excluded from context building.
func NewEngine(groups []PatternGroup, entities []Entity, authUsernames []string, logger *zap.Logger) *Engine {
	e := &Engine{
		groups:        groups,
		wordBoundary:  make(map[string]*regexp.Regexp),
		entities:      entities,
		authUsernames: authUsernames,
		logger:        logger.Named("followup"),
	}
	for _, group := range groups {
		for _, p := range group.Patterns {
			if _, ok := e.wordBoundary[p]; !ok {
				e.wordBoundary[p] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(p) + `\b`)
			}
		}
	}
	return e
}

// Detect reports whether the question looks like a follow-up. Returns
// nil for standalone questions.
func (e *Engine) Detect(question string) *Detection {
	lowered := strings.ToLower(strings.TrimSpace(question))

	for _, group := range e.groups {
		for _, p := range group.Patterns {
			if lowered == p || lowered == p+"?" {
				return &Detection{Type: group.Type, Description: group.Description, Pattern: p}
			}
			if strings.HasPrefix(lowered, p+" ") {
				return &Detection{Type: group.Type, Description: group.Description, Pattern: p}
			}
			if e.wordBoundary[p].MatchString(lowered) {
				return &Detection{Type: group.Type, Description: group.Description, Pattern: p}
			}
		}
	}
	return nil
}

// ExtractEntity finds the topic of a prior question via the keyword
// table. Returns nil when no keyword matches.
func (e *Engine) ExtractEntity(context string) *Entity {
	lowered := strings.ToLower(context)
	for i := range e.entities {
		for _, keyword := range e.entities[i].Keywords {
			if strings.Contains(lowered, keyword) {
				return &e.entities[i]
			}
		}
	}
	return nil
}

// BuildContextAwareQuery rewrites a follow-up question into a standalone
// one using the session history. History should hold the turns before
// the current question. Non-follow-ups and questions with no usable
// context come back unchanged.
func (e *Engine) BuildContextAwareQuery(question string, history []session.Message) string {
	detection := e.Detect(question)
	if detection == nil {
		return question
	}

	chain := e.buildChain(history)
	if chain.baseQuestion == "" {
		return question
	}

	e.logger.Debug("follow-up detected",
		zap.String("type", string(detection.Type)),
		zap.String("pattern", detection.Pattern),
		zap.String("base_question", chain.baseQuestion),
		zap.Int("filters", len(chain.filters)))

	if rewritten := e.rewrite(question, chain); rewritten != "" {
		e.logger.Debug("question rewritten",
			zap.String("from", question),
			zap.String("to", rewritten))
		return rewritten
	}
	return question
}
