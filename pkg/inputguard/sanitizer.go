// Package inputguard validates and normalizes raw user text before any
// further processing. The prompt-injection check is a heuristic blacklist,
// not a guarantee: it catches the common phrasings, and determined attackers
// will find others. Downstream layers (SQL validation, read-only credential)
// are the ones that must hold.
package inputguard

import (
	"regexp"
	"strings"

	"github.com/cladtek/dbchat-engine/pkg/apperrors"
)

const (
	// MaxInputLength bounds a single user message.
	MaxInputLength = 2000
	// maxSpecialChars bounds characters from <>{}[]\| per message.
	maxSpecialChars = 10
)

// injectionPatterns are prompt-override phrasings that get a message
// rejected outright.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?previous\s+instructions?`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?(previous|earlier)\s+instructions?`),
	regexp.MustCompile(`(?i)system\s*:\s*`),
	regexp.MustCompile(`(?i)assistant\s*:\s*`),
	regexp.MustCompile(`(?i)\[SYSTEM\]`),
	regexp.MustCompile(`(?i)\[INST\]`),
	regexp.MustCompile(`(?i)<\|system\|>`),
	regexp.MustCompile(`(?i)<\|assistant\|>`),
	regexp.MustCompile(`(?i)you\s+are\s+now`),
	regexp.MustCompile(`(?i)your\s+new\s+(role|instructions?|task)`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?instructions?`),
	regexp.MustCompile(`(?i)override\s+instructions?`),
	regexp.MustCompile(`(?i)bypass\s+restrictions?`),
	regexp.MustCompile(`(?i)reveal\s+(your\s+)?(system\s+)?prompt`),
	regexp.MustCompile(`(?i)show\s+me\s+(your\s+)?(system\s+)?prompt`),
	regexp.MustCompile(`(?i)print\s+(your\s+)?(system\s+)?prompt`),
	regexp.MustCompile(`(?i)display\s+(your\s+)?(system\s+)?prompt`),
	regexp.MustCompile(`(?i)what\s+(is|are)\s+your\s+(system\s+)?instructions?`),
}

var (
	specialChars      = regexp.MustCompile(`[<>{}\[\]\\|]`)
	excessiveNewlines = regexp.MustCompile(`\n{4,}`)
)

// Sanitize validates raw user input and returns the normalized text.
// Rejections use the apperrors sentinels so callers can branch on the
// reason without parsing messages.
func Sanitize(input string) (string, error) {
	if len(input) > MaxInputLength {
		return "", apperrors.ErrInputTooLong
	}

	for _, pattern := range injectionPatterns {
		if pattern.MatchString(input) {
			return "", apperrors.ErrInjectionSuspected
		}
	}

	if len(specialChars.FindAllString(input, -1)) > maxSpecialChars {
		return "", apperrors.ErrExcessiveSpecialChars
	}

	sanitized := strings.TrimSpace(input)
	sanitized = strings.ReplaceAll(sanitized, "\x00", "")
	sanitized = excessiveNewlines.ReplaceAllString(sanitized, "\n\n\n")

	return sanitized, nil
}

// sessionIDPattern allows alphanumerics, hyphens, underscores; 3-100 chars.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,100}$`)

// ValidSessionID reports whether the session id has an acceptable shape.
func ValidSessionID(sessionID string) bool {
	return sessionIDPattern.MatchString(sessionID)
}

// ValidMode reports whether mode is one of the two accepted literals.
func ValidMode(mode string) bool {
	return mode == "internal" || mode == "external"
}
