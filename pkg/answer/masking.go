package answer

import (
	"regexp"
	"strings"
)

var (
	passwordAssignRe = regexp.MustCompile(`(?i)(password|pwd|pass)\s*[:=]\s*['"]?([a-zA-Z0-9@!#$%^&*]{4,})['"]?`)
	longTokenRe      = regexp.MustCompile(`\b[a-zA-Z0-9_\-\.]{32,}\b`)
	emailRe          = regexp.MustCompile(`\b([a-zA-Z0-9._%+-]+)@([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})\b`)
	pureAlphaRe      = regexp.MustCompile(`^[a-zA-Z]+$`)
)

// MaskSensitiveData scrubs credentials and tokens from outbound text:
// password assignments become ****, long opaque tokens keep only their
// head and tail, and email local parts are truncated to three chars.
func MaskSensitiveData(text string) string {
	masked := passwordAssignRe.ReplaceAllString(text, "$1: ****")

	masked = longTokenRe.ReplaceAllStringFunc(masked, func(token string) string {
		// Long plain words are prose, not secrets.
		if pureAlphaRe.MatchString(token) {
			return token
		}
		return token[:8] + "..." + token[len(token)-4:]
	})

	masked = emailRe.ReplaceAllStringFunc(masked, func(email string) string {
		at := strings.Index(email, "@")
		local, domain := email[:at], email[at+1:]
		if len(local) <= 3 {
			return email
		}
		return local[:3] + "***@" + domain
	})

	return masked
}
