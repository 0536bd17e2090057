// Package moderation provides content moderation for the Agent Arena.
// It exposes a keyword blocklist oracle used by the scoring engine and a
// context-aware moderator applied to user-authored text such as bios and comments.
package moderation

import (
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// Context identifies where a piece of text is being submitted.
type Context string

const (
	ContextBio     Context = "bio"
	ContextPrompt  Context = "prompt"
	ContextInput   Context = "input"
	ContextOutput  Context = "output"
	ContextComment Context = "comment"
	ContextPost    Context = "post"
)

// MaxBioLength is the longest bio accepted by Moderate.
const MaxBioLength = 500

// Rejection reasons returned in Result.Reason
const (
	ReasonInappropriate = "Content contains inappropriate language"
	ReasonSpam          = "Content appears to be spam"
	ReasonBioTooLong    = "Bio must be 500 characters or less"
)

// blockedKeywords is matched case-insensitively as plain substrings.
var blockedKeywords = []string{
	"hate", "kill", "violence", "terrorist", "nazi", "hitler",
	"racist", "slur", "discrimination", "harassment", "abuse",
	"threat", "murder", "assault", "porn", "nsfw", "explicit",
	"self-harm", "suicide", "drug", "hack", "exploit",
}

// spamPatterns need backreference support, which rules out the standard regexp package.
// ECMAScript mode limits \w to ASCII word characters.
var spamPatterns = []*regexp2.Regexp{
	mustCompile(`\w{20,}`, regexp2.ECMAScript),
	mustCompile(`(.{10,})\1{2,}`, regexp2.ECMAScript),
	mustCompile(`^https?://.*$`, regexp2.ECMAScript|regexp2.IgnoreCase),
}

func mustCompile(pattern string, opts regexp2.RegexOptions) *regexp2.Regexp {
	re := regexp2.MustCompile(pattern, opts)
	re.MatchTimeout = 250 * time.Millisecond
	return re
}

// Result is the outcome of moderating a piece of text.
type Result struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Oracle answers whether text contains blocked content.
type Oracle interface {
	IsBlocked(text string) bool
}

// OracleFunc adapts a plain function to the Oracle interface.
type OracleFunc func(text string) bool

// IsBlocked calls f(text).
func (f OracleFunc) IsBlocked(text string) bool {
	return f(text)
}

// Default is the keyword blocklist oracle.
var Default Oracle = OracleFunc(IsBlocked)

// IsBlocked reports whether text contains any blocked keyword.
// Matching is a crude case-insensitive substring test, so a keyword embedded
// inside a longer word still triggers.
func IsBlocked(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, keyword := range blockedKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// IsSpam reports whether text matches one of the spam patterns.
// A pattern that times out is treated as a non-match.
func IsSpam(text string) bool {
	for _, re := range spamPatterns {
		if ok, err := re.MatchString(text); err == nil && ok {
			return true
		}
	}
	return false
}

// Moderate checks text against the blocklist, then the spam patterns
// (skipped for prompts), then the bio length limit.
func Moderate(text string, ctx Context) Result {
	if IsBlocked(text) {
		return Result{Allowed: false, Reason: ReasonInappropriate}
	}

	if ctx != ContextPrompt && IsSpam(text) {
		return Result{Allowed: false, Reason: ReasonSpam}
	}

	if ctx == ContextBio && len([]rune(text)) > MaxBioLength {
		return Result{Allowed: false, Reason: ReasonBioTooLong}
	}

	return Result{Allowed: true}
}
