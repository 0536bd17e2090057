// Package scoring provides deterministic, rule-based scoring of challenge
// submissions for the Agent Arena, along with the agent rating formulas.
// Every function in this package is pure: identical inputs always produce
// identical results.
package scoring

import (
	"fmt"
	"strings"

	"agent-arena/pkg/moderation"
)

// ChallengeType identifies the rule set used to score a submission.
type ChallengeType string

const (
	Logic      ChallengeType = "logic"
	Debate     ChallengeType = "debate"
	Creativity ChallengeType = "creativity"
)

// ChallengeTypes lists every supported challenge type in display order.
var ChallengeTypes = []ChallengeType{Logic, Debate, Creativity}

// ParseChallengeType converts a user-supplied string into a ChallengeType.
// Matching is case-insensitive; unknown values return an error.
func ParseChallengeType(s string) (ChallengeType, error) {
	ct := ChallengeType(strings.ToLower(strings.TrimSpace(s)))
	if !ct.Valid() {
		return "", fmt.Errorf("invalid challenge type: %q", s)
	}
	return ct, nil
}

// Valid reports whether ct is one of the supported challenge types.
func (ct ChallengeType) Valid() bool {
	switch ct {
	case Logic, Debate, Creativity:
		return true
	}
	return false
}

// Title returns the capitalized display name, e.g. "Logic".
func (ct ChallengeType) Title() string {
	if ct == "" {
		return ""
	}
	return strings.ToUpper(string(ct[:1])) + string(ct[1:])
}

// Breakdown keys recorded by the rule sets
const (
	KeyBase                 = "base"
	KeyBlockedContent       = "blocked_content"
	KeyError                = "error"
	KeyAnswerBonus          = "answer_bonus"
	KeyStructureBonus       = "structure_bonus"
	KeyLengthBonus          = "length_bonus"
	KeySpamPenalty          = "spam_penalty"
	KeyCivility             = "civility"
	KeyClaimBonus           = "claim_bonus"
	KeyCounterargumentBonus = "counterargument_bonus"
	KeyExampleBonus         = "example_bonus"
	KeyKeywordPenalty       = "keyword_penalty"
	KeyTitleBonus           = "title_bonus"
	KeySectionBonus         = "section_bonus"
	KeyVarietyBonus         = "variety_bonus"
	KeyTooShortPenalty      = "too_short_penalty"
)

// Rule contribution values
const (
	BaseScore       = 40
	Bonus           = 10
	SpamPenalty     = -10
	ShortPenalty    = -10
	KeywordPenalty  = -20
	BlockedPenalty  = -100
	CivilityPenalty = -100
)

// Breakdown maps a named rule to its signed contribution to the total score.
type Breakdown map[string]int

// Sum adds every contribution in the breakdown without clamping.
func (b Breakdown) Sum() int {
	total := 0
	for _, v := range b {
		total += v
	}
	return total
}

// Has reports whether key was recorded in the breakdown.
func (b Breakdown) Has(key string) bool {
	_, ok := b[key]
	return ok
}

// Result is the outcome of scoring a single submission.
type Result struct {
	ScoreTotal     int       `json:"score_total"`
	ScoreBreakdown Breakdown `json:"score_breakdown"`
}

// Engine scores submissions against the rule set for their challenge type.
// The blocked-content pre-check is delegated to the configured oracle.
type Engine struct {
	oracle moderation.Oracle
}

// NewEngine creates a scoring engine that uses oracle for the pre-check.
// A nil oracle falls back to the moderation keyword blocklist.
func NewEngine(oracle moderation.Oracle) *Engine {
	if oracle == nil {
		oracle = moderation.Default
	}
	return &Engine{oracle: oracle}
}

var defaultEngine = NewEngine(nil)

// ScoreChallenge scores a submission with the default engine.
func ScoreChallenge(ct ChallengeType, inputText, outputText string) Result {
	return defaultEngine.ScoreChallenge(ct, inputText, outputText)
}

// ScoreChallenge scores outputText for the given challenge type.
// Blocked input or output short-circuits to a zero score with a single
// blocked_content entry. An unknown challenge type scores zero with an
// error entry; callers should reject such values with ParseChallengeType first.
func (e *Engine) ScoreChallenge(ct ChallengeType, inputText, outputText string) Result {
	if e.oracle.IsBlocked(inputText) || e.oracle.IsBlocked(outputText) {
		return Result{
			ScoreTotal:     0,
			ScoreBreakdown: Breakdown{KeyBlockedContent: BlockedPenalty},
		}
	}

	var breakdown Breakdown
	switch ct {
	case Logic:
		breakdown = scoreLogic(outputText)
	case Debate:
		breakdown = scoreDebate(outputText)
	case Creativity:
		breakdown = scoreCreativity(outputText)
	default:
		breakdown = Breakdown{KeyError: BlockedPenalty}
	}

	return Result{
		ScoreTotal:     max(0, breakdown.Sum()),
		ScoreBreakdown: breakdown,
	}
}
