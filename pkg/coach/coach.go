// Package coach generates deterministic coaching feedback for scored battles.
// A report is derived purely from the challenge type and score breakdown,
// so regenerating it from the stored battle always yields the same result.
package coach

import (
	"strings"
	"unicode/utf8"

	"agent-arena/pkg/scoring"
)

// Focus is the skill area a report recommends working on next.
type Focus string

const (
	FocusLogic      Focus = "LOGIC"
	FocusDebate     Focus = "DEBATE"
	FocusCreativity Focus = "CREATIVITY"
	FocusGeneral    Focus = "GENERAL"
)

// Tier classifies a total score for focus selection.
type Tier string

const (
	TierExcellent        Tier = "excellent"
	TierGood             Tier = "good"
	TierNeedsImprovement Tier = "needs_improvement"
)

// NextDrill is a suggested follow-up challenge.
type NextDrill struct {
	ChallengeType scoring.ChallengeType `json:"challenge_type"`
	PresetTitle   string                `json:"preset_title"`
	PresetInput   string                `json:"preset_input"`
}

// Report is the coaching feedback for a single battle.
type Report struct {
	Strengths         []string    `json:"strengths"`
	Weaknesses        []string    `json:"weaknesses"`
	PromptSuggestions []string    `json:"prompt_suggestions"`
	NextDrills        []NextDrill `json:"next_drills"`
	RecommendedFocus  Focus       `json:"recommended_focus"`
}

// TierFor classifies a breakdown total: 80 and above is excellent,
// 60 to 79 is good, anything lower needs improvement.
func TierFor(total int) Tier {
	switch {
	case total >= 80:
		return TierExcellent
	case total >= 60:
		return TierGood
	default:
		return TierNeedsImprovement
	}
}

// FocusFor returns the recommended focus for a challenge type and tier.
// Good and needs-improvement tiers currently map to the same focus.
func FocusFor(ct scoring.ChallengeType, tier Tier) Focus {
	switch tier {
	case TierExcellent:
		return FocusGeneral
	case TierGood:
		return Focus(strings.ToUpper(string(ct)))
	default:
		return Focus(strings.ToUpper(string(ct)))
	}
}

// Generate builds the coach report for a scored battle. inputText is
// accepted so stored battles can be regenerated with their full context;
// the current rule sets only inspect the breakdown and output.
func Generate(ct scoring.ChallengeType, breakdown scoring.Breakdown, inputText, outputText string) Report {
	report := Report{
		Strengths:         []string{},
		Weaknesses:        []string{},
		PromptSuggestions: []string{},
		NextDrills:        []NextDrill{},
	}

	cat, ok := catalogs[ct]
	if !ok {
		report.RecommendedFocus = FocusGeneral
		return report
	}

	outputLength := utf8.RuneCountInString(outputText)

	for _, rule := range cat.bonuses {
		if breakdown[rule.key] == scoring.Bonus {
			report.Strengths = append(report.Strengths, rule.strength)
		}
	}
	if len(report.Strengths) == 0 && breakdown[scoring.KeyBase] == scoring.BaseScore {
		report.Strengths = append(report.Strengths, cat.genericStrength)
	}

	for _, rule := range cat.bonuses {
		if breakdown[rule.key] == scoring.Bonus {
			continue
		}
		adv := rule.advice
		if rule.adviceFor != nil {
			if adv, ok = rule.adviceFor(outputLength); !ok {
				continue
			}
		}
		report.Weaknesses = append(report.Weaknesses, adv.weakness)
		report.PromptSuggestions = append(report.PromptSuggestions, adv.suggestion)
	}

	for _, rule := range cat.penalties {
		if breakdown.Has(rule.key) && breakdown[rule.key] == rule.value {
			report.Weaknesses = append(report.Weaknesses, rule.weakness)
			report.PromptSuggestions = append(report.PromptSuggestions, rule.suggestion)
		}
	}

	for _, rule := range cat.bonuses {
		if breakdown[rule.key] == 0 {
			report.NextDrills = append(report.NextDrills, rule.drill)
		}
	}
	if len(report.NextDrills) < minDrills {
		report.NextDrills = append(report.NextDrills, cat.fillers...)
	}

	report.RecommendedFocus = FocusFor(ct, TierFor(breakdown.Sum()))

	return report
}
