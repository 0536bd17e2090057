package scoring

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minLogicLength      = 80
	maxLogicLength      = 600
	minCreativityLength = 80
	spamLineRepeats     = 3
	minSections         = 3
	minVarietyRatio     = 0.5
)

var (
	answerPattern    = regexp.MustCompile(`(?i)answer:`)
	structurePattern = regexp.MustCompile(`(?m)^\s*(•|-|\d+\.)`)

	claimPattern           = regexp.MustCompile(`(?i)claim:`)
	counterargumentPattern = regexp.MustCompile(`(?i)however|on the other hand`)
	examplePattern         = regexp.MustCompile(`(?i)example:`)

	titlePattern   = regexp.MustCompile(`(?im)^title:\s|^#\s`)
	sectionPattern = regexp.MustCompile(`(?i)part \d+|chapter \d+|##+`)
)

// civilityKeywords is the narrower list applied inside the rule sets, on top
// of the engine-wide pre-check.
var civilityKeywords = []string{
	"hate", "kill", "violence", "terrorist", "nazi",
	"hitler", "racist", "slur", "discrimination", "harassment",
}

func containsCivilityKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range civilityKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func civilityScore(output string) int {
	if containsCivilityKeyword(output) {
		return CivilityPenalty
	}
	return 0
}

// textLength counts characters, not bytes.
func textLength(s string) int {
	return utf8.RuneCountInString(s)
}

// hasRepeatedLines reports whether any non-blank trimmed line occurs at
// least spamLineRepeats times.
func hasRepeatedLines(output string) bool {
	counts := make(map[string]int)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		counts[line]++
		if counts[line] >= spamLineRepeats {
			return true
		}
	}
	return false
}

func scoreLogic(output string) Breakdown {
	breakdown := Breakdown{KeyBase: BaseScore}

	if answerPattern.MatchString(output) {
		breakdown[KeyAnswerBonus] = Bonus
	}

	if structurePattern.MatchString(output) {
		breakdown[KeyStructureBonus] = Bonus
	}

	length := textLength(output)
	if length >= minLogicLength && length <= maxLogicLength {
		breakdown[KeyLengthBonus] = Bonus
	}

	if hasRepeatedLines(output) {
		breakdown[KeySpamPenalty] = SpamPenalty
	}

	breakdown[KeyCivility] = civilityScore(output)

	return breakdown
}

func scoreDebate(output string) Breakdown {
	breakdown := Breakdown{KeyBase: BaseScore}

	if claimPattern.MatchString(output) {
		breakdown[KeyClaimBonus] = Bonus
	}

	if counterargumentPattern.MatchString(output) {
		breakdown[KeyCounterargumentBonus] = Bonus
	}

	if examplePattern.MatchString(output) {
		breakdown[KeyExampleBonus] = Bonus
	}

	if containsCivilityKeyword(output) {
		breakdown[KeyKeywordPenalty] = KeywordPenalty
	}

	return breakdown
}

func scoreCreativity(output string) Breakdown {
	breakdown := Breakdown{KeyBase: BaseScore}

	if titlePattern.MatchString(output) {
		breakdown[KeyTitleBonus] = Bonus
	}

	if len(sectionPattern.FindAllStringIndex(output, -1)) >= minSections {
		breakdown[KeySectionBonus] = Bonus
	}

	if words := strings.Fields(output); len(words) > 0 {
		unique := make(map[string]struct{}, len(words))
		for _, w := range words {
			unique[strings.ToLower(w)] = struct{}{}
		}
		if float64(len(unique))/float64(len(words)) >= minVarietyRatio {
			breakdown[KeyVarietyBonus] = Bonus
		}
	}

	if textLength(output) < minCreativityLength {
		breakdown[KeyTooShortPenalty] = ShortPenalty
	}

	breakdown[KeyCivility] = civilityScore(output)

	return breakdown
}
