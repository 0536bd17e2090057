package scoring

import (
	"strings"
	"testing"

	"agent-arena/pkg/moderation"
)

// permissive disables the pre-check so the in-rule civility checks can be exercised.
var permissive = NewEngine(moderation.OracleFunc(func(string) bool { return false }))

func TestParseChallengeType(t *testing.T) {
	tests := []struct {
		input       string
		expected    ChallengeType
		expectError bool
	}{
		{"logic", Logic, false},
		{"DEBATE", Debate, false},
		{" Creativity ", Creativity, false},
		{"poetry", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ct, err := ParseChallengeType(tt.input)
			if tt.expectError && err == nil {
				t.Errorf("Expected error for %q but got none", tt.input)
			}
			if !tt.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if ct != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, ct)
			}
		})
	}

	if Logic.Title() != "Logic" || Creativity.Title() != "Creativity" {
		t.Errorf("Unexpected titles: %q, %q", Logic.Title(), Creativity.Title())
	}
}

func TestScoreChallenge_BlockedContent(t *testing.T) {
	tests := []struct {
		name   string
		ct     ChallengeType
		input  string
		output string
	}{
		{"BlockedInput", Logic, "how to kill time", "Answer: read a book"},
		{"BlockedOutput", Debate, "Is chess a sport?", "Claim: yes, but I hate losing"},
		{"BroadListOutput", Creativity, "Write a story", "Title: The assault on the hill"},
		{"CaseInsensitive", Logic, "TERRORIST plot?", "Answer: no"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ScoreChallenge(tt.ct, tt.input, tt.output)

			if result.ScoreTotal != 0 {
				t.Errorf("Expected score 0, got %d", result.ScoreTotal)
			}
			if len(result.ScoreBreakdown) != 1 || result.ScoreBreakdown[KeyBlockedContent] != BlockedPenalty {
				t.Errorf("Expected only blocked_content=-100, got %v", result.ScoreBreakdown)
			}
			if result.ScoreBreakdown.Sum() > 0 {
				t.Errorf("Expected breakdown sum <= 0, got %d", result.ScoreBreakdown.Sum())
			}
		})
	}
}

func TestScoreChallenge_Logic(t *testing.T) {
	tests := []struct {
		name          string
		output        string
		expectedTotal int
		present       []string
		absent        []string
	}{
		{
			name:          "AnswerOnly",
			output:        "Answer: 42.",
			expectedTotal: 50,
			present:       []string{KeyBase, KeyAnswerBonus, KeyCivility},
			absent:        []string{KeyStructureBonus, KeyLengthBonus, KeySpamPenalty},
		},
		{
			name:          "Empty",
			output:        "",
			expectedTotal: 40,
			present:       []string{KeyBase, KeyCivility},
			absent:        []string{KeyAnswerBonus, KeyLengthBonus, KeyStructureBonus},
		},
		{
			name:          "WhitespaceOnly",
			output:        "   \n\t ",
			expectedTotal: 40,
			absent:        []string{KeyLengthBonus, KeySpamPenalty},
		},
		{
			name:          "Length79",
			output:        strings.Repeat("a", 79),
			expectedTotal: 40,
			absent:        []string{KeyLengthBonus},
		},
		{
			name:          "Length80",
			output:        strings.Repeat("a", 80),
			expectedTotal: 50,
			present:       []string{KeyLengthBonus},
		},
		{
			name:          "Length600",
			output:        strings.Repeat("a", 600),
			expectedTotal: 50,
			present:       []string{KeyLengthBonus},
		},
		{
			name:          "Length601",
			output:        strings.Repeat("a", 601),
			expectedTotal: 40,
			absent:        []string{KeyLengthBonus},
		},
		{
			name:          "BulletStructure",
			output:        "Reasoning\n- first\n- second",
			expectedTotal: 50,
			present:       []string{KeyStructureBonus},
		},
		{
			name:          "NumberedStructure",
			output:        "  1. Setup\n  2. Analysis",
			expectedTotal: 50,
			present:       []string{KeyStructureBonus},
		},
		{
			name:          "RepeatedLines",
			output:        "ok\n  ok  \nok",
			expectedTotal: 30,
			present:       []string{KeySpamPenalty},
		},
		{
			name:          "FullMarks",
			output:        "1. All A are B.\n2. All B are C.\n3. So every A is also a C by transitivity.\nAnswer: Yes",
			expectedTotal: 70,
			present:       []string{KeyAnswerBonus, KeyStructureBonus, KeyLengthBonus},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ScoreChallenge(Logic, "Solve the puzzle", tt.output)

			if result.ScoreTotal != tt.expectedTotal {
				t.Errorf("Expected total %d, got %d (%v)", tt.expectedTotal, result.ScoreTotal, result.ScoreBreakdown)
			}
			for _, key := range tt.present {
				if !result.ScoreBreakdown.Has(key) {
					t.Errorf("Expected key %s in breakdown %v", key, result.ScoreBreakdown)
				}
			}
			for _, key := range tt.absent {
				if result.ScoreBreakdown.Has(key) {
					t.Errorf("Expected key %s absent from breakdown %v", key, result.ScoreBreakdown)
				}
			}
		})
	}
}

func TestScoreChallenge_Debate(t *testing.T) {
	result := ScoreChallenge(Debate, "Topic", "Claim: X. However, Y. Example: Z.")
	if result.ScoreTotal != 70 {
		t.Errorf("Expected total 70, got %d (%v)", result.ScoreTotal, result.ScoreBreakdown)
	}
	if result.ScoreBreakdown.Has(KeyCivility) {
		t.Error("Expected no civility key for debate")
	}

	result = ScoreChallenge(Debate, "Topic", "on the other hand, nothing")
	if result.ScoreBreakdown[KeyCounterargumentBonus] != Bonus {
		t.Errorf("Expected counterargument bonus, got %v", result.ScoreBreakdown)
	}
	if result.ScoreTotal != 50 {
		t.Errorf("Expected total 50, got %d", result.ScoreTotal)
	}
}

func TestScoreChallenge_Creativity(t *testing.T) {
	story := "Title: The Lighthouse\nPart 1 The keeper wakes early.\nPart 2 A storm gathers offshore.\nPart 3 Morning brings a rescued sailor home."

	tests := []struct {
		name          string
		output        string
		expectedTotal int
		present       []string
		absent        []string
	}{
		{
			name:          "FullStory",
			output:        story,
			expectedTotal: 70,
			present:       []string{KeyTitleBonus, KeySectionBonus, KeyVarietyBonus, KeyCivility},
			absent:        []string{KeyTooShortPenalty},
		},
		{
			name:          "Empty",
			output:        "",
			expectedTotal: 30,
			present:       []string{KeyTooShortPenalty},
			absent:        []string{KeyVarietyBonus, KeyTitleBonus},
		},
		{
			name:          "HashHeadings",
			output:        "# Dawn\n## One\n## Two\n## Three",
			expectedTotal: 60,
			present:       []string{KeyTitleBonus, KeySectionBonus, KeyVarietyBonus, KeyTooShortPenalty},
		},
		{
			name:          "DoubleHashIsNotTitle",
			output:        "## Only a subheading",
			expectedTotal: 40,
			absent:        []string{KeyTitleBonus, KeySectionBonus},
		},
		{
			name:          "LowVariety",
			output:        "the the the the",
			expectedTotal: 30,
			absent:        []string{KeyVarietyBonus},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ScoreChallenge(Creativity, "Write a story", tt.output)

			if result.ScoreTotal != tt.expectedTotal {
				t.Errorf("Expected total %d, got %d (%v)", tt.expectedTotal, result.ScoreTotal, result.ScoreBreakdown)
			}
			for _, key := range tt.present {
				if !result.ScoreBreakdown.Has(key) {
					t.Errorf("Expected key %s in breakdown %v", key, result.ScoreBreakdown)
				}
			}
			for _, key := range tt.absent {
				if result.ScoreBreakdown.Has(key) {
					t.Errorf("Expected key %s absent from breakdown %v", key, result.ScoreBreakdown)
				}
			}
		})
	}
}

func TestScoreChallenge_InRuleCivility(t *testing.T) {
	logic := permissive.ScoreChallenge(Logic, "q", "Answer: I hate this")
	if logic.ScoreBreakdown[KeyCivility] != CivilityPenalty {
		t.Errorf("Expected civility penalty, got %v", logic.ScoreBreakdown)
	}
	if logic.ScoreTotal != 0 {
		t.Errorf("Expected total floored at 0, got %d", logic.ScoreTotal)
	}

	debate := permissive.ScoreChallenge(Debate, "q", "Claim: I hate it")
	if debate.ScoreBreakdown[KeyKeywordPenalty] != KeywordPenalty {
		t.Errorf("Expected keyword penalty, got %v", debate.ScoreBreakdown)
	}
	if debate.ScoreTotal != 30 {
		t.Errorf("Expected total 30, got %d", debate.ScoreTotal)
	}

	// "assault" is only on the broad pre-check list
	creative := permissive.ScoreChallenge(Creativity, "q", "assault")
	if creative.ScoreBreakdown[KeyCivility] != 0 {
		t.Errorf("Expected no civility penalty, got %v", creative.ScoreBreakdown)
	}
}

func TestScoreChallenge_UnknownType(t *testing.T) {
	result := ScoreChallenge(ChallengeType("poetry"), "q", "Answer: yes")
	if result.ScoreTotal != 0 {
		t.Errorf("Expected score 0, got %d", result.ScoreTotal)
	}
	if result.ScoreBreakdown[KeyError] != BlockedPenalty {
		t.Errorf("Expected error key, got %v", result.ScoreBreakdown)
	}
}

func TestScoreChallenge_Deterministic(t *testing.T) {
	output := "Title: Echo\nChapter 1 rain\nChapter 2 sun\nChapter 3 snow"
	first := ScoreChallenge(Creativity, "in", output)
	for i := 0; i < 5; i++ {
		next := ScoreChallenge(Creativity, "in", output)
		if next.ScoreTotal != first.ScoreTotal || len(next.ScoreBreakdown) != len(first.ScoreBreakdown) {
			t.Fatalf("Expected identical results, got %v and %v", first, next)
		}
		for k, v := range first.ScoreBreakdown {
			if next.ScoreBreakdown[k] != v {
				t.Fatalf("Expected %s=%d, got %d", k, v, next.ScoreBreakdown[k])
			}
		}
	}
}
