package coach

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"agent-arena/pkg/scoring"
)

func drillTitles(drills []NextDrill) []string {
	titles := make([]string, len(drills))
	for i, d := range drills {
		titles[i] = d.PresetTitle
	}
	return titles
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		total    int
		expected Tier
	}{
		{100, TierExcellent},
		{80, TierExcellent},
		{79, TierGood},
		{60, TierGood},
		{59, TierNeedsImprovement},
		{0, TierNeedsImprovement},
		{-100, TierNeedsImprovement},
	}

	for _, tt := range tests {
		if got := TierFor(tt.total); got != tt.expected {
			t.Errorf("TierFor(%d): expected %s, got %s", tt.total, tt.expected, got)
		}
	}
}

func TestGenerate_LogicAllMissingShort(t *testing.T) {
	breakdown := scoring.Breakdown{"base": 40, "civility": 0}
	report := Generate(scoring.Logic, breakdown, "input", "Too short")

	if !reflect.DeepEqual(report.Strengths, []string{"Solid foundational logic skills"}) {
		t.Errorf("Unexpected strengths: %v", report.Strengths)
	}

	expectedWeaknesses := []string{
		"Missing clear 'Answer:' label - add explicit answer section",
		"Lacks structured format - use bullets or numbered steps",
		"Response too short - expand analysis",
	}
	if !reflect.DeepEqual(report.Weaknesses, expectedWeaknesses) {
		t.Errorf("Expected weaknesses %v, got %v", expectedWeaknesses, report.Weaknesses)
	}
	if len(report.PromptSuggestions) != len(report.Weaknesses) {
		t.Errorf("Expected one suggestion per weakness, got %d for %d", len(report.PromptSuggestions), len(report.Weaknesses))
	}

	expectedDrills := []string{"Final Answer Practice", "Structured Reasoning", "Detailed Analysis"}
	if !reflect.DeepEqual(drillTitles(report.NextDrills), expectedDrills) {
		t.Errorf("Expected drills %v, got %v", expectedDrills, drillTitles(report.NextDrills))
	}
	if report.RecommendedFocus != FocusLogic {
		t.Errorf("Expected focus LOGIC, got %s", report.RecommendedFocus)
	}
}

func TestGenerate_LogicVerboseWithSpam(t *testing.T) {
	breakdown := scoring.Breakdown{"base": 40, "answer_bonus": 10, "structure_bonus": 10, "spam_penalty": -10, "civility": 0}
	report := Generate(scoring.Logic, breakdown, "input", strings.Repeat("x", 601))

	expectedStrengths := []string{
		"Clear answer formatting with 'Answer:' label",
		"Well-organized with bullet points or numbered steps",
	}
	if !reflect.DeepEqual(report.Strengths, expectedStrengths) {
		t.Errorf("Expected strengths %v, got %v", expectedStrengths, report.Strengths)
	}

	expectedWeaknesses := []string{
		"Response too verbose - be more concise",
		"Repetitive content detected - vary your language",
	}
	if !reflect.DeepEqual(report.Weaknesses, expectedWeaknesses) {
		t.Errorf("Expected weaknesses %v, got %v", expectedWeaknesses, report.Weaknesses)
	}

	// one specific drill, then both fillers
	expectedDrills := []string{"Detailed Analysis", "Syllogism Practice", "Pattern Recognition"}
	if !reflect.DeepEqual(drillTitles(report.NextDrills), expectedDrills) {
		t.Errorf("Expected drills %v, got %v", expectedDrills, drillTitles(report.NextDrills))
	}
}

func TestGenerate_LogicLengthInRangeWithoutBonus(t *testing.T) {
	// a missing length bonus with in-range output emits no length advice
	breakdown := scoring.Breakdown{"base": 40, "answer_bonus": 10, "structure_bonus": 10}
	report := Generate(scoring.Logic, breakdown, "input", strings.Repeat("y", 100))

	if len(report.Weaknesses) != 0 {
		t.Errorf("Expected no weaknesses, got %v", report.Weaknesses)
	}
	if len(report.NextDrills) != 3 {
		t.Errorf("Expected 3 drills, got %v", drillTitles(report.NextDrills))
	}
}

func TestGenerate_DebateFullMarks(t *testing.T) {
	result := scoring.ScoreChallenge(scoring.Debate, "Topic", "Claim: X. However, Y. Example: Z.")
	report := Generate(scoring.Debate, result.ScoreBreakdown, "Topic", "Claim: X. However, Y. Example: Z.")

	if len(report.Strengths) != 3 {
		t.Errorf("Expected 3 strengths, got %v", report.Strengths)
	}
	if len(report.Weaknesses) != 0 || len(report.PromptSuggestions) != 0 {
		t.Errorf("Expected no weaknesses or suggestions, got %v / %v", report.Weaknesses, report.PromptSuggestions)
	}
	if !reflect.DeepEqual(drillTitles(report.NextDrills), []string{"Structured Argumentation"}) {
		t.Errorf("Expected only the filler drill, got %v", drillTitles(report.NextDrills))
	}
	// 70 is in the good tier
	if report.RecommendedFocus != FocusDebate {
		t.Errorf("Expected focus DEBATE, got %s", report.RecommendedFocus)
	}
}

func TestGenerate_CreativityShortStory(t *testing.T) {
	breakdown := scoring.Breakdown{"base": 40, "title_bonus": 10, "variety_bonus": 10, "too_short_penalty": -10, "civility": 0}
	report := Generate(scoring.Creativity, breakdown, "Write", "# Short\nA tiny tale.")

	expectedStrengths := []string{"Includes creative title", "Rich vocabulary with good word variety"}
	if !reflect.DeepEqual(report.Strengths, expectedStrengths) {
		t.Errorf("Expected strengths %v, got %v", expectedStrengths, report.Strengths)
	}
	expectedWeaknesses := []string{
		"Lacks structure - divide into 3+ sections",
		"Story too short - expand narrative",
	}
	if !reflect.DeepEqual(report.Weaknesses, expectedWeaknesses) {
		t.Errorf("Expected weaknesses %v, got %v", expectedWeaknesses, report.Weaknesses)
	}
	expectedDrills := []string{"Structured Story", "Imaginative Prompt"}
	if !reflect.DeepEqual(drillTitles(report.NextDrills), expectedDrills) {
		t.Errorf("Expected drills %v, got %v", expectedDrills, drillTitles(report.NextDrills))
	}
	for _, d := range report.NextDrills {
		if d.ChallengeType != scoring.Creativity {
			t.Errorf("Expected creativity drill, got %s", d.ChallengeType)
		}
	}
}

func TestGenerate_BlockedBreakdown(t *testing.T) {
	breakdown := scoring.Breakdown{"blocked_content": -100}
	report := Generate(scoring.Logic, breakdown, "bad", "bad")

	// no base means no generic strength
	if len(report.Strengths) != 0 {
		t.Errorf("Expected no strengths, got %v", report.Strengths)
	}
	if len(report.NextDrills) != 3 {
		t.Errorf("Expected 3 drills, got %v", drillTitles(report.NextDrills))
	}
	if report.RecommendedFocus != FocusLogic {
		t.Errorf("Expected focus LOGIC, got %s", report.RecommendedFocus)
	}
}

func TestGenerate_ExcellentFocus(t *testing.T) {
	breakdown := scoring.Breakdown{"base": 40, "title_bonus": 10, "section_bonus": 10, "variety_bonus": 10, "extra": 10}
	report := Generate(scoring.Creativity, breakdown, "", strings.Repeat("z", 100))
	if report.RecommendedFocus != FocusGeneral {
		t.Errorf("Expected focus GENERAL, got %s", report.RecommendedFocus)
	}
}

func TestGenerate_UnknownType(t *testing.T) {
	report := Generate(scoring.ChallengeType("poetry"), scoring.Breakdown{"base": 40}, "", "")
	if report.RecommendedFocus != FocusGeneral {
		t.Errorf("Expected focus GENERAL, got %s", report.RecommendedFocus)
	}
	if report.Strengths == nil || report.NextDrills == nil {
		t.Error("Expected empty, non-nil slices")
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	output := "Claim: cities should plant more trees.\nOn the other hand, upkeep costs money."
	result := scoring.ScoreChallenge(scoring.Debate, "Urban trees", output)

	first, err := json.Marshal(Generate(scoring.Debate, result.ScoreBreakdown, "Urban trees", output))
	if err != nil {
		t.Fatalf("Failed to marshal report: %v", err)
	}
	for i := 0; i < 3; i++ {
		next, err := json.Marshal(Generate(scoring.Debate, result.ScoreBreakdown, "Urban trees", output))
		if err != nil {
			t.Fatalf("Failed to marshal report: %v", err)
		}
		if string(first) != string(next) {
			t.Fatalf("Expected identical reports:\n%s\n%s", first, next)
		}
	}
}
