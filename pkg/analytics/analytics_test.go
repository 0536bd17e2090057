package analytics

import (
	"testing"
	"time"

	"agent-arena/pkg/scoring"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// series builds one battle per score, a second apart, in the given order.
func series(ct scoring.ChallengeType, scores ...int) []BattleRecord {
	battles := make([]BattleRecord, len(scores))
	for i, s := range scores {
		battles[i] = BattleRecord{
			ScoreTotal:    s,
			ChallengeType: ct,
			CreatedAt:     epoch.Add(time.Duration(i) * time.Second),
		}
	}
	return battles
}

func TestComputeCoreMetrics(t *testing.T) {
	tests := []struct {
		name            string
		battles         []BattleRecord
		expectedCount   int
		expectedAverage int
	}{
		{"Empty", nil, 0, 0},
		{"Single", series(scoring.Logic, 55), 1, 55},
		{"Mean", series(scoring.Logic, 50, 70, 60), 3, 60},
		{"RoundsHalfUp", series(scoring.Debate, 50, 51), 2, 51},
		{"RoundsDown", series(scoring.Debate, 50, 50, 51), 3, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := ComputeCoreMetrics(tt.battles)
			if metrics.TotalBattles != tt.expectedCount {
				t.Errorf("Expected %d battles, got %d", tt.expectedCount, metrics.TotalBattles)
			}
			if metrics.AverageScore != tt.expectedAverage {
				t.Errorf("Expected average %d, got %d", tt.expectedAverage, metrics.AverageScore)
			}
		})
	}
}

func TestComputeSkillBreakdown(t *testing.T) {
	battles := append(series(scoring.Logic, 50, 70), series(scoring.Debate, 60, 90, 75)...)
	battles = append(battles, BattleRecord{ScoreTotal: 99, ChallengeType: "poetry"})

	skills := ComputeSkillBreakdown(battles)

	if skills.Logic != (SkillStats{Count: 2, Average: 60, Best: 70}) {
		t.Errorf("Unexpected logic stats: %+v", skills.Logic)
	}
	if skills.Debate != (SkillStats{Count: 3, Average: 75, Best: 90}) {
		t.Errorf("Unexpected debate stats: %+v", skills.Debate)
	}
	if skills.Creativity != (SkillStats{}) {
		t.Errorf("Expected zero creativity stats, got %+v", skills.Creativity)
	}

	if empty := ComputeSkillBreakdown(nil); empty != (SkillBreakdown{}) {
		t.Errorf("Expected zero breakdown, got %+v", empty)
	}
}

func TestComputeTrend(t *testing.T) {
	tests := []struct {
		name              string
		battles           []BattleRecord
		expectedDirection Direction
		expectedRecent    int
		expectedPrevious  int
		expectedChange    int
	}{
		{
			name:              "TooFewBattles",
			battles:           series(scoring.Logic, 10, 20, 30, 40, 50, 60, 70, 80, 90),
			expectedDirection: Stable,
		},
		{
			name:              "Improving",
			battles:           series(scoring.Logic, 50, 55, 60, 65, 70, 75, 80, 85, 90, 95),
			expectedDirection: Improving,
			expectedRecent:    85,
			expectedPrevious:  60,
			expectedChange:    42,
		},
		{
			name:              "Declining",
			battles:           series(scoring.Debate, 80, 80, 80, 80, 80, 60, 60, 60, 60, 60),
			expectedDirection: Declining,
			expectedRecent:    60,
			expectedPrevious:  80,
			expectedChange:    -25,
		},
		{
			name:              "StableSmallChange",
			battles:           series(scoring.Logic, 50, 50, 50, 50, 50, 52, 52, 52, 52, 52),
			expectedDirection: Stable,
			expectedRecent:    52,
			expectedPrevious:  50,
			expectedChange:    4,
		},
		{
			name:              "ExactlyFivePercent",
			battles:           series(scoring.Logic, 40, 40, 40, 40, 40, 42, 42, 42, 42, 42),
			expectedDirection: Improving,
			expectedRecent:    42,
			expectedPrevious:  40,
			expectedChange:    5,
		},
		{
			name:              "ZeroPrevious",
			battles:           series(scoring.Logic, 0, 0, 0, 0, 0, 40, 40, 40, 40, 40),
			expectedDirection: Stable,
			expectedRecent:    40,
			expectedPrevious:  0,
			expectedChange:    0,
		},
		{
			name:              "OnlyLastTenCount",
			battles:           series(scoring.Logic, 0, 0, 0, 70, 70, 70, 70, 70, 70, 70, 70, 70, 70),
			expectedDirection: Stable,
			expectedRecent:    70,
			expectedPrevious:  70,
			expectedChange:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trend := ComputeTrend(tt.battles)
			if trend.Direction != tt.expectedDirection {
				t.Errorf("Expected direction %s, got %s", tt.expectedDirection, trend.Direction)
			}
			if trend.RecentAverage != tt.expectedRecent {
				t.Errorf("Expected recent average %d, got %d", tt.expectedRecent, trend.RecentAverage)
			}
			if trend.PreviousAverage != tt.expectedPrevious {
				t.Errorf("Expected previous average %d, got %d", tt.expectedPrevious, trend.PreviousAverage)
			}
			if trend.ChangePercent != tt.expectedChange {
				t.Errorf("Expected change %d%%, got %d%%", tt.expectedChange, trend.ChangePercent)
			}
		})
	}
}

func TestComputeTrend_SortsByCreation(t *testing.T) {
	battles := series(scoring.Logic, 50, 55, 60, 65, 70, 75, 80, 85, 90, 95)
	// reverse the slice; creation times still describe an improving run
	for i, j := 0, len(battles)-1; i < j; i, j = i+1, j-1 {
		battles[i], battles[j] = battles[j], battles[i]
	}

	trend := ComputeTrend(battles)
	if trend.Direction != Improving || trend.RecentAverage != 85 || trend.PreviousAverage != 60 {
		t.Errorf("Expected improving 85 vs 60, got %+v", trend)
	}
	if battles[0].ScoreTotal != 95 {
		t.Error("Expected input slice to be left unmodified")
	}
}

func TestComputePersonalBests(t *testing.T) {
	if bests := ComputePersonalBests(nil); bests != (PersonalBests{}) {
		t.Errorf("Expected all-zero bests, got %+v", bests)
	}

	battles := append(series(scoring.Logic, 85, 40), series(scoring.Creativity, 60)...)
	battles = append(battles, series(scoring.Debate, 90, 75)...)

	expected := PersonalBests{Overall: 90, Logic: 85, Debate: 90, Creativity: 60}
	if bests := ComputePersonalBests(battles); bests != expected {
		t.Errorf("Expected %+v, got %+v", expected, bests)
	}
}

func TestCompute(t *testing.T) {
	battles := series(scoring.Logic, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 100, 100)

	view := Compute(battles, 2)

	if view.TotalBattles != 12 || view.ProgramCompletions != 2 {
		t.Errorf("Unexpected totals: %+v", view)
	}
	if view.PersonalBests.Overall != 100 {
		t.Errorf("Expected overall best 100, got %d", view.PersonalBests.Overall)
	}
	if len(view.RecentScores) != RecentScoresLimit {
		t.Fatalf("Expected %d recent scores, got %d", RecentScoresLimit, len(view.RecentScores))
	}
	if !view.RecentScores[0].CreatedAt.After(view.RecentScores[1].CreatedAt) {
		t.Error("Expected recent scores newest first")
	}
	if view.RecentScores[RecentScoresLimit-1].ScoreTotal != 30 {
		t.Errorf("Expected oldest recent score 30, got %d", view.RecentScores[RecentScoresLimit-1].ScoreTotal)
	}

	empty := Compute(nil, 0)
	if empty.Trend.Direction != Stable || len(empty.RecentScores) != 0 || empty.RecentScores == nil {
		t.Errorf("Unexpected empty view: %+v", empty)
	}
}
