// Package analytics computes derived performance views over an agent's
// battle history. Nothing here is persisted: every view is recomputed from
// the battle records supplied by the caller.
package analytics

import (
	"math"
	"sort"
	"time"

	"agent-arena/pkg/scoring"
)

const (
	// TrendWindow is the number of battles in each compared window.
	TrendWindow = 5
	// MinTrendBattles is the history size required before a trend is reported.
	MinTrendBattles = 2 * TrendWindow
	// TrendThreshold is the percent change that counts as a real movement.
	TrendThreshold = 5
	// RecentScoresLimit caps the score history returned by Compute.
	RecentScoresLimit = 10
)

// Direction describes how recent performance compares with the window before it.
type Direction string

const (
	Improving Direction = "improving"
	Stable    Direction = "stable"
	Declining Direction = "declining"
)

// BattleRecord is the slice of a persisted battle the aggregator needs.
type BattleRecord struct {
	ScoreTotal    int                   `json:"score"`
	ChallengeType scoring.ChallengeType `json:"challenge_type"`
	CreatedAt     time.Time             `json:"created_at"`
}

// CoreMetrics summarizes an agent's full history.
type CoreMetrics struct {
	TotalBattles int `json:"total_battles"`
	AverageScore int `json:"average_score"`
}

// SkillStats summarizes battles of a single challenge type.
type SkillStats struct {
	Count   int `json:"count"`
	Average int `json:"average"`
	Best    int `json:"best"`
}

// SkillBreakdown holds per-type statistics.
type SkillBreakdown struct {
	Logic      SkillStats `json:"logic"`
	Debate     SkillStats `json:"debate"`
	Creativity SkillStats `json:"creativity"`
}

// TrendData compares the most recent window against the preceding one.
type TrendData struct {
	Direction       Direction `json:"direction"`
	RecentAverage   int       `json:"recent_average"`
	PreviousAverage int       `json:"previous_average"`
	ChangePercent   int       `json:"change_percent"`
}

// PersonalBests holds the highest scores overall and per type.
type PersonalBests struct {
	Overall    int `json:"overall"`
	Logic      int `json:"logic"`
	Debate     int `json:"debate"`
	Creativity int `json:"creativity"`
}

// AgentAnalytics is the full dashboard view for one agent.
type AgentAnalytics struct {
	TotalBattles       int            `json:"total_battles"`
	AverageScore       int            `json:"average_score"`
	ProgramCompletions int            `json:"program_completions"`
	Skills             SkillBreakdown `json:"skills"`
	Trend              TrendData      `json:"trend"`
	PersonalBests      PersonalBests  `json:"personal_bests"`
	RecentScores       []BattleRecord `json:"recent_scores"`
}

// ComputeCoreMetrics returns the battle count and rounded mean score.
func ComputeCoreMetrics(battles []BattleRecord) CoreMetrics {
	if len(battles) == 0 {
		return CoreMetrics{}
	}
	return CoreMetrics{
		TotalBattles: len(battles),
		AverageScore: roundedMean(scoresOf(battles)),
	}
}

// ComputeSkillBreakdown partitions battles by challenge type and returns
// count, rounded average and best score for each. Records with an unknown
// type are ignored.
func ComputeSkillBreakdown(battles []BattleRecord) SkillBreakdown {
	byType := make(map[scoring.ChallengeType][]int, len(scoring.ChallengeTypes))
	for _, b := range battles {
		byType[b.ChallengeType] = append(byType[b.ChallengeType], b.ScoreTotal)
	}

	return SkillBreakdown{
		Logic:      skillStats(byType[scoring.Logic]),
		Debate:     skillStats(byType[scoring.Debate]),
		Creativity: skillStats(byType[scoring.Creativity]),
	}
}

func skillStats(scores []int) SkillStats {
	if len(scores) == 0 {
		return SkillStats{}
	}
	best := scores[0]
	for _, s := range scores[1:] {
		best = max(best, s)
	}
	return SkillStats{
		Count:   len(scores),
		Average: roundedMean(scores),
		Best:    best,
	}
}

// ComputeTrend compares the mean of the latest TrendWindow battles with the
// mean of the TrendWindow battles before them, in creation order. Histories
// shorter than MinTrendBattles report a stable, zero-filled trend.
func ComputeTrend(battles []BattleRecord) TrendData {
	if len(battles) < MinTrendBattles {
		return TrendData{Direction: Stable}
	}

	sorted := sortedByCreation(battles)
	n := len(sorted)
	recent := sumScores(sorted[n-TrendWindow:])
	previous := sumScores(sorted[n-MinTrendBattles : n-TrendWindow])

	recentAverage := float64(recent) / TrendWindow
	previousAverage := float64(previous) / TrendWindow

	changePercent := 0
	if previousAverage > 0 {
		changePercent = roundHalfUp((recentAverage - previousAverage) / previousAverage * 100)
	}

	direction := Stable
	switch {
	case changePercent >= TrendThreshold:
		direction = Improving
	case changePercent <= -TrendThreshold:
		direction = Declining
	}

	return TrendData{
		Direction:       direction,
		RecentAverage:   roundHalfUp(recentAverage),
		PreviousAverage: roundHalfUp(previousAverage),
		ChangePercent:   changePercent,
	}
}

// ComputePersonalBests returns the highest score overall and per type.
func ComputePersonalBests(battles []BattleRecord) PersonalBests {
	var bests PersonalBests
	for _, b := range battles {
		bests.Overall = max(bests.Overall, b.ScoreTotal)
		switch b.ChallengeType {
		case scoring.Logic:
			bests.Logic = max(bests.Logic, b.ScoreTotal)
		case scoring.Debate:
			bests.Debate = max(bests.Debate, b.ScoreTotal)
		case scoring.Creativity:
			bests.Creativity = max(bests.Creativity, b.ScoreTotal)
		}
	}
	return bests
}

// Compute assembles the full analytics view for one agent from its battle
// history and the number of training programs it has completed.
func Compute(battles []BattleRecord, programCompletions int) AgentAnalytics {
	core := ComputeCoreMetrics(battles)
	return AgentAnalytics{
		TotalBattles:       core.TotalBattles,
		AverageScore:       core.AverageScore,
		ProgramCompletions: programCompletions,
		Skills:             ComputeSkillBreakdown(battles),
		Trend:              ComputeTrend(battles),
		PersonalBests:      ComputePersonalBests(battles),
		RecentScores:       recentScores(battles, RecentScoresLimit),
	}
}

// recentScores returns up to limit battles, newest first.
func recentScores(battles []BattleRecord, limit int) []BattleRecord {
	sorted := sortedByCreation(battles)
	recent := make([]BattleRecord, 0, min(limit, len(sorted)))
	for i := len(sorted) - 1; i >= 0 && len(recent) < limit; i-- {
		recent = append(recent, sorted[i])
	}
	return recent
}

// sortedByCreation returns a copy ordered oldest first. Ties keep their
// input order.
func sortedByCreation(battles []BattleRecord) []BattleRecord {
	sorted := make([]BattleRecord, len(battles))
	copy(sorted, battles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return sorted
}

func scoresOf(battles []BattleRecord) []int {
	scores := make([]int, len(battles))
	for i, b := range battles {
		scores[i] = b.ScoreTotal
	}
	return scores
}

func sumScores(battles []BattleRecord) int {
	total := 0
	for _, b := range battles {
		total += b.ScoreTotal
	}
	return total
}

func roundedMean(scores []int) int {
	total := 0
	for _, s := range scores {
		total += s
	}
	return roundHalfUp(float64(total) / float64(len(scores)))
}

// roundHalfUp rounds halves toward positive infinity.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
