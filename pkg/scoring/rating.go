package scoring

import "math"

const (
	// MinRating is the floor applied by every rating formula.
	MinRating = 100
	// DefaultRating is assigned to newly created agents.
	DefaultRating = 1000
	// EloK is the Elo adjustment factor.
	EloK = 32
)

// UpdateRatingLinear nudges the rating by a tenth of the distance between
// the score and 50. This is the formula applied after every battle.
func UpdateRatingLinear(currentRating, scoreTotal int) int {
	next := roundHalfUp(float64(currentRating) + float64(scoreTotal-50)/10)
	return max(MinRating, next)
}

// CalculateNewRatingElo applies an Elo update treating score/100 as the
// actual result against an opponent of the given rating.
func CalculateNewRatingElo(currentRating, score, opponentRating int) int {
	expected := 1 / (1 + math.Pow(10, float64(opponentRating-currentRating)/400))
	actual := float64(score) / 100
	next := roundHalfUp(float64(currentRating) + EloK*(actual-expected))
	return max(MinRating, next)
}

// RatingStrategy computes an agent's next rating from a battle score.
type RatingStrategy interface {
	NextRating(currentRating, scoreTotal int) int
}

// LinearStrategy applies UpdateRatingLinear.
type LinearStrategy struct{}

// NextRating implements RatingStrategy.
func (LinearStrategy) NextRating(currentRating, scoreTotal int) int {
	return UpdateRatingLinear(currentRating, scoreTotal)
}

// EloStrategy applies CalculateNewRatingElo against a fixed opponent rating.
type EloStrategy struct {
	OpponentRating int
}

// NextRating implements RatingStrategy.
func (s EloStrategy) NextRating(currentRating, scoreTotal int) int {
	return CalculateNewRatingElo(currentRating, scoreTotal, s.OpponentRating)
}

// roundHalfUp rounds to the nearest integer with halves rounded toward
// positive infinity, so -2.5 becomes -2.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
