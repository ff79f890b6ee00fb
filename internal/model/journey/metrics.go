package journey

import (
	"math"
	"time"
)

// Scores holds the six competency sub-scores and the overall score, each 0–100.
type Scores struct {
	ClarificationHabit  int `json:"clarificationHabit"`
	Structure           int `json:"structure"`
	TradeoffAwareness   int `json:"tradeoffAwareness"`
	ScalabilityThinking int `json:"scalabilityThinking"`
	FailureAwareness    int `json:"failureAwareness"`
	Adaptability        int `json:"adaptability"`
	OverallScore        int `json:"overallScore"`
}

// Metrics is the immutable scoring record of one completed session.
type Metrics struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	Scores
	CreatedAt time.Time `json:"createdAt"`
}

// NormalizeOverall converts a stored overall score to the 0–100 scale.
// Values up to 1 are fractions written by older clients; larger values are
// already percentages. The scoring engine never produces an overall of
// exactly 1 (its smallest nonzero overall is 2), so a stored 1 is a fraction.
func NormalizeOverall(raw float64) float64 {
	if raw <= 1 {
		return raw * 100
	}
	return raw
}

// OverallPercent normalizes raw and rounds it half up to a whole percentage.
func OverallPercent(raw float64) int {
	return int(math.Floor(NormalizeOverall(raw) + 0.5))
}
