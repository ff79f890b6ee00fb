package orchestrator

import "time"

// InputSnapshot records everything a decision was derived from.
type InputSnapshot struct {
	OnboardingCompleted bool     `json:"onboardingCompleted"`
	LatestOverallScore  *float64 `json:"latestOverallScore"`
	LatestSessionID     *string  `json:"latestSessionId"`
}

// Decision is one append-only audit record of a recommendation.
type Decision struct {
	ID         string        `json:"id"`
	UserID     string        `json:"userId"`
	Input      InputSnapshot `json:"input"`
	NextModule Module        `json:"nextModule"`
	Depth      int           `json:"depth"`
	Reason     string        `json:"reason"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// ProgressSnapshot is the denormalized latest-known state of a user.
// The decision log stays authoritative.
type ProgressSnapshot struct {
	UserID              string    `json:"userId"`
	OnboardingCompleted bool      `json:"onboardingCompleted"`
	LastModule          Module    `json:"lastModule"`
	LastSeenAt          time.Time `json:"lastSeenAt"`
	LastSessionID       *string   `json:"lastSessionId,omitempty"`
	LastOverallScore    *float64  `json:"lastOverallScore,omitempty"`
}
