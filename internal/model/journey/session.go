package journey

import "time"

// Default start parameters applied when the caller leaves them blank.
const (
	DefaultJobRole         = "Software Engineer"
	DefaultTechStack       = "React"
	DefaultExperienceLevel = "intermediate"
	DefaultMode            = "production_thinking"
)

// Session captures one interview run owned by a single user.
type Session struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	JobRole         string          `json:"jobRole"`
	TechStack       string          `json:"techStack"`
	ExperienceLevel string          `json:"experienceLevel"`
	Mode            string          `json:"mode"`
	State           State           `json:"state"`
	Context         ScenarioContext `json:"context"`
	Version         int64           `json:"version"`
	CreatedAt       time.Time       `json:"createdAt"`
	LastStepAt      time.Time       `json:"lastStepAt"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
}

// Completed reports whether the session reached the terminal state.
func (s Session) Completed() bool {
	return s.State.Terminal()
}

// ScenarioContext is the fixed-shape record the state machine reads and writes.
// Each capture is written once, when the machine leaves the state that elicited it.
type ScenarioContext struct {
	ScenarioID         string  `json:"scenarioId"`
	ScenarioTitle      string  `json:"scenarioTitle"`
	ClarificationAsked *bool   `json:"clarificationAsked,omitempty"`
	CoreAnswer         *string `json:"coreAnswer,omitempty"`
	FollowUp           *string `json:"followUp,omitempty"`
	Curveball          *string `json:"curveball,omitempty"`
}

// Normalized returns the context with absent captures treated as empty.
func (c ScenarioContext) Normalized() NormalizedContext {
	return NormalizedContext{
		ClarificationAsked: c.ClarificationAsked != nil && *c.ClarificationAsked,
		CoreAnswer:         deref(c.CoreAnswer),
		FollowUp:           deref(c.FollowUp),
		Curveball:          deref(c.Curveball),
	}
}

// NormalizedContext is the scoring input derived from a completed session.
type NormalizedContext struct {
	ClarificationAsked bool
	CoreAnswer         string
	FollowUp           string
	Curveball          string
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
