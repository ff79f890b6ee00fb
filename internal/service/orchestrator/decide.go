package orchestrator

import (
	"github.com/zhouzirui/interview-journey/backend/internal/model/journey"
	"github.com/zhouzirui/interview-journey/backend/internal/model/orchestrator"
)

// TargetScore is the overall score below which the interview journey is
// repeated at a deeper level.
const TargetScore = 60

// Outcome is the pure result of the decision rule.
type Outcome struct {
	Module      orchestrator.Module
	Depth       int
	Reason      string
	Description string
}

// NormalizeScore converts a stored overall score to the 0–100 scale; see
// journey.NormalizeOverall.
func NormalizeScore(raw float64) float64 {
	return journey.NormalizeOverall(raw)
}

// Decide applies the recommendation rule. The first matching branch wins:
// onboarding, then a baseline journey, then remediation below TargetScore,
// then the production interview. score is nil when no metrics exist and is
// expected on the 0–100 scale.
func Decide(onboardingCompleted bool, score *float64) Outcome {
	switch {
	case !onboardingCompleted:
		return Outcome{
			Module:      orchestrator.ModuleOnboarding,
			Depth:       1,
			Reason:      "Onboarding is incomplete; complete it so the system can personalize your plan.",
			Description: orchestrator.ModuleOnboarding.Info().Description,
		}
	case score == nil:
		return Outcome{
			Module:      orchestrator.ModuleInterviewJourney,
			Depth:       1,
			Reason:      "No baseline interview metrics yet; run Interview Journey to measure production-thinking patterns.",
			Description: orchestrator.ModuleInterviewJourney.Info().Description,
		}
	case *score < TargetScore:
		return Outcome{
			Module:      orchestrator.ModuleInterviewJourney,
			Depth:       2,
			Reason:      "Interview score is below target; repeat Interview Journey with deeper prompts to improve weak areas.",
			Description: "Go one level deeper (tradeoffs, failure modes, scalability) and improve your score.",
		}
	default:
		return Outcome{
			Module:      orchestrator.ModuleProductionInterview,
			Depth:       1,
			Reason:      "Baseline metrics look strong; continue with regular mock interviews to maintain momentum.",
			Description: orchestrator.ModuleProductionInterview.Info().Description,
		}
	}
}
