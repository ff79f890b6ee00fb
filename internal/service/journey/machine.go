package journey

import (
	"github.com/zhouzirui/interview-journey/backend/internal/analysis/signals"
	"github.com/zhouzirui/interview-journey/backend/internal/model/journey"
)

// Prompts emitted on entering each state after the opening scenario prompt.
const (
	PromptCoreAnswer = "Great. Now give your core answer: propose an approach, include data flow, and call out tradeoffs (latency/cost/consistency)."
	PromptFollowUp   = "Follow-up: how would you validate this in production (metrics, logging, rollout plan) and what could go wrong?"
	PromptCurveball  = "Curveball: traffic doubles and a downstream dependency starts timing out. What do you change (quick mitigations + longer-term fix)?"
	PromptReflection = "Reflection: what would you do differently next time, and what assumptions were most risky?"
	PromptComplete   = "Session complete. Generating your metrics..."
)

// Transition is the outcome of feeding one user message to the machine.
type Transition struct {
	Next    journey.State
	Prompt  string
	Context journey.ScenarioContext
	Done    bool
}

// Advance applies one user message to a session in state from. message must
// already be trimmed. ctx is not modified; the returned Context carries the
// capture for the state being left. It returns ok=false for terminal or
// unknown states.
func Advance(from journey.State, message string, ctx journey.ScenarioContext) (Transition, bool) {
	next := ctx
	switch from {
	case journey.StateAwaitingClarification:
		asked := signals.DetectsClarification(message)
		next.ClarificationAsked = &asked
		return Transition{Next: journey.StateCoreAnswer, Prompt: PromptCoreAnswer, Context: next}, true
	case journey.StateCoreAnswer:
		next.CoreAnswer = captureOnce(ctx.CoreAnswer, message)
		return Transition{Next: journey.StateFollowUp, Prompt: PromptFollowUp, Context: next}, true
	case journey.StateFollowUp:
		next.FollowUp = captureOnce(ctx.FollowUp, message)
		return Transition{Next: journey.StateCurveball, Prompt: PromptCurveball, Context: next}, true
	case journey.StateCurveball:
		next.Curveball = captureOnce(ctx.Curveball, message)
		return Transition{Next: journey.StateReflection, Prompt: PromptReflection, Context: next}, true
	case journey.StateReflection:
		return Transition{Next: journey.StateComplete, Prompt: PromptComplete, Context: next, Done: true}, true
	default:
		return Transition{}, false
	}
}

// captureOnce keeps an existing capture; a capture is never overwritten.
func captureOnce(existing *string, message string) *string {
	if existing != nil {
		return existing
	}
	return &message
}
