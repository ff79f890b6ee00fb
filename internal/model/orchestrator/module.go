package orchestrator

// Module identifies a learning module the orchestrator can recommend.
type Module string

const (
	ModuleOnboarding          Module = "onboarding"
	ModuleInterviewJourney    Module = "interview_journey"
	ModuleProductionInterview Module = "production_interview"
)

// ModuleInfo describes how a module is presented to the learner.
type ModuleInfo struct {
	Label       string `json:"label"`
	Route       string `json:"route"`
	Description string `json:"description"`
}

var modules = map[Module]ModuleInfo{
	ModuleOnboarding: {
		Label:       "Onboarding",
		Route:       "/onboarding",
		Description: "Answer a few questions so StudyMate can route you intelligently.",
	},
	ModuleInterviewJourney: {
		Label:       "Interview Journey",
		Route:       "/interview-journey",
		Description: "Start a deterministic interview journey that scores real engineering thinking.",
	},
	ModuleProductionInterview: {
		Label:       "Mock Interview",
		Route:       "/mock-interview",
		Description: "Practice more realistic questions and keep your streak going.",
	},
}

// Info returns presentation details for m. Unknown modules fall back to a
// generic dashboard entry.
func (m Module) Info() ModuleInfo {
	if info, ok := modules[m]; ok {
		return info
	}
	return ModuleInfo{Label: "Continue Learning", Route: "/dashboard", Description: string(m)}
}
