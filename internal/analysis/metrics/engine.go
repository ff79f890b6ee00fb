// Package metrics turns the captures of a completed interview session into
// competency scores.
package metrics

import (
	"github.com/zhouzirui/interview-journey/backend/internal/analysis/signals"
	"github.com/zhouzirui/interview-journey/backend/internal/model/journey"
)

var (
	structureCore     = signals.Keywords{"first", "second", "third", "step", "approach", "plan", "tradeoff"}
	structureFollowUp = signals.Keywords{"next", "then", "finally", "monitor", "rollout"}
	tradeoffWords     = signals.Keywords{"tradeoff", "latency", "cost", "consistency", "availability", "throughput"}
	scalabilityWords  = signals.Keywords{"scale", "cache", "partition", "queue", "index", "load"}
	failureWords      = signals.Keywords{"failure", "timeout", "retry", "fallback", "circuit", "idempot"}
	adaptCurveball    = signals.Keywords{"adapt", "switch", "rollback", "feature flag", "mitigate", "degrade"}
	adaptFollowUp     = signals.Keywords{"monitor", "alert", "rollback", "feature flag"}
)

const (
	structureDenominator    = 6
	tradeoffDenominator     = 6
	scalabilityDenominator  = 6
	failureDenominator      = 8
	adaptabilityDenominator = 6

	// overallUnits is the common denominator of all six ratios (LCM of 1, 6
	// and 8). overallScale is the number of units in a mean of 1.
	overallUnits = 24
	overallScale = overallUnits * 6
)

// Hits are the signal counts behind each sub-score, clamped to their
// denominators.
type Hits struct {
	ClarificationAsked bool
	Structure          int
	Tradeoff           int
	Scalability        int
	Failure            int
	Adaptability       int
}

// CountHits derives the clamped signal counts from a session context.
func CountHits(ctx journey.NormalizedContext) Hits {
	hits := signals.CountKeywordHits

	return Hits{
		ClarificationAsked: ctx.ClarificationAsked,
		Structure: clampCount(
			hits(ctx.CoreAnswer, structureCore)+hits(ctx.FollowUp, structureFollowUp),
			structureDenominator,
		),
		Tradeoff: clampCount(
			hits(ctx.CoreAnswer, tradeoffWords)+hits(ctx.FollowUp, tradeoffWords),
			tradeoffDenominator,
		),
		Scalability: clampCount(
			hits(ctx.CoreAnswer, scalabilityWords)+hits(ctx.FollowUp, scalabilityWords),
			scalabilityDenominator,
		),
		Failure: clampCount(
			hits(ctx.CoreAnswer, failureWords)+hits(ctx.FollowUp, failureWords)+hits(ctx.Curveball, failureWords),
			failureDenominator,
		),
		Adaptability: clampCount(
			hits(ctx.Curveball, adaptCurveball)+hits(ctx.FollowUp, adaptFollowUp),
			adaptabilityDenominator,
		),
	}
}

// Scores converts clamped hits to percentages. Every ratio and the overall
// mean are rounded once, half up, in integer arithmetic.
func (h Hits) Scores() journey.Scores {
	clarification := 0
	if h.ClarificationAsked {
		clarification = 1
	}

	units := clarification*overallUnits +
		h.Structure*(overallUnits/structureDenominator) +
		h.Tradeoff*(overallUnits/tradeoffDenominator) +
		h.Scalability*(overallUnits/scalabilityDenominator) +
		h.Failure*(overallUnits/failureDenominator) +
		h.Adaptability*(overallUnits/adaptabilityDenominator)

	return journey.Scores{
		ClarificationHabit:  Percent(clarification, 1),
		Structure:           Percent(h.Structure, structureDenominator),
		TradeoffAwareness:   Percent(h.Tradeoff, tradeoffDenominator),
		ScalabilityThinking: Percent(h.Scalability, scalabilityDenominator),
		FailureAwareness:    Percent(h.Failure, failureDenominator),
		Adaptability:        Percent(h.Adaptability, adaptabilityDenominator),
		OverallScore:        Percent(units, overallScale),
	}
}

// Compute scores a completed session context. The result is a pure function
// of its input.
func Compute(ctx journey.NormalizedContext) journey.Scores {
	return CountHits(ctx).Scores()
}

// Percent returns 100*num/den rounded half up, clamped to [0, 100]. den must
// be positive.
func Percent(num, den int) int {
	num = clampCount(num, den)
	return (200*num + den) / (2 * den)
}

func clampCount(n, limit int) int {
	if n < 0 {
		return 0
	}
	if n > limit {
		return limit
	}
	return n
}
