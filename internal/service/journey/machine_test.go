package journey

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zhouzirui/interview-journey/backend/internal/model/journey"
)

func TestAdvanceVisitsStatesInOrder(t *testing.T) {
	state := journey.StateAwaitingClarification
	ctx := journey.ScenarioContext{ScenarioID: "search_scale"}
	visited := []journey.State{state}

	for i := 0; i < 10; i++ {
		next, ok := Advance(state, "answer", ctx)
		if !ok {
			break
		}
		state, ctx = next.Next, next.Context
		visited = append(visited, state)
	}

	want := journey.States[:]
	if diff := cmp.Diff(want, visited); diff != "" {
		t.Fatalf("visited states mismatch (-want +got):\n%s", diff)
	}
}

func TestAdvanceCapturesEachAnswerOnce(t *testing.T) {
	steps := []struct {
		message string
		prompt  string
	}{
		{"What is the SLA? How many users?", PromptCoreAnswer},
		{"core", PromptFollowUp},
		{"follow", PromptCurveball},
		{"curve", PromptReflection},
		{"reflect", PromptComplete},
	}

	state := journey.StateAwaitingClarification
	var ctx journey.ScenarioContext
	for i, step := range steps {
		tr, ok := Advance(state, step.message, ctx)
		if !ok {
			t.Fatalf("step %d: unexpected rejection in %s", i, state)
		}
		if tr.Prompt != step.prompt {
			t.Fatalf("step %d: prompt = %q, want %q", i, tr.Prompt, step.prompt)
		}
		if tr.Done != (tr.Next == journey.StateComplete) {
			t.Fatalf("step %d: done = %v for %s", i, tr.Done, tr.Next)
		}
		state, ctx = tr.Next, tr.Context
	}

	got := ctx.Normalized()
	want := journey.NormalizedContext{
		ClarificationAsked: true,
		CoreAnswer:         "core",
		FollowUp:           "follow",
		Curveball:          "curve",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("context mismatch (-want +got):\n%s", diff)
	}
}

func TestAdvanceDoesNotOverwriteCaptures(t *testing.T) {
	first := "original"
	ctx := journey.ScenarioContext{CoreAnswer: &first}

	tr, ok := Advance(journey.StateCoreAnswer, "replacement", ctx)
	if !ok {
		t.Fatal("expected transition")
	}
	if *tr.Context.CoreAnswer != "original" {
		t.Fatalf("core answer overwritten: %q", *tr.Context.CoreAnswer)
	}
}

func TestAdvanceLeavesInputContextUntouched(t *testing.T) {
	ctx := journey.ScenarioContext{ScenarioID: "payment_webhook"}
	if _, ok := Advance(journey.StateAwaitingClarification, "what are the constraints?", ctx); !ok {
		t.Fatal("expected transition")
	}
	if ctx.ClarificationAsked != nil {
		t.Fatal("input context was mutated")
	}
}

func TestAdvanceRejectsTerminalAndUnknownStates(t *testing.T) {
	for _, state := range []journey.State{journey.StateComplete, journey.State("BOGUS")} {
		if _, ok := Advance(state, "hello", journey.ScenarioContext{}); ok {
			t.Fatalf("Advance(%s) accepted a message", state)
		}
	}
}

func TestReflectionAnswerIsNotCaptured(t *testing.T) {
	tr, ok := Advance(journey.StateReflection, "I would test earlier", journey.ScenarioContext{})
	if !ok {
		t.Fatal("expected transition")
	}
	if diff := cmp.Diff(journey.ScenarioContext{}, tr.Context); diff != "" {
		t.Fatalf("reflection changed context (-want +got):\n%s", diff)
	}
}
