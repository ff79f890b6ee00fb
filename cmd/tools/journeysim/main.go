// Command journeysim drives one interview journey end to end without the
// HTTP layer and prints the transcript, the scores and the follow-up
// recommendation. Useful for tuning the scoring keywords.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/interview-journey/backend/internal/logging"
	"github.com/zhouzirui/interview-journey/backend/internal/model/scenario"
	"github.com/zhouzirui/interview-journey/backend/internal/service/journey"
	"github.com/zhouzirui/interview-journey/backend/internal/service/orchestrator"
	"github.com/zhouzirui/interview-journey/backend/internal/storage"
	"github.com/zhouzirui/interview-journey/backend/internal/storage/memory"
	"github.com/zhouzirui/interview-journey/backend/internal/storage/sqlite"
)

// defaultAnswers exercises every scoring dimension.
var defaultAnswers = []string{
	"What is the expected traffic and the latency SLA?",
	"First I'd put a cache in front of reads, then partition writes. The tradeoff is consistency versus latency.",
	"Monitor error rates and p99 latency, roll out behind a feature flag and alert on timeouts.",
	"If the downstream fails I'd add retries with backoff, a circuit breaker, and degrade gracefully.",
	"Next time I'd validate load assumptions earlier and write down the failure modes sooner.",
}

type options struct {
	user        string
	role        string
	answersFile string
	dbPath      string
	onboarded   bool
	verbose     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "journeysim",
		Short:         "Run a scripted interview journey and print its scores",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.user, "user", "sim-user", "user id the session belongs to")
	cmd.Flags().StringVar(&opts.role, "role", "", "job role (selects the scenario)")
	cmd.Flags().StringVar(&opts.answersFile, "answers-file", "", "YAML list of answers, or an object with an answers key")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "SQLite database path; in-memory when empty")
	cmd.Flags().BoolVar(&opts.onboarded, "onboarded", true, "mark onboarding complete before asking for a recommendation")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log service activity to stderr")
	return cmd
}

func run(ctx context.Context, out io.Writer, opts options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	answers := defaultAnswers
	if opts.answersFile != "" {
		data, err := os.ReadFile(opts.answersFile)
		if err != nil {
			return fmt.Errorf("read answers: %w", err)
		}
		if answers, err = parseAnswers(data); err != nil {
			return err
		}
	}

	logger := zap.NewNop()
	if opts.verbose {
		var err error
		if logger, err = logging.New("debug", "console"); err != nil {
			return err
		}
	}

	repo, err := openRepository(opts.dbPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	journeys := journey.NewService(repo, scenario.NewMemoryStore(scenario.Seed()), logger)
	orch := orchestrator.NewService(repo, logger)

	started, err := journeys.StartSession(ctx, opts.user, journey.StartRequest{JobRole: opts.role})
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	fmt.Fprintf(out, "scenario: %s (%s)\n", started.Scenario.Title, started.Scenario.ID)
	fmt.Fprintf(out, "[%d %s] %s\n", started.StateIndex, started.State, started.Prompt)

	var last journey.StepResult
	for _, answer := range answers {
		if last.Done {
			break
		}
		fmt.Fprintf(out, "> %s\n", answer)
		if last, err = journeys.StepSession(ctx, opts.user, started.SessionID, answer); err != nil {
			return fmt.Errorf("step session: %w", err)
		}
		fmt.Fprintf(out, "[%d %s] %s\n", last.StateIndex, last.State, last.Prompt)
	}
	if !last.Done {
		return fmt.Errorf("journey incomplete after %d answers; %d are needed", len(answers), len(defaultAnswers))
	}

	m := last.Metrics
	fmt.Fprintf(out, "\nclarification %d  structure %d  tradeoffs %d  scalability %d  failure %d  adaptability %d  overall %d\n",
		m.ClarificationHabit, m.Structure, m.TradeoffAwareness, m.ScalabilityThinking, m.FailureAwareness, m.Adaptability, m.OverallScore)

	if opts.onboarded {
		if _, err := orch.CompleteOnboarding(ctx, opts.user); err != nil {
			return fmt.Errorf("complete onboarding: %w", err)
		}
	}
	rec, err := orch.GetNextRecommendation(ctx, opts.user)
	if err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	fmt.Fprintf(out, "next: %s (depth %d) %s\n", rec.Label, rec.Depth, rec.Reason)
	return nil
}

// parseAnswers accepts either a bare YAML sequence or {answers: [...]}.
// Blank entries are dropped.
func parseAnswers(data []byte) ([]string, error) {
	var list []string
	if err := yaml.Unmarshal(data, &list); err != nil {
		var doc struct {
			Answers []string `yaml:"answers"`
		}
		if err2 := yaml.Unmarshal(data, &doc); err2 != nil {
			return nil, fmt.Errorf("parse answers: %w", err)
		}
		list = doc.Answers
	}

	out := make([]string, 0, len(list))
	for _, a := range list {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("answers file has no answers")
	}
	return out, nil
}

func openRepository(path string) (storage.Repository, error) {
	if strings.TrimSpace(path) == "" {
		return memory.New(), nil
	}
	return sqlite.Open(path)
}
