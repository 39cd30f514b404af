// Command generate_trials writes a synthetic run configuration that the
// optimum CLI can validate and judge.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-optimum/internal/application"
	"github.com/ahrav/go-optimum/internal/domain"
	"github.com/ahrav/go-optimum/internal/testutils"
)

type options struct {
	objectives  int
	trials      int
	seed        int64
	missingRate float64
	judgeType   string
	outputPath  string
}

func main() {
	var opts options
	flag.IntVar(&opts.objectives, "objectives", 3, "Number of objectives in the problem")
	flag.IntVar(&opts.trials, "trials", 100, "Number of trials to generate")
	flag.Int64Var(&opts.seed, "seed", time.Now().UnixNano(), "Random seed")
	flag.Float64Var(&opts.missingRate, "missing-rate", 0, "Probability that a trial omits one objective score")
	flag.StringVar(&opts.judgeType, "judge", application.JudgeTypeWeightedSatisfaction, "Judge type to configure")
	flag.StringVar(&opts.outputPath, "output", "testdata/generated_run.yaml", "Output file path")
	flag.Parse()

	if err := run(opts, os.Stdout); err != nil {
		log.Fatalf("Failed to generate trials: %v", err)
	}
}

func run(opts options, out io.Writer) error {
	if opts.objectives < 1 {
		return fmt.Errorf("objectives must be positive, got %d", opts.objectives)
	}
	if opts.trials < 0 {
		return fmt.Errorf("trials cannot be negative, got %d", opts.trials)
	}
	if opts.missingRate < 0 || opts.missingRate > 1 {
		return fmt.Errorf("missing-rate must be in [0, 1], got %v", opts.missingRate)
	}

	g := testutils.NewTrialGenerator(opts.seed)
	g.MissingRate = opts.missingRate
	problem := g.Problem(opts.objectives)
	config := runConfig(opts, problem, g.Trials(problem, opts.trials))

	if err := os.MkdirAll(filepath.Dir(opts.outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal run config: %w", err)
	}
	if err := os.WriteFile(opts.outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write run config: %w", err)
	}

	fmt.Fprintf(out, "Generated run configuration:\n")
	fmt.Fprintf(out, "- Path: %s\n", opts.outputPath)
	fmt.Fprintf(out, "- Seed: %d\n", opts.seed)
	fmt.Fprintf(out, "- Objectives: %d\n", opts.objectives)
	fmt.Fprintf(out, "- Trials: %d\n", opts.trials)
	fmt.Fprintf(out, "- Judge: %s\n", opts.judgeType)
	return nil
}

func runConfig(opts options, problem *domain.Problem, trials []*domain.Trial) *application.RunConfig {
	config := &application.RunConfig{
		Version: "1.0.0",
		Metadata: application.Metadata{
			Name:        "generated-run",
			Description: fmt.Sprintf("Synthetic trials generated with seed %d.", opts.seed),
			Tags:        []string{"generated"},
		},
		Judge:  application.JudgeConfig{Type: opts.judgeType},
		Runner: application.DefaultRunnerConfig(),
	}

	for _, o := range problem.Objectives() {
		config.Objectives = append(config.Objectives, application.ObjectiveConfig{Name: o.Name()})
	}
	for _, trial := range trials {
		tc := application.TrialConfig{ID: trial.ID(), Scores: make(map[string]application.ScoreConfig)}
		for _, o := range problem.Objectives() {
			if s, ok := trial.Score(o); ok {
				tc.Scores[o.Name()] = application.ScoreConfig{Value: s.Value(), Satisfaction: s.Satisfaction()}
			}
		}
		config.Trials = append(config.Trials, tc)
	}
	return config
}
