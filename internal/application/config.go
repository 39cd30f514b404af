package application

// RunConfig defines a complete judging run and serves as the primary
// configuration entry point for the optimum CLI.
// A run declares the objectives of one problem, how trials are judged,
// how the runner feeds them, and the trials themselves.
type RunConfig struct {
	// Version specifies the configuration schema version using semantic
	// versioning to ensure compatibility across system updates.
	Version string `yaml:"version" validate:"required,semver"`
	// Metadata contains descriptive information about the run.
	Metadata Metadata `yaml:"metadata" validate:"required"`
	// Objectives lists the problem's objectives in evaluation order.
	// Names must be unique after Unicode case folding.
	Objectives []ObjectiveConfig `yaml:"objectives" validate:"required,min=1,max=1000,dive"`
	// Judge selects and configures the judging strategy.
	Judge JudgeConfig `yaml:"judge" validate:"required"`
	// Runner controls how trials are fed to the judge.
	Runner RunnerConfig `yaml:"runner"`
	// Trials are the candidate solutions to judge, in submission order.
	Trials []TrialConfig `yaml:"trials" validate:"dive"`
}

// Metadata provides descriptive information about a run to support
// organization, discovery, and operational management.
type Metadata struct {
	// Name is the human-readable identifier for this run.
	Name string `yaml:"name" validate:"required,min=1,max=255"`
	// Description provides a detailed explanation of the run's purpose.
	Description string `yaml:"description" validate:"max=1000"`
	// Tags are categorical labels that enable filtering and grouping.
	Tags []string `yaml:"tags" validate:"max=20,dive,min=1,max=50"`
	// Labels are arbitrary key-value pairs for integration with external systems.
	Labels map[string]string `yaml:"labels" validate:"max=50"`
}

// ObjectiveConfig declares one evaluation criterion of the problem.
type ObjectiveConfig struct {
	// Name identifies the objective in weights and trial scores.
	Name string `yaml:"name" validate:"required,min=1,max=100"`
	// Description documents what the objective measures.
	Description string `yaml:"description" validate:"max=1000"`
}

// JudgeConfig selects the judging strategy and its settings.
type JudgeConfig struct {
	// ID names the judge instance in logs and metrics.
	// Defaults to the judge type.
	ID string `yaml:"id" validate:"omitempty,min=1,max=100"`
	// Type specifies the judge implementation to instantiate.
	Type string `yaml:"type" validate:"required,oneof=weighted_satisfaction pareto"`
	// TiePolicy defines when two satisfaction values are equal.
	// Defaults to "exact".
	TiePolicy string `yaml:"tie_policy" validate:"omitempty,oneof=exact tolerance"`
	// Tolerance is the absolute tie tolerance for the tolerance policy.
	Tolerance float64 `yaml:"tolerance" validate:"min=0"`
	// Weights maps objective names to weights. Objectives without an
	// entry weigh 1.0. Only weighted_satisfaction accepts weights.
	Weights map[string]float64 `yaml:"weights"`
}

// On-invalid policies for RunnerConfig.OnInvalid.
const (
	// OnInvalidSkip records rejected trials and continues the run.
	OnInvalidSkip = "skip"
	// OnInvalidAbort stops the run at the first rejected trial.
	OnInvalidAbort = "abort"
)

// RunnerConfig controls how trials are fed to the judge.
type RunnerConfig struct {
	// Concurrency is the maximum number of trials judged at once.
	// A value of 1 judges trials strictly in submission order.
	Concurrency int `yaml:"concurrency" validate:"omitempty,min=1,max=1024"`
	// RateLimit caps judgments per second. Zero means unlimited.
	RateLimit float64 `yaml:"rate_limit" validate:"min=0"`
	// Burst is the token bucket size used with RateLimit.
	Burst int `yaml:"burst" validate:"omitempty,min=1,max=10000"`
	// OnInvalid decides what happens to trials that cannot be judged.
	OnInvalid string `yaml:"on_invalid" validate:"omitempty,oneof=skip abort"`
}

// DefaultRunnerConfig returns sequential, unthrottled judging that skips
// invalid trials.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Concurrency: 1,
		Burst:       1,
		OnInvalid:   OnInvalidSkip,
	}
}

// withDefaults fills zero fields from DefaultRunnerConfig.
func (c RunnerConfig) withDefaults() RunnerConfig {
	d := DefaultRunnerConfig()
	if c.Concurrency == 0 {
		c.Concurrency = d.Concurrency
	}
	if c.Burst == 0 {
		c.Burst = d.Burst
	}
	if c.OnInvalid == "" {
		c.OnInvalid = d.OnInvalid
	}
	return c
}

// TrialConfig describes one candidate solution.
type TrialConfig struct {
	// ID identifies the trial. A random id is generated when empty.
	ID string `yaml:"id" validate:"omitempty,min=1,max=200"`
	// Scores maps objective names to the trial's score on each.
	// Objectives left out make the trial invalid at judging time.
	Scores map[string]ScoreConfig `yaml:"scores" validate:"dive"`
}

// ScoreConfig is an objective's evaluation of a trial.
type ScoreConfig struct {
	// Value is the raw measurement.
	Value float64 `yaml:"value"`
	// Satisfaction is how well the value meets the objective, usually in [0, 1].
	Satisfaction float64 `yaml:"satisfaction"`
}
