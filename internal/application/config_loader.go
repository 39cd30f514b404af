package application

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-optimum/internal/domain"
	"github.com/ahrav/go-optimum/internal/ports"
)

// ConfigLoader provides YAML parsing, validation, and caching for run
// configurations.
// Use ConfigLoader to load runs from files or readers while benefiting
// from SHA256-based caching and comprehensive validation.
type ConfigLoader struct {
	// validator performs struct field validation and custom validation
	// rules for run configurations.
	validator *validator.Validate
	// cache stores validated configurations indexed by the SHA256 hash of
	// their normalized YAML.
	// WARNING: Cached configs MUST NOT be mutated.
	cache   map[string]*RunConfig
	cacheMu sync.RWMutex
	// sf prevents duplicate validation when multiple goroutines load the
	// same configuration simultaneously.
	sf singleflight.Group
}

// NewConfigLoader creates a loader with custom validators registered and
// an empty cache.
// NewConfigLoader returns an error if validator registration fails.
func NewConfigLoader() (*ConfigLoader, error) {
	v := validator.New()
	if err := v.RegisterValidation("semver", validateSemver); err != nil {
		return nil, fmt.Errorf("failed to register semver validator: %w", err)
	}

	return &ConfigLoader{
		validator: v,
		cache:     make(map[string]*RunConfig),
	}, nil
}

// LoadRunConfig loads and validates a run configuration from a YAML file
// with a fresh loader.
func LoadRunConfig(path string) (*RunConfig, error) {
	loader, err := NewConfigLoader()
	if err != nil {
		return nil, err
	}
	return loader.LoadFromFile(path)
}

// ParseRunConfig parses and validates a run configuration from r with a
// fresh loader.
func ParseRunConfig(r io.Reader) (*RunConfig, error) {
	loader, err := NewConfigLoader()
	if err != nil {
		return nil, err
	}
	return loader.LoadFromReader(r)
}

// LoadFromFile loads and validates a run configuration from a YAML file.
// Read failures are returned as *ports.ConfigError keyed by the path; a
// missing file wraps ports.ErrConfigNotFound.
// WARNING: The returned config is a cached instance and MUST NOT be mutated.
func (cl *ConfigLoader) LoadFromFile(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)

	data, err := os.ReadFile(cleanPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ports.NewConfigError(cleanPath, ports.ErrConfigNotFound)
	}
	if err != nil {
		return nil, ports.NewConfigError(cleanPath, fmt.Errorf("failed to read file: %w", err))
	}

	return cl.load(data)
}

// LoadFromReader loads and validates a run configuration from an io.Reader.
// WARNING: The returned config is a cached instance and MUST NOT be mutated.
func (cl *ConfigLoader) LoadFromReader(r io.Reader) (*RunConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	return cl.load(data)
}

func (cl *ConfigLoader) load(data []byte) (*RunConfig, error) {
	config, err := cl.parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	hash, err := cl.calculateConfigHash(config)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}

	v, err, _ := cl.sf.Do(hash, func() (any, error) {
		if cached, ok := cl.getCached(hash); ok {
			return cached, nil
		}

		if err := cl.validateConfig(config); err != nil {
			return nil, err
		}
		config.Runner = config.Runner.withDefaults()

		cl.cacheConfig(hash, config)
		return config, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*RunConfig), nil
}

// parseYAML uses strict decoding so that misspelled keys fail loudly.
func (cl *ConfigLoader) parseYAML(data []byte) (*RunConfig, error) {
	var config RunConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}
	return &config, nil
}

// validateConfig runs struct tag validation followed by the semantic rules
// that tags cannot express. All failures are collected into one
// *domain.ValidationError.
func (cl *ConfigLoader) validateConfig(config *RunConfig) error {
	verr := domain.NewValidationError("run config")

	if err := cl.validator.Struct(config); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("struct validation failed: %w", err)
		}
		for _, fe := range fieldErrs {
			verr.AddErrorf("%s failed %q validation", fe.Namespace(), fe.Tag())
		}
		return verr
	}

	validateSemantics(config, verr)
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// validateSemantics checks name uniqueness and reference integrity.
// Objective names are compared after Unicode case folding, so "Cost" and
// "cost" are the same objective.
func validateSemantics(config *RunConfig, verr *domain.ValidationError) {
	fold := cases.Fold()
	declared := make(map[string]string, len(config.Objectives))
	for _, o := range config.Objectives {
		key := fold.String(o.Name)
		if prev, exists := declared[key]; exists {
			verr.AddErrorf("duplicate objective %q: already declared as %q", o.Name, prev)
			continue
		}
		declared[key] = o.Name
	}

	if len(config.Judge.Weights) > 0 && config.Judge.Type != JudgeTypeWeightedSatisfaction {
		verr.AddErrorf("judge type %s does not accept weights", config.Judge.Type)
	}
	for name := range config.Judge.Weights {
		if _, ok := declared[fold.String(name)]; !ok {
			verr.AddErrorf("weight references undeclared objective %q", name)
		}
	}
	if config.Judge.Tolerance > 0 && config.Judge.TiePolicy != "tolerance" {
		verr.AddError("tolerance requires tie_policy: tolerance")
	}

	trialIDs := make(map[string]int, len(config.Trials))
	for i, trial := range config.Trials {
		if trial.ID != "" {
			if prev, exists := trialIDs[trial.ID]; exists {
				verr.AddErrorf("trials[%d]: duplicate id %q, first used by trials[%d]", i, trial.ID, prev)
			} else {
				trialIDs[trial.ID] = i
			}
		}
		for name := range trial.Scores {
			if _, ok := declared[fold.String(name)]; !ok {
				verr.AddErrorf("trials[%d]: score references undeclared objective %q", i, name)
			}
		}
	}
}

// calculateConfigHash hashes the re-encoded config so that formatting
// differences in the source do not defeat the cache.
func (cl *ConfigLoader) calculateConfigHash(config *RunConfig) (string, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(config); err != nil {
		return "", fmt.Errorf("failed to encode config for hashing: %w", err)
	}

	hash := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(hash[:]), nil
}

func (cl *ConfigLoader) getCached(hash string) (*RunConfig, bool) {
	cl.cacheMu.RLock()
	defer cl.cacheMu.RUnlock()

	config, ok := cl.cache[hash]
	return config, ok
}

func (cl *ConfigLoader) cacheConfig(hash string, config *RunConfig) {
	cl.cacheMu.Lock()
	defer cl.cacheMu.Unlock()

	cl.cache[hash] = config
}

// validateSemver accepts strict MAJOR.MINOR.PATCH versions with optional
// pre-release and build metadata.
func validateSemver(fl validator.FieldLevel) bool {
	_, err := semver.StrictNewVersion(fl.Field().String())
	return err == nil
}
