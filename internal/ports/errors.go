package ports

import (
	"errors"
	"fmt"
)

// Common infrastructure errors.
var (
	// ErrUnknownJudgeType indicates that no factory is registered for a
	// requested judge type.
	ErrUnknownJudgeType = errors.New("unknown judge type")

	// ErrConfigNotFound indicates that a configuration source does not exist.
	ErrConfigNotFound = errors.New("configuration not found")
)

// ConfigError reports a configuration source that could not be read.
type ConfigError struct {
	// ConfigKey identifies the source, such as a file path.
	ConfigKey string
	Err       error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a ConfigError for key.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{ConfigKey: key, Err: err}
}
