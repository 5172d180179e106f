package hybrid

import "fmt"

// ConfigError reports an invalid configuration value. It is raised at
// construction only; configuration is never silently clamped.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("hybrid config: %s: %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// StrategyError records a contained per-strategy failure. The strategy
// contributes a zero output for the cycle and is flagged in the step
// diagnostics; it never aborts the cycle.
type StrategyError struct {
	Strategy string
	Wrapped  error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy %s: %v", e.Strategy, e.Wrapped)
}

func (e *StrategyError) Unwrap() error { return e.Wrapped }
