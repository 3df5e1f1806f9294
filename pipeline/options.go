package pipeline

import "time"

// Option configures an Engine at construction time.
type Option func(*engineConfig)

type engineConfig struct {
	maxSteps            int
	defaultStageTimeout time.Duration
	metrics             *Metrics
}

// WithMaxSteps bounds the number of stages a single run may execute.
// The pipelines in this module are short and acyclic, so the limit is a
// guard against miswired graphs rather than a tuning knob. Zero disables
// the check.
func WithMaxSteps(n int) Option {
	return func(c *engineConfig) {
		c.maxSteps = n
	}
}

// WithStageTimeout sets the engine-wide default timeout applied to each
// stage execution. A stage's NodePolicy timeout takes precedence. On expiry
// the stage's provider call fails with a retryable timeout error and the
// run aborts with that stage's id. Zero means no default timeout.
func WithStageTimeout(d time.Duration) Option {
	return func(c *engineConfig) {
		c.defaultStageTimeout = d
	}
}

// WithMetrics attaches a prometheus metrics collector to the engine.
func WithMetrics(m *Metrics) Option {
	return func(c *engineConfig) {
		c.metrics = m
	}
}

// NodePolicy carries per-stage execution settings.
type NodePolicy struct {
	// Timeout overrides the engine's default stage timeout. Zero defers to
	// the engine default.
	Timeout time.Duration
}
