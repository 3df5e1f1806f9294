package pipeline

import (
	"context"
	"time"
)

// stageTimeout resolves the timeout for one stage: the per-node policy wins,
// then the engine default, then zero (unbounded).
func stageTimeout(policy *NodePolicy, defaultTimeout time.Duration) time.Duration {
	if policy != nil && policy.Timeout > 0 {
		return policy.Timeout
	}
	if defaultTimeout > 0 {
		return defaultTimeout
	}
	return 0
}

// runWithTimeout executes a stage under its resolved timeout.
//
// The deadline is delivered through the context, so the provider adapter
// inside the stage observes it and reports a retryable timeout error in its
// result. The engine does not impose a second error of its own.
func runWithTimeout[S any](
	ctx context.Context,
	node Node[S],
	state S,
	policy *NodePolicy,
	defaultTimeout time.Duration,
) NodeResult[S] {
	timeout := stageTimeout(policy, defaultTimeout)
	if timeout == 0 {
		return node.Run(ctx, state)
	}

	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return node.Run(stageCtx, state)
}
