package llm

import (
	"context"
	"sync"
)

// Mock is a test implementation of Provider.
//
// It returns scripted responses in order, repeats the last one when the
// script runs out, records every call, and can inject errors. Safe for
// concurrent use.
//
// Example:
//
//	mock := &llm.Mock{Responses: []string{"manual"}}
//	out, _ := mock.Generate(ctx, "classify", "body")
type Mock struct {
	// Responses is the sequence of texts to return, one per call.
	// When exhausted, the last entry repeats.
	Responses []string

	// Err, if set, is returned by every Generate call.
	Err error

	// Calls records all invocations in order.
	Calls []MockCall

	mu        sync.Mutex
	callIndex int
}

// MockCall captures the arguments of one Generate invocation.
type MockCall struct {
	System string
	User   string
}

// Generate implements Provider.
func (m *Mock) Generate(ctx context.Context, system, user string) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{System: system, User: user})

	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	return m.Responses[idx], nil
}

// CallCount reports how many times Generate has been called.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Reset clears call history and rewinds the response script.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.callIndex = 0
}
