package triage

import (
	"github.com/dmaas/deskagent/audit"
	"github.com/dmaas/deskagent/llm"
	"github.com/dmaas/deskagent/pipeline"
	"github.com/dmaas/deskagent/pipeline/store"
)

// NewWorkflow assembles the triage pipeline: classify, then summarize, then
// draft for the classifications that want one.
//
// The store and sink are optional. Engine options (step budget, stage
// timeouts, metrics) pass through unchanged.
func NewWorkflow(provider llm.Provider, st store.Store[State], sink audit.Sink, opts ...pipeline.Option) (*pipeline.Engine[State], error) {
	engine := pipeline.New(Reduce, st, sink, opts...)

	if err := engine.Add(NodeClassify, &ClassifyNode{Provider: provider, Sink: sink}); err != nil {
		return nil, err
	}
	if err := engine.Add(NodeSummarize, &SummarizeNode{Provider: provider, Sink: sink}); err != nil {
		return nil, err
	}
	if err := engine.Add(NodeDraft, &DraftNode{Provider: provider, Sink: sink}); err != nil {
		return nil, err
	}
	if err := engine.StartAt(NodeClassify); err != nil {
		return nil, err
	}

	return engine, nil
}
