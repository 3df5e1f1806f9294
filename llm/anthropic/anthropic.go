// Package anthropic provides an llm.Provider adapter for Anthropic's Claude
// models.
package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dmaas/deskagent/llm"
)

const providerName = "anthropic"

// DefaultModel is used when no model name is given.
const DefaultModel = "claude-3-5-sonnet-20241022"

const maxTokens = 4096

// Provider implements llm.Provider against the Anthropic messages API.
// Safe for concurrent use after creation.
type Provider struct {
	client anthropic.Client
	model  string
}

// New creates an Anthropic provider. An empty model selects DefaultModel.
func New(apiKey, model string) *Provider {
	if model == "" {
		model = DefaultModel
	}
	return &Provider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Generate implements llm.Provider. The system instruction goes in the
// request's System field, not the message list.
func (p *Provider) Generate(ctx context.Context, system, user string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", llm.Wrap(providerName, err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: system},
		}
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", llm.Wrap(providerName, err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", llm.Wrap(providerName, errors.New("no text content in response"))
	}
	return sb.String(), nil
}
