// Package openai provides an llm.Provider adapter for OpenAI chat models.
package openai

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/dmaas/deskagent/llm"
)

const providerName = "openai"

// DefaultModel is used when no model name is given.
const DefaultModel = "gpt-4o-mini"

// Provider implements llm.Provider against the OpenAI chat completions API.
// Safe for concurrent use; the SDK client handles its own connection pool.
type Provider struct {
	client openai.Client
	model  string
}

// New creates an OpenAI provider. An empty model selects DefaultModel.
func New(apiKey, model string) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("API key cannot be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Provider{client: client, model: model}, nil
}

// Generate implements llm.Provider. The system instruction is sent as a
// system message ahead of the user content.
func (p *Provider) Generate(ctx context.Context, system, user string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", llm.Wrap(providerName, err)
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessageParamUnion{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(system),
				},
			},
		})
	}
	messages = append(messages, openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfString: openai.String(user),
			},
		},
	})

	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
	})
	if err != nil {
		return "", llm.Wrap(providerName, err)
	}

	if len(completion.Choices) == 0 {
		return "", llm.Wrap(providerName, errors.New("no response choices returned"))
	}
	return completion.Choices[0].Message.Content, nil
}
