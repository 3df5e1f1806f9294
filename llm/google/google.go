// Package google provides an llm.Provider adapter for Google's Gemini API.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dmaas/deskagent/llm"
)

const providerName = "google"

// DefaultModel is used when no model name is given.
const DefaultModel = "gemini-2.5-flash"

// Provider implements llm.Provider against the Gemini API.
//
// A fresh SDK client is created per call; the client holds network state
// tied to its context, and the stage context governs the call's lifetime.
//
// Example:
//
//	p := google.New(os.Getenv("GOOGLE_API_KEY"), "")
//	text, err := p.Generate(ctx, "You are an expert email assistant.", prompt)
type Provider struct {
	apiKey    string
	modelName string
}

// New creates a Gemini provider. An empty modelName selects DefaultModel.
func New(apiKey, modelName string) *Provider {
	if modelName == "" {
		modelName = DefaultModel
	}
	return &Provider{apiKey: apiKey, modelName: modelName}
}

// Generate implements llm.Provider.
//
// The system instruction is set via the model's SystemInstruction field
// rather than concatenated into the user content. Safety filter blocks are
// reported as non-retryable llm errors.
func (p *Provider) Generate(ctx context.Context, system, user string) (string, error) {
	if p.apiKey == "" {
		return "", llm.Wrap(providerName, errors.New("google API key is required"))
	}
	if err := ctx.Err(); err != nil {
		return "", llm.Wrap(providerName, err)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return "", llm.Wrap(providerName, fmt.Errorf("failed to create Google client: %w", err))
	}
	defer func() { _ = client.Close() }()

	model := client.GenerativeModel(p.modelName)
	if system != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", llm.Wrap(providerName, err)
	}

	if blocked, category := safetyBlocked(resp); blocked {
		return "", &llm.Error{
			Provider: providerName,
			Kind:     llm.KindSafetyBlocked,
			Message:  "content blocked by safety filter: " + category,
		}
	}

	return extractText(resp), nil
}

// safetyBlocked reports whether the response was withheld by a safety
// filter, and names the triggering category when available.
func safetyBlocked(resp *genai.GenerateContentResponse) (bool, string) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return true, resp.PromptFeedback.BlockReason.String()
	}
	for _, candidate := range resp.Candidates {
		if candidate.FinishReason == genai.FinishReasonSafety {
			category := "SAFETY"
			for _, rating := range candidate.SafetyRatings {
				if rating.Blocked {
					category = rating.Category.String()
					break
				}
			}
			return true, category
		}
	}
	return false, ""
}

// extractText concatenates the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}
