package aiagent

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIAgent wraps go-openai's chat-completion client behind the narrow
// Agent interface, always requesting JSON-mode responses so callers can
// unmarshal the content directly.
type OpenAIAgent struct {
	client *openai.Client
	model  string
}

// NewOpenAIAgent builds an agent; apiKey == "" yields a disabled agent so
// callers can wire it unconditionally and let Enabled() gate the call.
func NewOpenAIAgent(apiKey, model string) *OpenAIAgent {
	if model == "" {
		model = openai.GPT4oMini
	}
	a := &OpenAIAgent{model: model}
	if apiKey != "" {
		a.client = openai.NewClient(apiKey)
	}
	return a
}

func (a *OpenAIAgent) Enabled() bool { return a.client != nil }

func (a *OpenAIAgent) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if a.client == nil {
		return "", fmt.Errorf("aiagent: openai agent not configured")
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
