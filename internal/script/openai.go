package script

import (
	"context"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIGenerator writes transcripts with the OpenAI chat completions API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

func NewOpenAIGenerator(apiKey, baseURL, model string) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, narrative string, opts GenerateOptions) (string, error) {
	// Temperature is omitempty in the request; zero would fall back to the
	// API default of 1.
	temperature := float32(opts.Temperature)
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt(opts.Minutes)},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(narrative, opts)},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}

	text := cleanTranscript(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty response from OpenAI")
	}
	return text, nil
}
