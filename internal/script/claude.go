package script

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

var claudeModels = map[string]string{
	"haiku":  "claude-haiku-4-5-20251001",
	"sonnet": "claude-sonnet-4-5-20250929",
}

const claudeMaxTokens = 4096

type ClaudeGenerator struct {
	client anthropic.Client
	model  string
}

// NewClaudeGenerator accepts a model alias (haiku, sonnet) or a full model ID.
func NewClaudeGenerator(apiKey, baseURL, model string) *ClaudeGenerator {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	modelID := claudeModels[model]
	if modelID == "" {
		modelID = model
	}
	if modelID == "" {
		modelID = claudeModels["haiku"]
	}

	return &ClaudeGenerator{
		client: anthropic.NewClient(opts...),
		model:  modelID,
	}
}

func (g *ClaudeGenerator) Generate(ctx context.Context, narrative string, opts GenerateOptions) (string, error) {
	message, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(g.model),
		MaxTokens:   claudeMaxTokens,
		Temperature: anthropic.Float(opts.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: buildSystemPrompt(opts.Minutes)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildUserPrompt(narrative, opts))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Claude API error: %w", err)
	}

	text := cleanTranscript(extractText(message))
	if text == "" {
		return "", fmt.Errorf("empty response from Claude")
	}
	return text, nil
}

func extractText(msg *anthropic.Message) string {
	var parts []string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, tb.Text)
		}
	}
	return strings.Join(parts, "")
}
