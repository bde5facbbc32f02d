package script

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/apresai/interviewcast/internal/config"
)

var novaModels = map[string]string{
	"nova-lite": "us.amazon.nova-2-lite-v1:0",
}

type converser interface {
	Converse(ctx context.Context, in *bedrockruntime.ConverseInput, opts ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// NovaGenerator writes transcripts with Amazon Nova through Bedrock Converse.
type NovaGenerator struct {
	model  string
	client converser
}

func NewNovaGenerator(ctx context.Context, model string) (*NovaGenerator, error) {
	cfg, err := config.AWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	return newNovaGenerator(bedrockruntime.NewFromConfig(cfg), model), nil
}

func newNovaGenerator(client converser, model string) *NovaGenerator {
	modelID := novaModels[model]
	if modelID == "" {
		modelID = model
	}
	if modelID == "" {
		modelID = novaModels["nova-lite"]
	}
	return &NovaGenerator{model: modelID, client: client}
}

func (g *NovaGenerator) Generate(ctx context.Context, narrative string, opts GenerateOptions) (string, error) {
	resp, err := g.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(g.model),
		System: []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: buildSystemPrompt(opts.Minutes)},
		},
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: buildUserPrompt(narrative, opts)},
				},
			},
		},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(4096),
			Temperature: aws.Float32(float32(opts.Temperature)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Bedrock Converse error: %w", err)
	}

	text := cleanTranscript(extractNovaText(resp))
	if text == "" {
		return "", fmt.Errorf("empty response from Bedrock")
	}
	return text, nil
}

func extractNovaText(resp *bedrockruntime.ConverseOutput) string {
	if resp == nil || resp.Output == nil {
		return ""
	}
	msg, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	for _, block := range msg.Value.Content {
		if tb, ok := block.(*types.ContentBlockMemberText); ok {
			return tb.Value
		}
	}
	return ""
}
