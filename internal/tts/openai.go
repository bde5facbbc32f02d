package tts

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

const (
	openAIDefaultModel       = "gpt-4o-mini-tts"
	openAIDefaultInterviewer = "alloy"
	openAIDefaultExpert      = "verse"
)

// OpenAIProvider implements Provider using the OpenAI speech endpoint.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	speed  float64
}

func NewOpenAIProvider(cfg ProviderConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openAIDefaultModel
	}
	p := &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		speed:  cfg.Speed,
	}
	return p
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) DefaultVoices() VoiceMap {
	return VoiceMap{
		Interviewer: Voice{ID: openAIDefaultInterviewer, Name: "Alloy"},
		Expert:      Voice{ID: openAIDefaultExpert, Name: "Verse"},
	}
}

func (p *OpenAIProvider) Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error) {
	req := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(p.model),
		Input:          text,
		Voice:          openai.SpeechVoice(voice.ID),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	}
	if p.speed != 0 {
		req.Speed = p.speed
	}

	resp, err := p.client.CreateSpeech(ctx, req)
	if err != nil {
		return AudioResult{}, fmt.Errorf("OpenAI speech: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return AudioResult{}, fmt.Errorf("read OpenAI audio: %w", err)
	}
	if len(data) == 0 {
		return AudioResult{}, fmt.Errorf("OpenAI speech returned no audio")
	}
	return AudioResult{Data: data, Format: FormatMP3}, nil
}

func (p *OpenAIProvider) Close() error { return nil }

func openAIAvailableVoices() []VoiceInfo {
	return []VoiceInfo{
		{ID: "alloy", Name: "Alloy", Gender: "neutral", Description: "Balanced, even-toned voice", DefaultFor: "Interviewer"},
		{ID: "verse", Name: "Verse", Gender: "male", Description: "Expressive, measured voice", DefaultFor: "Expert"},
		{ID: "ash", Name: "Ash", Gender: "male", Description: "Clear, direct voice"},
		{ID: "ballad", Name: "Ballad", Gender: "male", Description: "Warm, melodic voice"},
		{ID: "coral", Name: "Coral", Gender: "female", Description: "Friendly, upbeat voice"},
		{ID: "echo", Name: "Echo", Gender: "male", Description: "Resonant, calm voice"},
		{ID: "fable", Name: "Fable", Gender: "male", Description: "British, storyteller voice"},
		{ID: "nova", Name: "Nova", Gender: "female", Description: "Bright, energetic voice"},
		{ID: "onyx", Name: "Onyx", Gender: "male", Description: "Deep, authoritative voice"},
		{ID: "sage", Name: "Sage", Gender: "female", Description: "Soft, thoughtful voice"},
		{ID: "shimmer", Name: "Shimmer", Gender: "female", Description: "Light, clear voice"},
	}
}
