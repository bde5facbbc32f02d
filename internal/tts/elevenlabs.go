package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	elevenLabsDefaultInterviewer = "JBFqnCBsd6RMkjVDRZzb" // George
	elevenLabsDefaultExpert      = "EXAVITQu4vr4xnSDxMaL" // Sarah

	elevenLabsBaseURL      = "https://api.elevenlabs.io/v1/text-to-speech"
	elevenLabsModelID      = "eleven_flash_v2_5"
	elevenLabsOutputFormat = "mp3_44100_128"
)

type elevenLabsRequest struct {
	Text          string                 `json:"text"`
	ModelID       string                 `json:"model_id"`
	VoiceSettings *elevenLabsVoiceParams `json:"voice_settings,omitempty"`
}

type elevenLabsVoiceParams struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	Speed           float64 `json:"speed"`
}

// ElevenLabsProvider implements Provider using the ElevenLabs TTS API.
type ElevenLabsProvider struct {
	apiKey     string
	baseURL    string
	model      string
	speed      float64
	httpClient *http.Client
}

func NewElevenLabsProvider(cfg ProviderConfig) *ElevenLabsProvider {
	p := &ElevenLabsProvider{
		apiKey:     cfg.APIKey,
		baseURL:    elevenLabsBaseURL,
		model:      elevenLabsModelID,
		speed:      1.0,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	if cfg.BaseURL != "" {
		p.baseURL = cfg.BaseURL
	}
	if cfg.Model != "" {
		p.model = cfg.Model
	}
	if cfg.Speed != 0 {
		p.speed = cfg.Speed
	}
	return p
}

func (p *ElevenLabsProvider) Name() string { return "elevenlabs" }

func (p *ElevenLabsProvider) DefaultVoices() VoiceMap {
	return VoiceMap{
		Interviewer: Voice{ID: elevenLabsDefaultInterviewer, Name: "George"},
		Expert:      Voice{ID: elevenLabsDefaultExpert, Name: "Sarah"},
	}
}

func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error) {
	bodyBytes, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: p.model,
		VoiceSettings: &elevenLabsVoiceParams{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			UseSpeakerBoost: true,
			Speed:           p.speed,
		},
	})
	if err != nil {
		return AudioResult{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s?output_format=%s", p.baseURL, voice.ID, elevenLabsOutputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return AudioResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.httpClient.Do(req)
	if err != nil {
		return AudioResult{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return AudioResult{}, fmt.Errorf("ElevenLabs API error (status %d): %s", res.StatusCode, string(errBody))
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return AudioResult{}, fmt.Errorf("read response: %w", err)
	}
	return AudioResult{Data: data, Format: FormatMP3}, nil
}

func (p *ElevenLabsProvider) Close() error { return nil }

func elevenLabsAvailableVoices() []VoiceInfo {
	return []VoiceInfo{
		{ID: "JBFqnCBsd6RMkjVDRZzb", Name: "George", Gender: "male", Description: "Warm British male, clear and authoritative", DefaultFor: "Interviewer"},
		{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Sarah", Gender: "female", Description: "Soft American female, friendly and engaging", DefaultFor: "Expert"},
		{ID: "pNInz6obpgDQGcFmaJgB", Name: "Adam", Gender: "male", Description: "Deep American male, confident narrator"},
		{ID: "ErXwobaYiN019PkySvjV", Name: "Antoni", Gender: "male", Description: "Young American male, conversational"},
		{ID: "onwK4e9ZLuTAKqWW03F9", Name: "Daniel", Gender: "male", Description: "British male, news anchor"},
		{ID: "XB0fDUnXU5powFXDhCwa", Name: "Charlotte", Gender: "female", Description: "Swedish-English female, warm and natural"},
		{ID: "pFZP5JQG7iQjIQuC4Bku", Name: "Lily", Gender: "female", Description: "British female, warm storyteller"},
	}
}
