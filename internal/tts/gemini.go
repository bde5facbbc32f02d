package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	geminiDefaultInterviewer = "Charon"
	geminiDefaultExpert      = "Leda"

	geminiDefaultModel  = "gemini-2.5-flash-preview-tts"
	vertexDefaultModel  = "gemini-2.5-flash-tts"
	vertexDefaultRegion = "us-central1"

	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	cloudScope    = "https://www.googleapis.com/auth/cloud-platform"
)

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenConfig struct {
	ResponseModalities []string           `json:"responseModalities"`
	SpeechConfig       geminiSpeechConfig `json:"speechConfig"`
}

type geminiSpeechConfig struct {
	VoiceConfig geminiVoiceConfig `json:"voiceConfig"`
}

type geminiVoiceConfig struct {
	PrebuiltVoiceConfig geminiPrebuiltVoice `json:"prebuiltVoiceConfig"`
}

type geminiPrebuiltVoice struct {
	VoiceName string `json:"voiceName"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"` // base64 PCM
				} `json:"inlineData,omitempty"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GeminiProvider implements Provider using Gemini TTS, either through the
// Gemini API with an API key or through Vertex AI with Application Default
// Credentials.
type GeminiProvider struct {
	endpoint    string
	apiKey      string
	tokenSource oauth2.TokenSource
	httpClient  *http.Client
}

// NewGeminiProvider prefers the API key. Without one it falls back to
// Vertex AI when GCP_PROJECT is set.
func NewGeminiProvider(ctx context.Context, cfg ProviderConfig) (*GeminiProvider, error) {
	p := &GeminiProvider{
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}

	if cfg.APIKey != "" {
		model := cfg.Model
		if model == "" {
			model = geminiDefaultModel
		}
		base := geminiBaseURL
		if cfg.BaseURL != "" {
			base = cfg.BaseURL
		}
		p.endpoint = fmt.Sprintf("%s/%s:generateContent", base, model)
		return p, nil
	}

	project := os.Getenv("GCP_PROJECT")
	if project == "" {
		return nil, fmt.Errorf("Set GEMINI_API_KEY (or GCP_PROJECT for Vertex AI) in a .env file or environment.")
	}
	region := os.Getenv("GCP_REGION")
	if region == "" {
		region = vertexDefaultRegion
	}
	model := cfg.Model
	if model == "" {
		model = vertexDefaultModel
	}

	ts, err := google.DefaultTokenSource(ctx, cloudScope)
	if err != nil {
		return nil, fmt.Errorf("get default token source: %w (hint: run 'gcloud auth application-default login' or set GOOGLE_APPLICATION_CREDENTIALS)", err)
	}
	p.tokenSource = ts
	p.endpoint = fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
		region, project, region, model)
	return p, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) DefaultVoices() VoiceMap {
	return VoiceMap{
		Interviewer: Voice{ID: geminiDefaultInterviewer, Name: "Charon"},
		Expert:      Voice{ID: geminiDefaultExpert, Name: "Leda"},
	}
}

func (p *GeminiProvider) Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error) {
	content := geminiContent{Parts: []geminiPart{{Text: text}}}
	if p.tokenSource != nil {
		content.Role = "user" // Vertex rejects contents without a role
	}
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{content},
		GenerationConfig: geminiGenConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: geminiSpeechConfig{
				VoiceConfig: geminiVoiceConfig{
					PrebuiltVoiceConfig: geminiPrebuiltVoice{VoiceName: voice.ID},
				},
			},
		},
	})
	if err != nil {
		return AudioResult{}, fmt.Errorf("marshal Gemini request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return AudioResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.tokenSource != nil {
		token, err := p.tokenSource.Token()
		if err != nil {
			return AudioResult{}, fmt.Errorf("get access token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	} else {
		req.Header.Set("x-goog-api-key", p.apiKey)
	}

	res, err := p.httpClient.Do(req)
	if err != nil {
		return AudioResult{}, fmt.Errorf("send Gemini request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return AudioResult{}, fmt.Errorf("Gemini TTS error (status %d): %s", res.StatusCode, string(errBody))
	}

	var resp geminiResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return AudioResult{}, fmt.Errorf("parse Gemini response: %w", err)
	}

	var pcm []byte
	for _, c := range resp.Candidates {
		for _, part := range c.Content.Parts {
			if part.InlineData == nil {
				continue
			}
			chunk, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return AudioResult{}, fmt.Errorf("decode Gemini audio base64: %w", err)
			}
			pcm = append(pcm, chunk...)
		}
	}
	if len(pcm) == 0 {
		return AudioResult{}, fmt.Errorf("Gemini response contained no audio data")
	}
	return AudioResult{Data: pcm, Format: FormatPCM}, nil
}

func (p *GeminiProvider) Close() error { return nil }

func geminiAvailableVoices() []VoiceInfo {
	return []VoiceInfo{
		{ID: "Charon", Name: "Charon", Gender: "male", Description: "Informative, clear male narrator", DefaultFor: "Interviewer"},
		{ID: "Leda", Name: "Leda", Gender: "female", Description: "Youthful, bright female voice", DefaultFor: "Expert"},
		{ID: "Kore", Name: "Kore", Gender: "female", Description: "Firm, confident female voice"},
		{ID: "Fenrir", Name: "Fenrir", Gender: "male", Description: "Excitable, deep male voice"},
		{ID: "Puck", Name: "Puck", Gender: "male", Description: "Upbeat, energetic male voice"},
		{ID: "Orus", Name: "Orus", Gender: "male", Description: "Firm, authoritative male narrator"},
	}
}
