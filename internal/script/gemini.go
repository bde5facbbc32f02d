package script

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var geminiModels = map[string]string{
	"gemini-flash": "gemini-2.5-flash",
	"gemini-pro":   "gemini-2.5-pro",
}

const geminiGenerateEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

type GeminiGenerator struct {
	model      string
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

func NewGeminiGenerator(apiKey, model string) *GeminiGenerator {
	modelID := geminiModels[model]
	if modelID == "" {
		modelID = model
	}
	if modelID == "" {
		modelID = geminiModels["gemini-flash"]
	}
	return &GeminiGenerator{
		model:      modelID,
		apiKey:     apiKey,
		endpoint:   geminiGenerateEndpoint,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type geminiTextRequest struct {
	SystemInstruction *geminiTextContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiTextContent `json:"contents"`
	GenerationConfig  *geminiTextGenCfg   `json:"generationConfig,omitempty"`
}

type geminiTextContent struct {
	Parts []geminiTextPart `json:"parts"`
}

type geminiTextPart struct {
	Text string `json:"text"`
}

type geminiTextGenCfg struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiTextResponse struct {
	Candidates []struct {
		Content geminiTextContent `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiGenerator) Generate(ctx context.Context, narrative string, opts GenerateOptions) (string, error) {
	reqBody := geminiTextRequest{
		SystemInstruction: &geminiTextContent{
			Parts: []geminiTextPart{{Text: buildSystemPrompt(opts.Minutes)}},
		},
		Contents: []geminiTextContent{
			{Parts: []geminiTextPart{{Text: buildUserPrompt(narrative, opts)}}},
		},
		GenerationConfig: &geminiTextGenCfg{
			Temperature:     opts.Temperature,
			MaxOutputTokens: 4096,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf(g.endpoint, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	res, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Gemini API error (status %d): %s", res.StatusCode, truncate(string(respBody), 500))
	}

	var resp geminiTextResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}

	var parts []string
	for _, p := range resp.Candidates[0].Content.Parts {
		parts = append(parts, p.Text)
	}
	text := cleanTranscript(strings.Join(parts, ""))
	if text == "" {
		return "", fmt.Errorf("empty response from Gemini")
	}
	return text, nil
}
