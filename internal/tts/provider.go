package tts

import (
	"context"
	"fmt"

	"github.com/apresai/interviewcast/internal/script"
)

// AudioFormat represents the audio encoding returned by a provider.
type AudioFormat string

const (
	FormatMP3 AudioFormat = "mp3"
	FormatPCM AudioFormat = "pcm" // 24kHz s16le mono, needs conversion
)

// Voice holds a provider-specific voice identifier.
type Voice struct {
	ID   string
	Name string
}

// VoiceMap assigns a voice to each side of the interview.
type VoiceMap struct {
	Interviewer Voice
	Expert      Voice
}

// VoiceFor returns the interviewer voice for interviewer lines and the
// expert voice for everything else.
func (m VoiceMap) VoiceFor(s script.Speaker) Voice {
	if s == script.Interviewer {
		return m.Interviewer
	}
	return m.Expert
}

// ResolveVoices starts from the provider's default voices and applies any
// non-empty voice ID overrides.
func ResolveVoices(p Provider, interviewer, expert string) VoiceMap {
	m := p.DefaultVoices()
	if interviewer != "" {
		m.Interviewer = Voice{ID: interviewer, Name: interviewer}
	}
	if expert != "" {
		m.Expert = Voice{ID: expert, Name: expert}
	}
	return m
}

// AudioResult is the output of a synthesis call.
type AudioResult struct {
	Data   []byte
	Format AudioFormat
}

// Provider synthesizes speech for one line at a time.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error)
	DefaultVoices() VoiceMap
	Close() error
}

// ProviderConfig carries credentials and tuning shared by providers.
type ProviderConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Speed   float64 // 0 = provider default
}

// VoiceInfo describes an available voice for display in the registry.
type VoiceInfo struct {
	ID          string
	Name        string
	Gender      string
	Description string
	DefaultFor  string // "Interviewer", "Expert", or ""
}

// Providers lists the supported TTS backends.
func Providers() []string {
	return []string{"openai", "elevenlabs", "google", "polly", "gemini"}
}

// AvailableVoices returns the voice catalog for the named provider.
func AvailableVoices(providerName string) ([]VoiceInfo, error) {
	switch providerName {
	case "openai":
		return openAIAvailableVoices(), nil
	case "elevenlabs":
		return elevenLabsAvailableVoices(), nil
	case "google":
		return googleAvailableVoices(), nil
	case "polly":
		return pollyAvailableVoices(), nil
	case "gemini":
		return geminiAvailableVoices(), nil
	default:
		return nil, fmt.Errorf("unknown TTS provider %q", providerName)
	}
}

// NewProvider creates a TTS provider by name.
func NewProvider(ctx context.Context, name string, cfg ProviderConfig) (Provider, error) {
	switch name {
	case "openai":
		return NewOpenAIProvider(cfg), nil
	case "elevenlabs":
		return NewElevenLabsProvider(cfg), nil
	case "google":
		return NewGoogleProvider(ctx, cfg)
	case "polly":
		return NewPollyProvider(ctx, cfg)
	case "gemini":
		return NewGeminiProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown TTS provider %q: choose openai, elevenlabs, google, polly, or gemini", name)
	}
}
