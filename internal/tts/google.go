package tts

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
)

const (
	googleDefaultInterviewer = "en-US-Chirp3-HD-Charon"
	googleDefaultExpert      = "en-US-Chirp3-HD-Leda"
)

// speechSynthesizer is the subset of the Cloud TTS client used here.
type speechSynthesizer interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
}

// GoogleProvider implements Provider using Google Cloud TTS (Chirp 3 HD).
type GoogleProvider struct {
	client speechSynthesizer
	close  func() error
	speed  float64
}

func NewGoogleProvider(ctx context.Context, cfg ProviderConfig) (*GoogleProvider, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create Google TTS client: %w", err)
	}
	p := newGoogleProvider(client, cfg)
	p.close = client.Close
	return p, nil
}

func newGoogleProvider(client speechSynthesizer, cfg ProviderConfig) *GoogleProvider {
	return &GoogleProvider{client: client, speed: cfg.Speed}
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) DefaultVoices() VoiceMap {
	return VoiceMap{
		Interviewer: Voice{ID: googleDefaultInterviewer, Name: "Charon"},
		Expert:      Voice{ID: googleDefaultExpert, Name: "Leda"},
	}
}

func (p *GoogleProvider) Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error) {
	audio := &texttospeechpb.AudioConfig{AudioEncoding: texttospeechpb.AudioEncoding_MP3}
	if p.speed != 0 {
		audio.SpeakingRate = p.speed
	}

	resp, err := p.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: "en-US",
			Name:         voice.ID,
		},
		AudioConfig: audio,
	})
	if err != nil {
		return AudioResult{}, fmt.Errorf("Google TTS synthesize: %w", err)
	}
	if len(resp.GetAudioContent()) == 0 {
		return AudioResult{}, fmt.Errorf("Google TTS returned no audio")
	}
	return AudioResult{Data: resp.GetAudioContent(), Format: FormatMP3}, nil
}

func (p *GoogleProvider) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

func googleAvailableVoices() []VoiceInfo {
	return []VoiceInfo{
		{ID: "en-US-Chirp3-HD-Charon", Name: "Charon", Gender: "male", Description: "Informative, clear male narrator", DefaultFor: "Interviewer"},
		{ID: "en-US-Chirp3-HD-Leda", Name: "Leda", Gender: "female", Description: "Youthful, bright female voice", DefaultFor: "Expert"},
		{ID: "en-US-Chirp3-HD-Fenrir", Name: "Fenrir", Gender: "male", Description: "Deep, resonant male voice"},
		{ID: "en-US-Chirp3-HD-Kore", Name: "Kore", Gender: "female", Description: "Firm, confident female voice"},
		{ID: "en-US-Chirp3-HD-Puck", Name: "Puck", Gender: "male", Description: "Upbeat, energetic male voice"},
		{ID: "en-US-Chirp3-HD-Zephyr", Name: "Zephyr", Gender: "female", Description: "Breezy, relaxed female voice"},
	}
}
