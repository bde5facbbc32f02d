package tts

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"

	"github.com/apresai/interviewcast/internal/config"
)

const (
	pollyDefaultInterviewer = "Matthew"
	pollyDefaultExpert      = "Ruth"
)

var pollyVoiceLang = map[string]types.LanguageCode{
	"Matthew":  types.LanguageCodeEnUs,
	"Ruth":     types.LanguageCodeEnUs,
	"Stephen":  types.LanguageCodeEnUs,
	"Danielle": types.LanguageCodeEnUs,
	"Amy":      types.LanguageCodeEnGb,
	"Olivia":   types.LanguageCodeEnAu,
}

type pollySynthesizer interface {
	SynthesizeSpeech(ctx context.Context, in *polly.SynthesizeSpeechInput, opts ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// PollyProvider implements Provider using AWS Polly (generative engine).
type PollyProvider struct {
	client pollySynthesizer
}

func NewPollyProvider(ctx context.Context, _ ProviderConfig) (*PollyProvider, error) {
	awsCfg, err := config.AWSConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config for Polly: %w", err)
	}
	return &PollyProvider{client: polly.NewFromConfig(awsCfg)}, nil
}

func (p *PollyProvider) Name() string { return "polly" }

func (p *PollyProvider) DefaultVoices() VoiceMap {
	return VoiceMap{
		Interviewer: Voice{ID: pollyDefaultInterviewer, Name: pollyDefaultInterviewer},
		Expert:      Voice{ID: pollyDefaultExpert, Name: pollyDefaultExpert},
	}
}

func (p *PollyProvider) Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error) {
	lang, ok := pollyVoiceLang[voice.ID]
	if !ok {
		lang = types.LanguageCodeEnUs
	}

	resp, err := p.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Engine:       types.EngineGenerative,
		OutputFormat: types.OutputFormatMp3,
		SampleRate:   aws.String("24000"),
		Text:         aws.String(text),
		TextType:     types.TextTypeText,
		VoiceId:      types.VoiceId(voice.ID),
		LanguageCode: lang,
	})
	if err != nil {
		return AudioResult{}, fmt.Errorf("Polly synthesize: %w", err)
	}
	defer resp.AudioStream.Close()

	data, err := io.ReadAll(resp.AudioStream)
	if err != nil {
		return AudioResult{}, fmt.Errorf("Polly read audio: %w", err)
	}
	return AudioResult{Data: data, Format: FormatMP3}, nil
}

func (p *PollyProvider) Close() error { return nil }

func pollyAvailableVoices() []VoiceInfo {
	return []VoiceInfo{
		{ID: "Matthew", Name: "Matthew", Gender: "male", Description: "en-US, Generative", DefaultFor: "Interviewer"},
		{ID: "Ruth", Name: "Ruth", Gender: "female", Description: "en-US, Generative", DefaultFor: "Expert"},
		{ID: "Stephen", Name: "Stephen", Gender: "male", Description: "en-US, Generative"},
		{ID: "Danielle", Name: "Danielle", Gender: "female", Description: "en-US, Generative"},
		{ID: "Amy", Name: "Amy", Gender: "female", Description: "en-GB, Generative"},
		{ID: "Olivia", Name: "Olivia", Gender: "female", Description: "en-AU, Generative"},
	}
}
