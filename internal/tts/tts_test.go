package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"

	"github.com/apresai/interviewcast/internal/script"
)

type fakeProvider struct {
	calls  []string
	failAt int // 1-based call that fails, 0 = never
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Synthesize(_ context.Context, text string, voice Voice) (AudioResult, error) {
	f.calls = append(f.calls, voice.ID+"|"+text)
	if f.failAt == len(f.calls) {
		return AudioResult{}, errors.New("boom")
	}
	return AudioResult{Data: []byte(text), Format: FormatMP3}, nil
}

func (f *fakeProvider) DefaultVoices() VoiceMap {
	return VoiceMap{Interviewer: Voice{ID: "iv"}, Expert: Voice{ID: "ex"}}
}

func (f *fakeProvider) Close() error { return nil }

var sample = script.Dialogue{
	{Speaker: script.Interviewer, Text: "What happened?"},
	{Speaker: script.Expert, Text: "A cloned voice."},
	{Speaker: script.Interviewer, Text: "How?"},
}

func TestVoiceFor(t *testing.T) {
	m := VoiceMap{Interviewer: Voice{ID: "a"}, Expert: Voice{ID: "b"}}
	if m.VoiceFor(script.Interviewer).ID != "a" || m.VoiceFor(script.Expert).ID != "b" {
		t.Fatalf("unexpected voice selection")
	}
	if m.VoiceFor(script.Speaker("other")).ID != "b" {
		t.Fatalf("non-interviewer speakers should get the expert voice")
	}
}

func TestResolveVoices(t *testing.T) {
	p := &fakeProvider{}
	m := ResolveVoices(p, "", "custom")
	if m.Interviewer.ID != "iv" || m.Expert.ID != "custom" {
		t.Fatalf("ResolveVoices = %+v", m)
	}
}

func TestOpenAIDefaults(t *testing.T) {
	v := NewOpenAIProvider(ProviderConfig{}).DefaultVoices()
	if v.Interviewer.ID != "alloy" || v.Expert.ID != "verse" {
		t.Fatalf("default voices = %+v", v)
	}
}

func TestAvailableVoices(t *testing.T) {
	for _, name := range Providers() {
		voices, err := AvailableVoices(name)
		if err != nil {
			t.Fatalf("AvailableVoices(%s): %v", name, err)
		}
		var iv, ex int
		for _, v := range voices {
			switch v.DefaultFor {
			case "Interviewer":
				iv++
			case "Expert":
				ex++
			}
		}
		if iv != 1 || ex != 1 {
			t.Fatalf("%s: want one default per speaker, got %d/%d", name, iv, ex)
		}
	}
	if _, err := AvailableVoices("bogus"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestNewProviderUnknown(t *testing.T) {
	if _, err := NewProvider(context.Background(), "bogus", ProviderConfig{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSynthesizeAllOrderAndFiles(t *testing.T) {
	dir := t.TempDir()
	p := &fakeProvider{}
	var seen []int
	clips, err := SynthesizeAll(context.Background(), p, p.DefaultVoices(), sample, dir, func(c Clip, total int) {
		if total != 3 {
			t.Errorf("total = %d", total)
		}
		seen = append(seen, c.Index)
	})
	if err != nil {
		t.Fatalf("SynthesizeAll: %v", err)
	}

	want := []string{"iv|What happened?", "ex|A cloned voice.", "iv|How?"}
	if strings.Join(p.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", p.calls, want)
	}
	if len(clips) != 3 || len(seen) != 3 {
		t.Fatalf("clips = %d, callbacks = %d", len(clips), len(seen))
	}
	if filepath.Base(clips[1].Path) != "line-002.mp3" || clips[1].Speaker != script.Expert {
		t.Fatalf("unexpected clip %+v", clips[1])
	}
	data, err := os.ReadFile(clips[2].Path)
	if err != nil || string(data) != "How?" {
		t.Fatalf("clip content = %q, %v", data, err)
	}
}

func TestSynthesizeAllAbortsOnFailure(t *testing.T) {
	p := &fakeProvider{failAt: 2}
	_, err := SynthesizeAll(context.Background(), p, p.DefaultVoices(), sample, t.TempDir(), nil)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line 2 failure, got %v", err)
	}
	if len(p.calls) != 2 {
		t.Fatalf("synthesis should stop at the first failure, got %d calls", len(p.calls))
	}
}

func TestSynthesizeAllEmpty(t *testing.T) {
	if _, err := SynthesizeAll(context.Background(), &fakeProvider{}, VoiceMap{}, nil, t.TempDir(), nil); err == nil {
		t.Fatalf("expected error for empty dialogue")
	}
}

func TestOpenAIProviderSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "gpt-4o-mini-tts" || body["voice"] != "alloy" || body["response_format"] != "mp3" {
			t.Errorf("unexpected request %v", body)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3fake"))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(ProviderConfig{APIKey: "sk", BaseURL: srv.URL + "/v1"})
	res, err := p.Synthesize(context.Background(), "Hello.", p.DefaultVoices().Interviewer)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(res.Data) != "ID3fake" || res.Format != FormatMP3 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestElevenLabsProviderSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "el-key" {
			t.Errorf("missing api key header")
		}
		if r.URL.Path != "/voice-1" || r.URL.Query().Get("output_format") != elevenLabsOutputFormat {
			t.Errorf("unexpected url %s", r.URL)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = w.Write([]byte("mp3"))
	}))
	defer srv.Close()

	p := NewElevenLabsProvider(ProviderConfig{APIKey: "el-key", BaseURL: srv.URL})
	res, err := p.Synthesize(context.Background(), "Hi", Voice{ID: "voice-1"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(res.Data) != "mp3" {
		t.Fatalf("data = %q", res.Data)
	}
}

func TestElevenLabsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewElevenLabsProvider(ProviderConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := p.Synthesize(context.Background(), "Hi", Voice{ID: "v"})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected 429 error, got %v", err)
	}
}

func TestGeminiProviderSynthesize(t *testing.T) {
	pcm := []byte{1, 2, 3, 4}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "g-key" {
			t.Errorf("missing api key header")
		}
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req geminiRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName != "Kore" {
			t.Errorf("unexpected voice in %+v", req)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"audio/L16;rate=24000","data":"` +
			base64.StdEncoding.EncodeToString(pcm) + `"}}]}}]}`))
	}))
	defer srv.Close()

	p, err := NewGeminiProvider(context.Background(), ProviderConfig{APIKey: "g-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewGeminiProvider: %v", err)
	}
	res, err := p.Synthesize(context.Background(), "Hi", Voice{ID: "Kore"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if res.Format != FormatPCM || string(res.Data) != string(pcm) {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestGeminiProviderRequiresCredentials(t *testing.T) {
	t.Setenv("GCP_PROJECT", "")
	if _, err := NewGeminiProvider(context.Background(), ProviderConfig{}); err == nil {
		t.Fatalf("expected error without API key or GCP_PROJECT")
	}
}

type fakeGoogleClient struct {
	req *texttospeechpb.SynthesizeSpeechRequest
}

func (f *fakeGoogleClient) SynthesizeSpeech(_ context.Context, req *texttospeechpb.SynthesizeSpeechRequest, _ ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error) {
	f.req = req
	return &texttospeechpb.SynthesizeSpeechResponse{AudioContent: []byte("mp3")}, nil
}

// The real client must stay assignable to the narrowed interface.
var _ speechSynthesizer = (*texttospeech.Client)(nil)

func TestGoogleProviderSynthesize(t *testing.T) {
	client := &fakeGoogleClient{}
	p := newGoogleProvider(client, ProviderConfig{Speed: 1.1})
	res, err := p.Synthesize(context.Background(), "Hello", p.DefaultVoices().Expert)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(res.Data) != "mp3" {
		t.Fatalf("data = %q", res.Data)
	}
	if client.req.GetVoice().GetName() != googleDefaultExpert || client.req.GetAudioConfig().GetSpeakingRate() != 1.1 {
		t.Fatalf("unexpected request %v", client.req)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
