package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Defaults match the layout the tool has always used: a user-editable script
// and narrative next to the working directory, generated artifacts under
// task06_output/.
const (
	DefaultOutputDir       = "task06_output"
	DefaultScriptPath      = "Interview_script.md"
	DefaultNarrativePath   = "task05_narrative.txt"
	DefaultBackgroundImage = "background.jpg"

	ScriptFileName   = "interview_script.md"
	AudioFileName    = "deepfake_interview.mp3"
	VideoFileName    = "deepfake_interview.mp4"
	SubtitleFileName = "deepfake_interview.srt"

	DefaultMinutes     = 2
	DefaultTemperature = 0.6

	DefaultScriptBackend = "openai"
	DefaultTTSBackend    = "openai"
)

// Config is the resolved runtime configuration. Flags override whatever Load
// produced. Empty model and voice fields select the backend's own default
// (gpt-4o-mini, gpt-4o-mini-tts, alloy and verse for OpenAI).
type Config struct {
	OutputDir       string
	ScriptPath      string
	NarrativePath   string
	BackgroundImage string

	ScriptBackend string
	TextModel     string
	Temperature   float64
	Minutes       int

	TTSBackend       string
	TTSModel         string
	TTSSpeed         float64 // 0 = provider default
	InterviewerVoice string
	ExpertVoice      string

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	AnthropicAPIKey  string
	GeminiAPIKey     string
	ElevenLabsAPIKey string

	PublishBucket  string
	PublishTable   string
	PublishBaseURL string // public prefix for artifact URLs, e.g. a CDN
	SecretPrefix   string
}

// Default returns a Config populated with built-in defaults only.
func Default() Config {
	return Config{
		OutputDir:       DefaultOutputDir,
		ScriptPath:      DefaultScriptPath,
		NarrativePath:   DefaultNarrativePath,
		BackgroundImage: DefaultBackgroundImage,
		ScriptBackend:   DefaultScriptBackend,
		Temperature:     DefaultTemperature,
		Minutes:         DefaultMinutes,
		TTSBackend:      DefaultTTSBackend,
	}
}

// Load reads .env (if present) and applies environment overrides on top of
// the defaults.
func Load() Config {
	_ = godotenv.Load() // best-effort: .env is optional
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from an environment lookup function.
func FromEnv(getenv func(string) string) Config {
	cfg := Default()

	str := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	str(&cfg.OutputDir, "INTERVIEWCAST_OUTPUT_DIR")
	str(&cfg.ScriptPath, "INTERVIEWCAST_SCRIPT")
	str(&cfg.NarrativePath, "INTERVIEWCAST_NARRATIVE")
	str(&cfg.BackgroundImage, "INTERVIEWCAST_BACKGROUND")
	str(&cfg.ScriptBackend, "INTERVIEWCAST_SCRIPT_BACKEND")
	str(&cfg.TextModel, "INTERVIEWCAST_TEXT_MODEL")
	str(&cfg.TTSBackend, "INTERVIEWCAST_TTS")
	str(&cfg.TTSModel, "INTERVIEWCAST_TTS_MODEL")
	str(&cfg.InterviewerVoice, "INTERVIEWCAST_INTERVIEWER_VOICE")
	str(&cfg.ExpertVoice, "INTERVIEWCAST_EXPERT_VOICE")
	str(&cfg.PublishBucket, "INTERVIEWCAST_PUBLISH_BUCKET")
	str(&cfg.PublishTable, "INTERVIEWCAST_PUBLISH_TABLE")
	str(&cfg.PublishBaseURL, "INTERVIEWCAST_PUBLISH_BASE_URL")
	str(&cfg.SecretPrefix, "INTERVIEWCAST_SECRET_PREFIX")

	if v := getenv("INTERVIEWCAST_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Minutes = n
		}
	}
	if v := getenv("INTERVIEWCAST_TTS_SPEED"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.TTSSpeed = f
		}
	}
	if v := getenv("INTERVIEWCAST_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Temperature = f
		}
	}

	cfg.OpenAIAPIKey = getenv("OPENAI_API_KEY")
	cfg.OpenAIBaseURL = getenv("OPENAI_BASE_URL")
	cfg.AnthropicAPIKey = getenv("ANTHROPIC_API_KEY")
	cfg.GeminiAPIKey = getenv("GEMINI_API_KEY")
	cfg.ElevenLabsAPIKey = getenv("ELEVENLABS_API_KEY")
	return cfg
}

// ScriptOutputPath is where the working copy of the script lives.
func (c Config) ScriptOutputPath() string { return filepath.Join(c.OutputDir, ScriptFileName) }

// AudioOutputPath is the final MP3.
func (c Config) AudioOutputPath() string { return filepath.Join(c.OutputDir, AudioFileName) }

// VideoOutputPath is the final MP4.
func (c Config) VideoOutputPath() string { return filepath.Join(c.OutputDir, VideoFileName) }

// SubtitlePath is the SRT sidecar written next to the audio.
func (c Config) SubtitlePath() string { return filepath.Join(c.OutputDir, SubtitleFileName) }

// EnsureOutputDir creates the output directory if needed.
func (c Config) EnsureOutputDir() error {
	if err := os.MkdirAll(c.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", c.OutputDir, err)
	}
	return nil
}

// keyEnv maps a backend name to the environment variable holding its key.
// Backends that authenticate through cloud credentials map to "".
var keyEnv = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"claude":     "ANTHROPIC_API_KEY",
	"gemini":     "GEMINI_API_KEY",
	"elevenlabs": "ELEVENLABS_API_KEY",
	"google":     "",
	"polly":      "",
	"nova":       "",
}

// KeyFor returns the configured API key for backend.
func (c Config) KeyFor(backend string) string {
	switch backend {
	case "openai":
		return c.OpenAIAPIKey
	case "claude":
		return c.AnthropicAPIKey
	case "gemini":
		return c.GeminiAPIKey
	case "elevenlabs":
		return c.ElevenLabsAPIKey
	}
	return ""
}

// RequireKey fails when backend needs an API key that is not configured.
func (c Config) RequireKey(backend string) error {
	env, ok := keyEnv[backend]
	if !ok {
		return fmt.Errorf("unknown backend %q", backend)
	}
	if env == "" {
		return nil
	}
	// Gemini TTS can fall back to Vertex AI credentials.
	if backend == "gemini" && os.Getenv("GCP_PROJECT") != "" {
		return nil
	}
	if c.KeyFor(backend) == "" {
		return fmt.Errorf("Set %s in a .env file or environment.", env)
	}
	return nil
}

func (c *Config) setKey(env, value string) {
	switch env {
	case "OPENAI_API_KEY":
		c.OpenAIAPIKey = value
	case "ANTHROPIC_API_KEY":
		c.AnthropicAPIKey = value
	case "GEMINI_API_KEY":
		c.GeminiAPIKey = value
	case "ELEVENLABS_API_KEY":
		c.ElevenLabsAPIKey = value
	}
}
