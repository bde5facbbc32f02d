package cli

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/apresai/interviewcast/internal/assembly"
	"github.com/apresai/interviewcast/internal/config"
	"github.com/apresai/interviewcast/internal/pipeline"
	"github.com/apresai/interviewcast/internal/progress"
	"github.com/apresai/interviewcast/internal/publish"
	"github.com/apresai/interviewcast/internal/script"
	"github.com/apresai/interviewcast/internal/tts"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Build the interview audio (and video) from a script or narrative",
	RunE:  runGenerate,
}

var (
	flagScript           string
	flagNarrative        string
	flagBackground       string
	flagTopic            string
	flagMinutes          int
	flagTemperature      float64
	flagScriptBackend    string
	flagTextModel        string
	flagTTS              string
	flagTTSModel         string
	flagTTSSpeed         float64
	flagInterviewerVoice string
	flagExpertVoice      string
	flagForceGenerate    bool
	flagScriptOnly       bool
	flagNoVideo          bool
	flagVideoAlways      bool
	flagPublish          bool
	flagPublishBucket    string
	flagPublishTable     string
	flagTUI              bool
)

// addGenerateFlags binds the generation flags to fs. Root and generate share
// the same variables so the bare command behaves like generate.
func addGenerateFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&flagScript, "script", "s", config.DefaultScriptPath, "Interview script to voice; generated when missing")
	fs.StringVarP(&flagNarrative, "narrative", "n", "", "Narrative source (text file, PDF or URL) to write a script from; must exist when given")
	fs.StringVarP(&flagBackground, "background", "b", config.DefaultBackgroundImage, "Background image for the video")
	fs.StringVarP(&flagTopic, "topic", "p", "", "Focus the generated interview on a specific topic")
	fs.IntVarP(&flagMinutes, "minutes", "m", config.DefaultMinutes, "Target interview length in minutes")
	fs.Float64Var(&flagTemperature, "temperature", config.DefaultTemperature, "Sampling temperature for script generation")
	fs.StringVar(&flagScriptBackend, "script-backend", config.DefaultScriptBackend, "Script generator: openai, claude, gemini, nova")
	fs.StringVar(&flagTextModel, "text-model", "", "Model ID for script generation (backend default if empty)")
	fs.StringVarP(&flagTTS, "tts", "T", config.DefaultTTSBackend, "TTS provider: openai, elevenlabs, google, polly, gemini")
	fs.StringVar(&flagTTSModel, "tts-model", "", "TTS model ID (provider default if empty)")
	fs.Float64Var(&flagTTSSpeed, "tts-speed", 0, "Speech speed (OpenAI: 0.25-4.0, ElevenLabs: 0.7-1.2, Google: 0.25-2.0)")
	fs.StringVar(&flagInterviewerVoice, "interviewer-voice", "", "Voice ID for the Interviewer (provider default if empty)")
	fs.StringVar(&flagExpertVoice, "expert-voice", "", "Voice ID for the Expert (provider default if empty)")
	fs.BoolVarP(&flagForceGenerate, "force-generate", "f", false, "Ignore existing scripts and generate a new one")
	fs.BoolVarP(&flagScriptOnly, "script-only", "S", false, "Stop after the script is written and parsed")
	fs.BoolVar(&flagNoVideo, "no-video", false, "Never render video")
	fs.BoolVar(&flagVideoAlways, "video-always", false, "Render a solid-color video when no background image exists")
	fs.BoolVar(&flagPublish, "publish", false, "Upload results to S3 and record them in DynamoDB")
	fs.StringVar(&flagPublishBucket, "publish-bucket", "", "S3 bucket for --publish (implies --publish)")
	fs.StringVar(&flagPublishTable, "publish-table", "", "DynamoDB table for --publish")
	fs.BoolVarP(&flagTUI, "tui", "t", false, "Interactive setup wizard for generation options")
}

// applyFlags copies explicitly set flags over the loaded configuration, so
// environment settings survive unless a flag overrides them.
func applyFlags(cmd *cobra.Command, c *config.Config) error {
	fs := cmd.Flags()
	str := func(dst *string, name string) {
		if fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	str(&c.OutputDir, "output-dir")
	str(&c.ScriptPath, "script")
	str(&c.BackgroundImage, "background")
	str(&c.ScriptBackend, "script-backend")
	str(&c.TextModel, "text-model")
	str(&c.TTSBackend, "tts")
	str(&c.TTSModel, "tts-model")
	str(&c.InterviewerVoice, "interviewer-voice")
	str(&c.ExpertVoice, "expert-voice")
	str(&c.PublishBucket, "publish-bucket")
	str(&c.PublishTable, "publish-table")

	if fs.Changed("minutes") {
		n, _ := fs.GetInt("minutes")
		if n < 1 {
			return fmt.Errorf("--minutes must be at least 1 (got %d)", n)
		}
		c.Minutes = n
	}
	if fs.Changed("temperature") {
		f, _ := fs.GetFloat64("temperature")
		if f < 0 || f > 2 {
			return fmt.Errorf("--temperature must be between 0 and 2 (got %.2f)", f)
		}
		c.Temperature = f
	}
	if fs.Changed("tts-speed") {
		c.TTSSpeed, _ = fs.GetFloat64("tts-speed")
	}
	return nil
}

// validate checks flag combinations that the pipeline cannot detect itself.
func validate(c config.Config) error {
	if flagNoVideo && flagVideoAlways {
		return fmt.Errorf("--no-video and --video-always are mutually exclusive")
	}
	if !slices.Contains(script.Backends(), c.ScriptBackend) {
		return fmt.Errorf("invalid script backend %q: must be one of %s", c.ScriptBackend, strings.Join(script.Backends(), ", "))
	}
	if _, err := tts.AvailableVoices(c.TTSBackend); err != nil {
		return err
	}
	if c.TTSSpeed != 0 {
		lo, hi := 0.0, 0.0
		switch c.TTSBackend {
		case "openai":
			lo, hi = 0.25, 4.0
		case "elevenlabs":
			lo, hi = 0.7, 1.2
		case "google":
			lo, hi = 0.25, 2.0
		default:
			return fmt.Errorf("--tts-speed is not supported by %s", c.TTSBackend)
		}
		if c.TTSSpeed < lo || c.TTSSpeed > hi {
			return fmt.Errorf("--tts-speed for %s must be between %.2f and %.2f (got %.2f)", c.TTSBackend, lo, hi, c.TTSSpeed)
		}
	}
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if flagTUI {
		if err := runInteractiveSetup(&cfg); err != nil {
			return err
		}
	}
	if err := validate(cfg); err != nil {
		return err
	}

	if !flagScriptOnly {
		if err := assembly.CheckFFmpeg(); err != nil {
			return err
		}
		if err := cfg.RequireKey(cfg.TTSBackend); err != nil {
			return err
		}
	}

	opts := pipeline.Options{
		Config:          cfg,
		NarrativeSource: flagNarrative,
		Topic:           flagTopic,
		ForceGenerate:   flagForceGenerate,
		ScriptOnly:      flagScriptOnly,
		NoVideo:         flagNoVideo,
		VideoAlways:     flagVideoAlways,
		Logger:          logger,
	}

	if (flagPublish || cfg.PublishBucket != "") && !flagScriptOnly {
		pub, err := publish.NewFromConfig(cmd.Context(), cfg.PublishBucket, cfg.PublishTable, cfg.PublishBaseURL, logger)
		if err != nil {
			return err
		}
		opts.Publisher = pub
	}

	finish := func() {}
	if !flagVerbose {
		r := progress.NewBarRenderer(os.Stdout)
		finish = r.Finish
		opts.OnProgress = r.Handle
	}

	res, err := pipeline.Run(cmd.Context(), opts)
	finish()
	if err != nil {
		return err
	}
	if res.Published != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "  Published: %s (%s)\n", res.Published.InterviewID, res.Published.AudioURL)
	}
	return nil
}
