package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apresai/interviewcast/internal/config"
	"github.com/apresai/interviewcast/internal/observability"
	"github.com/apresai/interviewcast/internal/script"
	"github.com/apresai/interviewcast/internal/tts"
)

var Version = "dev"

var (
	flagVerbose   bool
	flagOutputDir string

	// set up by PersistentPreRunE
	cfg            config.Config
	logger         *slog.Logger
	logFile        io.Closer
	shutdownTracer func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "interviewcast",
	Short: "Turn a narrative or interview script into a two-voice interview MP3 and MP4",
	Long: `interviewcast reads Interview_script.md (or writes one from task05_narrative.txt),
voices the Interviewer and Expert lines with two different TTS voices, and
stitches them into task06_output/deepfake_interview.mp3. When background.jpg
exists it also renders a 1920x1080 video.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
	RunE:               runGenerate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("interviewcast %s\n", Version)
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse [script]",
	Short: "Show the dialogue lines a script parses into",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runParse,
}

var flagVoicesProvider string

var listVoicesCmd = &cobra.Command{
	Use:   "list-voices",
	Short: "List available voices for the TTS providers",
	RunE:  runListVoices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log to stderr at debug level instead of the progress bar")
	rootCmd.PersistentFlags().StringVarP(&flagOutputDir, "output-dir", "o", config.DefaultOutputDir, "Directory for the script copy, audio, subtitles, video and log")
	addGenerateFlags(rootCmd.Flags())
	addGenerateFlags(generateCmd.Flags())
	listVoicesCmd.Flags().StringVarP(&flagVoicesProvider, "provider", "p", "", "Only list voices for this provider")

	rootCmd.AddCommand(versionCmd, generateCmd, parseCmd, listVoicesCmd, publishCmd)
}

// ExecuteContext runs the root command; cancelling ctx aborts a running
// generation.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// setup loads configuration and starts logging and tracing. Commands that
// write into the output directory log to a file there unless --verbose.
func setup(cmd *cobra.Command, args []string) error {
	cfg = config.Load()
	if err := applyFlags(cmd, &cfg); err != nil {
		return err
	}

	switch {
	case flagVerbose:
		logger = observability.InitLogger(os.Stderr, slog.LevelDebug)
	case writesOutput(cmd):
		f, err := observability.OpenLogFile(cfg.OutputDir)
		if err != nil {
			return err
		}
		logFile = f
		logger = observability.InitLogger(f, slog.LevelInfo)
	default:
		logger = observability.InitLogger(os.Stderr, slog.LevelWarn)
	}
	slog.SetDefault(logger)

	shutdown, err := observability.InitTracer(cmd.Context(), "interviewcast", Version)
	if err != nil {
		logger.Warn("failed to init tracer, continuing without tracing", "error", err)
		shutdown = func(context.Context) error { return nil }
	}
	shutdownTracer = shutdown

	if err := cfg.LoadSecrets(cmd.Context(), logger); err != nil {
		logger.Warn("failed to load secrets, falling back to environment", "error", err)
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if shutdownTracer != nil {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Warn("tracer shutdown error", "error", err)
		}
	}
	if logFile != nil {
		return logFile.Close()
	}
	return nil
}

// writesOutput reports whether cmd is the root, generate or publish upload
// command. It matches by position and name so it can run from rootCmd's own
// hooks.
func writesOutput(cmd *cobra.Command) bool {
	parent := cmd.Parent()
	if parent == nil {
		return true
	}
	if parent.HasParent() {
		return false
	}
	switch cmd.Name() {
	case "generate", "publish":
		return true
	}
	return false
}

func runParse(cmd *cobra.Command, args []string) error {
	path := cfg.ScriptPath
	if len(args) == 1 {
		path = args[0]
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	d, err := script.ParseDialogue(string(data))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, l := range d {
		fmt.Fprintf(out, "%3d  %-11s %s\n", i+1, l.Speaker, l.Text)
	}
	counts := d.Counts()
	fmt.Fprintf(out, "\n%d lines (%d Interviewer, %d Expert), about %d min\n",
		len(d), counts[script.Interviewer], counts[script.Expert], d.EstimateMinutes())
	return nil
}

var providerLabels = map[string]string{
	"openai":     "OPENAI",
	"elevenlabs": "ELEVENLABS",
	"google":     "GOOGLE CLOUD TTS",
	"polly":      "AMAZON POLLY",
	"gemini":     "GEMINI",
}

func runListVoices(cmd *cobra.Command, args []string) error {
	providers := tts.Providers()
	if flagVoicesProvider != "" {
		providers = []string{flagVoicesProvider}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nAvailable voices:")
	for _, name := range providers {
		voices, err := tts.AvailableVoices(name)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "\n  %s\n", providerLabels[name])
		fmt.Fprintf(out, "  %s\n", strings.Repeat("─", 50))
		fmt.Fprintf(out, "  %-28s %-12s %-8s %s\n", "ID", "NAME", "GENDER", "DESCRIPTION")
		for _, v := range voices {
			def := ""
			if v.DefaultFor != "" {
				def = fmt.Sprintf(" (default %s)", v.DefaultFor)
			}
			fmt.Fprintf(out, "  %-28s %-12s %-8s %s%s\n", v.ID, v.Name, v.Gender, v.Description, def)
		}
	}
	fmt.Fprintln(out)
	return nil
}
