package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/apresai/interviewcast/internal/assembly"
	"github.com/apresai/interviewcast/internal/config"
	"github.com/apresai/interviewcast/internal/publish"
	"github.com/apresai/interviewcast/internal/script"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload the artifacts in the output directory to S3 and record them",
	Long: `Uploads deepfake_interview.mp3 (required) plus the script, subtitles and
video when present, then writes a DynamoDB record. Needs
INTERVIEWCAST_PUBLISH_BUCKET and INTERVIEWCAST_PUBLISH_TABLE (or the flags).`,
	RunE: runPublish,
}

var publishListCmd = &cobra.Command{
	Use:   "list",
	Short: "List published interviews, newest first",
	RunE:  runPublishList,
}

var publishGetCmd = &cobra.Command{
	Use:   "get <interview-id>",
	Short: "Show one published interview",
	Args:  cobra.ExactArgs(1),
	RunE:  runPublishGet,
}

var (
	flagListLimit  int
	flagListCursor string
	flagTitle      string
)

func init() {
	publishCmd.PersistentFlags().StringVar(&flagPublishBucket, "publish-bucket", "", "S3 bucket (overrides INTERVIEWCAST_PUBLISH_BUCKET)")
	publishCmd.PersistentFlags().StringVar(&flagPublishTable, "publish-table", "", "DynamoDB table (overrides INTERVIEWCAST_PUBLISH_TABLE)")
	publishCmd.Flags().StringVar(&flagTitle, "title", "", "Title for the record (defaults to the first interviewer question)")
	publishListCmd.Flags().IntVar(&flagListLimit, "limit", 20, "Maximum number of results")
	publishListCmd.Flags().StringVar(&flagListCursor, "cursor", "", "Pagination cursor from a previous list")

	publishCmd.AddCommand(publishListCmd, publishGetCmd)
}

func newPublisher(cmd *cobra.Command) (*publish.Publisher, error) {
	return publish.NewFromConfig(cmd.Context(), cfg.PublishBucket, cfg.PublishTable, cfg.PublishBaseURL, logger)
}

func runPublish(cmd *cobra.Command, args []string) error {
	audio := cfg.AudioOutputPath()
	if _, err := os.Stat(audio); err != nil {
		return fmt.Errorf("no audio to publish at %s (run generate first): %w", audio, err)
	}
	pub, err := newPublisher(cmd)
	if err != nil {
		return err
	}

	a := publish.Artifacts{
		Title:        flagTitle,
		AudioPath:    audio,
		ScriptPath:   existing(cfg.ScriptOutputPath()),
		VideoPath:    existing(cfg.VideoOutputPath()),
		SubtitlePath: existing(cfg.SubtitlePath()),
		TTSProvider:  cfg.TTSBackend,
	}
	if a.ScriptPath != "" {
		if data, err := os.ReadFile(a.ScriptPath); err == nil {
			if d, err := script.ParseDialogue(string(data)); err == nil {
				a.Dialogue = d
				if a.Title == "" {
					a.Title = firstQuestion(d)
				}
			}
		}
	}
	if d, err := assembly.NewFFmpegAssembler("", "").ProbeDuration(cmd.Context(), audio); err == nil {
		secs := int(d.Seconds() + 0.5)
		a.Duration = fmt.Sprintf("%d:%02d", secs/60, secs%60)
	} else {
		logger.Warn("could not probe audio duration", "error", err)
	}

	item, err := pub.Publish(cmd.Context(), a)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Published %s\n  Audio: %s\n", item.InterviewID, item.AudioURL)
	if item.VideoURL != "" {
		fmt.Fprintf(out, "  Video: %s\n", item.VideoURL)
	}
	return nil
}

func runPublishList(cmd *cobra.Command, args []string) error {
	pub, err := newPublisher(cmd)
	if err != nil {
		return err
	}
	items, next, err := pub.Store().List(cmd.Context(), flagListLimit, flagListCursor)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tDURATION\tLINES\tTITLE")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", it.InterviewID, it.CreatedAt, it.Duration, it.Lines, it.Title)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if next != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "\nMore: --cursor %s\n", next)
	}
	return nil
}

func runPublishGet(cmd *cobra.Command, args []string) error {
	pub, err := newPublisher(cmd)
	if err != nil {
		return err
	}
	it, err := pub.Store().Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if it == nil {
		return fmt.Errorf("interview %s not found", args[0])
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	row := func(k, v string) {
		if v != "" {
			fmt.Fprintf(w, "%s\t%s\n", k, v)
		}
	}
	row("ID", it.InterviewID)
	row("Title", it.Title)
	row("Created", it.CreatedAt)
	row("Duration", it.Duration)
	row("Lines", fmt.Sprintf("%d (%d Interviewer, %d Expert)", it.Lines, it.InterviewerLines, it.ExpertLines))
	row("Audio", it.AudioURL)
	row("Video", it.VideoURL)
	row("Subtitles", it.SubtitleURL)
	row("Script", it.ScriptURL)
	row("TTS", it.TTSProvider)
	return w.Flush()
}

func existing(path string) string {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	return path
}

func firstQuestion(d script.Dialogue) string {
	for _, l := range d {
		if l.Speaker == script.Interviewer {
			return l.Text
		}
	}
	return config.ScriptFileName
}
