package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
)

var (
	stageStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5555"))
)

// BarRenderer shows a status line and a progress bar that redraw in place on
// a terminal. Elsewhere it prints one timestamped line per event.
type BarRenderer struct {
	out   io.Writer
	start time.Time
	isTTY bool
	width int
	last  Event
	lines int // lines currently drawn, cleared before the next frame
}

// NewBarRenderer writes to out, sizing the bar to the terminal when out is
// one.
func NewBarRenderer(out *os.File) *BarRenderer {
	tty := isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())
	width := 80
	if tty {
		if w, _, err := term.GetSize(out.Fd()); err == nil && w > 0 {
			width = w
		}
	}
	return newRenderer(out, tty, width)
}

func newRenderer(out io.Writer, tty bool, width int) *BarRenderer {
	return &BarRenderer{out: out, start: time.Now(), isTTY: tty, width: width}
}

// Handle satisfies Callback.
func (r *BarRenderer) Handle(e Event) {
	e.Elapsed = time.Since(r.start)
	if e.Stage == StageComplete {
		e.Percent = 1
	}
	r.last = e

	if !r.isTTY {
		fmt.Fprintf(r.out, "[%s] %s\n", formatElapsed(e.Elapsed), e.Message)
		return
	}
	r.clear()
	frame := r.frame(e)
	fmt.Fprint(r.out, strings.Join(frame, "\n"))
	r.lines = len(frame)
}

// frame is the status line plus the bar line.
func (r *BarRenderer) frame(e Event) []string {
	status := "  " + stageStyle.Render(string(e.Stage)) + "  " + e.Message
	bar := fmt.Sprintf("  %s %3d%%  %s", renderBar(e.Percent, r.barWidth()), int(e.Percent*100), formatElapsed(e.Elapsed))
	if e.LineTotal > 0 {
		bar += fmt.Sprintf("  line %d/%d", e.LineNum, e.LineTotal)
	}
	return []string{status, bar}
}

// Finish removes the bar and prints what the run produced.
func (r *BarRenderer) Finish() {
	if r.isTTY {
		r.clear()
	}
	fmt.Fprint(r.out, summary(r.last))
}

func summary(e Event) string {
	var b strings.Builder
	switch {
	case e.Error != nil:
		fmt.Fprintf(&b, "\n  %s\n", errStyle.Render(fmt.Sprintf("Error: %v", e.Error)))
	case e.Stage != StageComplete:
	case e.AudioFile == "":
		fmt.Fprintf(&b, "\n  %s (%s)\n", e.Message, formatElapsed(e.Elapsed))
	default:
		audio := e.AudioFile
		if e.Duration != "" {
			audio = fmt.Sprintf("%s (%s, %.1f MB)", e.AudioFile, e.Duration, e.SizeMB)
		}
		fmt.Fprintf(&b, "\n  %s\n", doneStyle.Render("Audio saved: "+audio))
		if e.VideoFile != "" {
			fmt.Fprintf(&b, "  %s\n", doneStyle.Render("Video saved: "+e.VideoFile))
		} else {
			b.WriteString("  No background image provided. Skipping video render.\n")
		}
		if e.ScriptFile != "" {
			fmt.Fprintf(&b, "  Script: %s  |  Total: %s\n", e.ScriptFile, formatElapsed(e.Elapsed))
		}
	}
	return b.String()
}

// clear erases the current frame: the bottom line in place, each line above
// it after a cursor-up.
func (r *BarRenderer) clear() {
	if r.lines == 0 {
		return
	}
	fmt.Fprint(r.out, "\r\033[2K")
	for i := 1; i < r.lines; i++ {
		fmt.Fprint(r.out, "\033[A\033[2K")
	}
	fmt.Fprint(r.out, "\r")
	r.lines = 0
}

// barWidth leaves room for indent, percent, elapsed and the line counter.
func (r *BarRenderer) barWidth() int {
	return min(max(r.width-30, 20), 60)
}

func renderBar(pct float64, width int) string {
	pct = min(max(pct, 0), 1)
	filled := min(int(pct*float64(width)), width)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// formatElapsed formats a duration as M:SS.
func formatElapsed(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
