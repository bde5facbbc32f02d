package script

import (
	"fmt"
	"regexp"
	"strings"
)

func buildSystemPrompt(minutes int) string {
	if minutes < 1 {
		minutes = 1
	}
	upper := max(minutes+1, 3)
	return fmt.Sprintf("You are a helpful editor. Convert the provided narrative into a realistic, "+
		"concise interview transcript usable for audio synthesis. Use alternating lines "+
		"with speakers exactly labeled as 'Interviewer:' and 'Expert:'. Keep it natural, "+
		"~%d-%d minutes when spoken, ~%d-%d turns total. Avoid long paragraphs; 1-2 sentences per turn.",
		minutes, upper, 5*minutes, 7*minutes)
}

func buildUserPrompt(narrative string, opts GenerateOptions) string {
	var sb strings.Builder
	sb.WriteString("Narrative (source):\n")
	sb.WriteString(narrative)
	sb.WriteString("\n\nConstraints:\n")
	sb.WriteString("- Keep it accurate to the source narrative (no hallucinations).\n")
	sb.WriteString("- Avoid numbers you cannot infer; speak qualitatively if needed.\n")
	sb.WriteString("- Start directly with dialogue, no intro/outro headers.")
	if opts.Topic != "" {
		fmt.Fprintf(&sb, "\n- Focus the conversation on: %s", opts.Topic)
	}
	return sb.String()
}

var fenceRe = regexp.MustCompile("(?s)```(?:markdown|md|text)?\\s*\n?(.*?)\n?```")

// cleanTranscript trims model output and unwraps a fenced block if the model
// added one around the transcript.
func cleanTranscript(text string) string {
	if m := fenceRe.FindStringSubmatch(text); len(m) > 1 {
		text = m[1]
	}
	return strings.TrimSpace(text)
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
