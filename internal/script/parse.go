package script

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoDialogue is returned when a script has no speaker-tagged lines.
var ErrNoDialogue = errors.New("could not parse any 'Interviewer:' / 'Expert:' lines from the script")

// linePattern accepts "Interviewer: ...", "**Expert:** ..." and
// "**Interviewer**: ...", case-insensitively.
var linePattern = regexp.MustCompile(`(?i)^\s*(\*{0,2})(Interviewer|Expert)(\*{0,2})\s*:\s*(.+)$`)

// ParseDialogue extracts speaker-tagged lines from a markdown-ish script.
// Lines that do not match are dropped; a script with no matching line is an
// error wrapping ErrNoDialogue.
func ParseDialogue(text string) (Dialogue, error) {
	var dialogue Dialogue
	for _, raw := range strings.Split(text, "\n") {
		ln := strings.TrimSpace(raw)
		if ln == "" {
			continue
		}
		m := linePattern.FindStringSubmatch(ln)
		if m == nil {
			continue
		}

		speaker := Expert
		if strings.EqualFold(m[2], "interviewer") {
			speaker = Interviewer
		}

		body := strings.TrimSpace(stripClosingBold(strings.TrimSpace(m[4]), len(m[1])-len(m[3])))
		if body == "" {
			continue
		}
		dialogue = append(dialogue, Line{Speaker: speaker, Text: body})
	}

	if len(dialogue) == 0 {
		return nil, fmt.Errorf("%w. Tip: ensure each line starts with 'Interviewer:' or 'Expert:' (bold **...** is ok)", ErrNoDialogue)
	}
	return dialogue, nil
}

// stripClosingBold removes up to n leading '*' from text. "**Interviewer:**"
// opens its bold before the label and closes it after the colon, leaving the
// closer at the start of the text; n is the count still unclosed.
func stripClosingBold(text string, n int) string {
	for ; n > 0 && strings.HasPrefix(text, "*"); n-- {
		text = text[1:]
	}
	return text
}
