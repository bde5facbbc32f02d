package script

import (
	"fmt"
	"strings"
)

// Speaker identifies one of the two voices in an interview.
type Speaker string

const (
	Interviewer Speaker = "Interviewer"
	Expert      Speaker = "Expert"
)

// Line is one parsed dialogue turn.
type Line struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Dialogue is the ordered list of turns parsed from a script.
type Dialogue []Line

// Format renders the dialogue back into "Speaker: text" lines.
func (d Dialogue) Format() string {
	var sb strings.Builder
	for _, l := range d {
		fmt.Fprintf(&sb, "%s: %s\n", l.Speaker, l.Text)
	}
	return sb.String()
}

// Counts returns the number of lines per speaker.
func (d Dialogue) Counts() map[Speaker]int {
	counts := map[Speaker]int{Interviewer: 0, Expert: 0}
	for _, l := range d {
		counts[l.Speaker]++
	}
	return counts
}

// WordCount is the total number of spoken words.
func (d Dialogue) WordCount() int {
	n := 0
	for _, l := range d {
		n += len(strings.Fields(l.Text))
	}
	return n
}

// EstimateMinutes approximates spoken length at 150 words per minute.
func (d Dialogue) EstimateMinutes() int {
	minutes := d.WordCount() / 150
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
