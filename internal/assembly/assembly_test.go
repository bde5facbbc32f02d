package assembly

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/apresai/interviewcast/internal/script"
)

func TestBuildConcatListPadding(t *testing.T) {
	dir := t.TempDir()
	lead := filepath.Join(dir, "lead.mp3")
	spacer := filepath.Join(dir, "spacer.mp3")
	clips := []string{filepath.Join(dir, "line-001.mp3"), filepath.Join(dir, "line-002.mp3")}

	got, err := buildConcatList(clips, lead, spacer)
	if err != nil {
		t.Fatalf("buildConcatList: %v", err)
	}
	want := strings.Join([]string{
		"file '" + lead + "'",
		"file '" + clips[0] + "'",
		"file '" + spacer + "'",
		"file '" + clips[1] + "'",
		"file '" + spacer + "'",
	}, "\n") + "\n"
	if got != want {
		t.Fatalf("concat list:\n%s\nwant:\n%s", got, want)
	}
}

func TestBuildConcatListEscapesQuotes(t *testing.T) {
	got, err := buildConcatList([]string{"/tmp/it's.mp3"}, "/tmp/l.mp3", "/tmp/s.mp3")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, `file '/tmp/it'\''s.mp3'`) {
		t.Fatalf("quote not escaped:\n%s", got)
	}
}

func TestAssembleRequiresClips(t *testing.T) {
	a := NewFFmpegAssembler("", "")
	if err := a.Assemble(context.Background(), nil, t.TempDir(), "out.mp3"); err == nil {
		t.Fatalf("expected error for zero clips")
	}
}

func TestConvertToMP3RejectsUnknownFormat(t *testing.T) {
	a := NewFFmpegAssembler("", "")
	err := a.ConvertToMP3(context.Background(), "in.ogg", "ogg", "out.mp3")
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}

func TestBuildTimeline(t *testing.T) {
	cues := BuildTimeline([]time.Duration{time.Second, 1500 * time.Millisecond, 500 * time.Millisecond})
	want := []Cue{
		{Index: 0, Start: 200 * time.Millisecond, End: 1200 * time.Millisecond},
		{Index: 1, Start: 1450 * time.Millisecond, End: 2950 * time.Millisecond},
		{Index: 2, Start: 3200 * time.Millisecond, End: 3700 * time.Millisecond},
	}
	for i := range want {
		if cues[i] != want[i] {
			t.Fatalf("cue %d = %+v, want %+v", i, cues[i], want[i])
		}
	}
	if got := TotalDuration(cues); got != 3950*time.Millisecond {
		t.Fatalf("TotalDuration = %v", got)
	}
	if TotalDuration(nil) != 0 {
		t.Fatalf("empty timeline should have zero duration")
	}
}

func TestWriteSRT(t *testing.T) {
	d := script.Dialogue{
		{Speaker: script.Interviewer, Text: "What happened?"},
		{Speaker: script.Expert, Text: "A cloned voice."},
	}
	cues := BuildTimeline([]time.Duration{time.Second, 61 * time.Second})

	var buf bytes.Buffer
	if err := WriteSRT(&buf, cues, d); err != nil {
		t.Fatalf("WriteSRT: %v", err)
	}
	want := "1\n00:00:00,200 --> 00:00:01,200\nInterviewer: What happened?\n\n" +
		"2\n00:00:01,450 --> 00:01:02,450\nExpert: A cloned voice.\n\n"
	if buf.String() != want {
		t.Fatalf("srt:\n%q\nwant:\n%q", buf.String(), want)
	}

	if err := WriteSRT(&buf, cues[:1], d); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestSRTTimeHours(t *testing.T) {
	if got := srtTime(time.Hour + 2*time.Minute + 3*time.Second + 4*time.Millisecond); got != "01:02:03,004" {
		t.Fatalf("srtTime = %s", got)
	}
}

func TestClipDurationRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.mp3")
	if err := os.WriteFile(path, []byte("not an mp3"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ClipDuration(path); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := ClipDuration(filepath.Join(t.TempDir(), "missing.mp3")); err == nil {
		t.Fatalf("expected open error")
	}
}

func TestParseSeconds(t *testing.T) {
	d, err := parseSeconds(" 2.500000\n")
	if err != nil || d != 2500*time.Millisecond {
		t.Fatalf("parseSeconds = %v, %v", d, err)
	}
	if _, err := parseSeconds("N/A"); err == nil {
		t.Fatalf("expected parse error")
	}
	if formatSeconds(LineSpacer) != "0.250" {
		t.Fatalf("formatSeconds = %s", formatSeconds(LineSpacer))
	}
}

// infoFrame builds the first frame of an MPEG-1 Layer III stereo file with an
// Info tag carrying all optional fields and the encoder delay fields.
func infoFrame(frames, startPad, endPad int, encoder string) []byte {
	b := []byte{0xFF, 0xFB, 0x90, 0x00}
	b = append(b, make([]byte, 32)...) // side info
	b = append(b, "Info"...)
	b = binary.BigEndian.AppendUint32(b, 0x0F)
	b = binary.BigEndian.AppendUint32(b, uint32(frames))
	b = binary.BigEndian.AppendUint32(b, 12345) // byte count
	b = append(b, make([]byte, 100)...)         // seek table
	b = binary.BigEndian.AppendUint32(b, 0)     // quality
	ext := make([]byte, 36)
	copy(ext, encoder)
	ext[21] = byte(startPad >> 4)
	ext[22] = byte(startPad&0x0F)<<4 | byte(endPad>>8)
	ext[23] = byte(endPad)
	return append(b, ext...)
}

func TestReadGapless(t *testing.T) {
	g, ok := readGapless(infoFrame(40, 576, 1000, "LAME3.100"))
	if !ok {
		t.Fatal("expected gapless info")
	}
	if g.frames != 40 || g.samplesPerFrame != 1152 || g.startPad != 576 || g.endPad != 1000 {
		t.Fatalf("gapless = %+v", g)
	}
	if got := g.samples(); got != 40*1152-1576 {
		t.Fatalf("samples = %d", got)
	}
}

func TestReadGaplessAfterID3(t *testing.T) {
	id3 := []byte{'I', 'D', '3', 4, 0, 0, 0, 0, 0, 20}
	id3 = append(id3, make([]byte, 20)...)
	g, ok := readGapless(append(id3, infoFrame(10, 1105, 300, "Lavc61.3")...))
	if !ok || g.frames != 10 || g.startPad != 1105 || g.endPad != 300 {
		t.Fatalf("gapless = %+v, ok = %v", g, ok)
	}
}

func TestReadGaplessMissing(t *testing.T) {
	noTag := append([]byte{0xFF, 0xFB, 0x90, 0x00}, make([]byte, 200)...)
	unknownEncoder := infoFrame(10, 576, 100, "XXXX")
	for name, data := range map[string][]byte{
		"empty":           nil,
		"no sync":         []byte("not an mp3 at all, just text"),
		"no info tag":     noTag,
		"unknown encoder": unknownEncoder,
		"truncated":       infoFrame(10, 576, 100, "LAME")[:60],
	} {
		if _, ok := readGapless(data); ok {
			t.Errorf("%s: expected no gapless info", name)
		}
	}
}
