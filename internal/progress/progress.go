package progress

import "time"

// Stage identifies which pipeline stage is active.
type Stage string

const (
	StageNarrative Stage = "narrative"
	StageScript    Stage = "script"
	StageParse     Stage = "parse"
	StageTTS       Stage = "tts"
	StageAssembly  Stage = "assembly"
	StageVideo     Stage = "video"
	StagePublish   Stage = "publish"
	StageComplete  Stage = "complete"
)

// Stage weights on the overall bar. TTS dominates wall time.
var stageStart = map[Stage]float64{
	StageNarrative: 0.00,
	StageScript:    0.02,
	StageParse:     0.10,
	StageTTS:       0.12,
	StageAssembly:  0.80,
	StageVideo:     0.85,
	StagePublish:   0.95,
	StageComplete:  1.00,
}

// Event carries progress information from the pipeline to the renderer.
type Event struct {
	Stage     Stage
	Message   string
	Percent   float64 // 0.0–1.0
	LineNum   int
	LineTotal int
	Elapsed   time.Duration
	Error     error

	// Set on StageComplete.
	ScriptFile string
	AudioFile  string
	VideoFile  string // empty when the video step was skipped
	Duration   string // "M:SS"
	SizeMB     float64
}

// Callback is the function signature for progress event handlers.
type Callback func(Event)

// NopCallback is a no-op progress callback for tests and silent mode.
func NopCallback(Event) {}

// NewEvent creates an Event at the start of stage.
func NewEvent(stage Stage, msg string, start time.Time) Event {
	return Event{
		Stage:   stage,
		Message: msg,
		Percent: stageStart[stage],
		Elapsed: time.Since(start),
	}
}

// LineEvent reports per-line TTS progress, scaled into the TTS band.
func LineEvent(n, total int, msg string, start time.Time) Event {
	e := NewEvent(StageTTS, msg, start)
	if total > 0 {
		band := stageStart[StageAssembly] - stageStart[StageTTS]
		e.Percent = stageStart[StageTTS] + band*float64(n)/float64(total)
	}
	e.LineNum = n
	e.LineTotal = total
	return e
}
