package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/apresai/interviewcast/internal/ingest"
	"github.com/apresai/interviewcast/internal/pipeline"
	"github.com/apresai/interviewcast/internal/publish"
	"github.com/apresai/interviewcast/internal/script"
	"github.com/apresai/interviewcast/internal/tts"
)

var tracer = otel.Tracer("interviewcast-mcp")

// ToolDefs returns the tools that need no storage backend.
func ToolDefs() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        "parse_script",
			Description: "Parse an interview script into speaker-tagged lines. Lines must start with 'Interviewer:' or 'Expert:' (bold **...** is ok); anything else is ignored.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"script": map[string]any{
						"type":        "string",
						"description": "Script text to parse",
					},
				},
				Required: []string{"script"},
			},
		},
		{
			Name:        "generate_interview",
			Description: "Produce a two-voice interview MP3 (plus subtitles and optionally an MP4) from a script, or from a narrative that is first turned into a script. Runs to completion before returning.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"script": map[string]any{
						"type":        "string",
						"description": "Interview script text. Takes precedence over narrative inputs.",
					},
					"narrative": map[string]any{
						"type":        "string",
						"description": "Narrative text to write a script from",
					},
					"narrative_url": map[string]any{
						"type":        "string",
						"description": "URL or PDF path to read the narrative from (alternative to narrative)",
					},
					"topic": map[string]any{
						"type":        "string",
						"description": "Focus topic for the generated script",
					},
					"minutes": map[string]any{
						"type":        "integer",
						"description": "Target interview length in minutes",
						"default":     2,
					},
					"script_backend": map[string]any{
						"type":        "string",
						"description": "Script generator: openai, claude, gemini, nova",
						"default":     "openai",
					},
					"tts": map[string]any{
						"type":        "string",
						"description": "Text-to-speech provider: openai, elevenlabs, google, polly, gemini",
						"default":     "openai",
					},
					"interviewer_voice": map[string]any{
						"type":        "string",
						"description": "Voice ID for the interviewer (provider default if empty)",
					},
					"expert_voice": map[string]any{
						"type":        "string",
						"description": "Voice ID for the expert (provider default if empty)",
					},
					"video": map[string]any{
						"type":        "boolean",
						"description": "Also render a solid-color 1920x1080 MP4",
						"default":     false,
					},
					"publish": map[string]any{
						"type":        "boolean",
						"description": "Upload the results to S3 and record them (requires server publishing config)",
						"default":     false,
					},
				},
			},
		},
		{
			Name:        "list_voices",
			Description: "List the voices a TTS provider offers and which one each speaker uses by default.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"provider": map[string]any{
						"type":        "string",
						"description": "openai, elevenlabs, google, polly, or gemini",
						"default":     "openai",
					},
				},
			},
		},
	}
}

// StoreToolDefs returns the tools backed by the published-interview table.
func StoreToolDefs() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        "get_interview",
			Description: "Get a published interview by ID, including its audio, video and subtitle URLs.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"interview_id": map[string]any{
						"type":        "string",
						"description": "The interview ID returned from generate_interview",
					},
				},
				Required: []string{"interview_id"},
			},
		},
		{
			Name:        "list_interviews",
			Description: "List published interviews, newest first.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of results (default 20)",
						"default":     20,
					},
					"cursor": map[string]any{
						"type":        "string",
						"description": "Pagination cursor from a previous list_interviews call",
					},
				},
			},
		},
	}
}

type interviewStore interface {
	Get(ctx context.Context, id string) (*publish.InterviewItem, error)
	List(ctx context.Context, limit int, cursor string) ([]publish.InterviewItem, string, error)
}

type runFunc func(ctx context.Context, opts pipeline.Options) (*pipeline.Result, error)

// Handlers contains tool handler implementations.
type Handlers struct {
	cfg       Config
	publisher pipeline.Publisher // nil when publishing is disabled
	store     interviewStore     // nil when publishing is disabled
	run       runFunc
	slots     chan struct{}
	log       *slog.Logger
}

// NewHandlers creates tool handlers. pub may be nil.
func NewHandlers(cfg Config, pub *publish.Publisher, logger *slog.Logger) *Handlers {
	if cfg.MaxRuns <= 0 {
		cfg.MaxRuns = 1
	}
	h := &Handlers{
		cfg:   cfg,
		run:   pipeline.Run,
		slots: make(chan struct{}, cfg.MaxRuns),
		log:   logger,
	}
	if pub != nil {
		h.publisher = pub
		h.store = pub.Store()
	}
	return h
}

// Register adds every available tool to s.
func (h *Handlers) Register(s *server.MCPServer) {
	tools := ToolDefs()
	s.AddTool(tools[0], h.HandleParseScript)
	s.AddTool(tools[1], h.HandleGenerateInterview)
	s.AddTool(tools[2], h.HandleListVoices)
	if h.store != nil {
		storeTools := StoreToolDefs()
		s.AddTool(storeTools[0], h.HandleGetInterview)
		s.AddTool(storeTools[1], h.HandleListInterviews)
	}
}

// HandleParseScript parses script text into dialogue lines.
func (h *Handlers) HandleParseScript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, span := tracer.Start(ctx, "tool.parse_script")
	defer span.End()

	text := mcp.ParseString(req, "script", "")
	d, err := script.ParseDialogue(text)
	if err != nil {
		span.SetStatus(codes.Error, "no dialogue")
		return mcp.NewToolResultError(err.Error()), nil
	}

	counts := d.Counts()
	lines := make([]map[string]any, 0, len(d))
	for i, l := range d {
		lines = append(lines, map[string]any{
			"index":   i + 1,
			"speaker": string(l.Speaker),
			"text":    l.Text,
		})
	}
	span.SetAttributes(attribute.Int("lines", len(d)))

	return jsonResult(map[string]any{
		"lines":             lines,
		"count":             len(d),
		"interviewer_lines": counts[script.Interviewer],
		"expert_lines":      counts[script.Expert],
		"estimated_minutes": d.EstimateMinutes(),
		"formatted":         d.Format(),
	})
}

// HandleGenerateInterview runs the full pipeline in a fresh directory.
func (h *Handlers) HandleGenerateInterview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.generate_interview")
	defer span.End()

	scriptText := mcp.ParseString(req, "script", "")
	narrative := mcp.ParseString(req, "narrative", "")
	narrativeURL := mcp.ParseString(req, "narrative_url", "")
	if scriptText == "" && narrative == "" && narrativeURL == "" {
		span.SetStatus(codes.Error, "missing input")
		return mcp.NewToolResultError("one of script, narrative or narrative_url is required"), nil
	}
	// Local paths would let a client read files on the server.
	if narrativeURL != "" && ingest.DetectSource(narrativeURL) != ingest.SourceURL {
		span.SetStatus(codes.Error, "bad narrative_url")
		return mcp.NewToolResultError("narrative_url must be an http:// or https:// URL"), nil
	}
	wantPublish := parseBoolParam(req, "publish", false)
	if wantPublish && h.publisher == nil {
		return mcp.NewToolResultError("publishing is not configured on this server"), nil
	}

	select {
	case h.slots <- struct{}{}:
		defer func() { <-h.slots }()
	default:
		span.SetStatus(codes.Error, "busy")
		return mcp.NewToolResultError(fmt.Sprintf("server busy: %d interviews already generating", cap(h.slots))), nil
	}

	id, err := publish.NewID(time.Now())
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(h.cfg.WorkDir, id)

	cfg := h.cfg.Base
	cfg.OutputDir = filepath.Join(dir, "output")
	cfg.ScriptPath = filepath.Join(dir, "script.md")
	cfg.NarrativePath = ""
	cfg.BackgroundImage = ""
	cfg.ScriptBackend = mcp.ParseString(req, "script_backend", cfg.ScriptBackend)
	cfg.TTSBackend = mcp.ParseString(req, "tts", cfg.TTSBackend)
	cfg.InterviewerVoice = mcp.ParseString(req, "interviewer_voice", cfg.InterviewerVoice)
	cfg.ExpertVoice = mcp.ParseString(req, "expert_voice", cfg.ExpertVoice)
	if m := parseIntParam(req, "minutes", 0); m > 0 {
		cfg.Minutes = m
	}

	video := parseBoolParam(req, "video", false)
	opts := pipeline.Options{
		Config:      cfg,
		Topic:       mcp.ParseString(req, "topic", ""),
		VideoAlways: video,
		NoVideo:     !video,
		Logger:      h.log.With("interview_id", id),
	}
	if wantPublish {
		opts.Publisher = h.publisher
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	switch {
	case scriptText != "":
		if err := os.WriteFile(cfg.ScriptPath, []byte(scriptText), 0o644); err != nil {
			return nil, fmt.Errorf("write script: %w", err)
		}
	case narrativeURL != "":
		opts.NarrativeSource = narrativeURL
	default:
		path := filepath.Join(dir, "narrative.txt")
		if err := os.WriteFile(path, []byte(narrative), 0o644); err != nil {
			return nil, fmt.Errorf("write narrative: %w", err)
		}
		opts.NarrativeSource = path
	}

	span.SetAttributes(
		attribute.String("interview_id", id),
		attribute.String("script_backend", cfg.ScriptBackend),
		attribute.String("tts", cfg.TTSBackend),
		attribute.Bool("video", opts.VideoAlways),
		attribute.Bool("publish", wantPublish),
	)
	h.log.InfoContext(ctx, "interview generation started", "interview_id", id, "tts", cfg.TTSBackend)

	res, err := h.run(ctx, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pipeline failed")
		h.log.ErrorContext(ctx, "interview generation failed", "interview_id", id, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	counts := res.Dialogue.Counts()
	result := map[string]any{
		"interview_id":      id,
		"script_origin":     string(res.ScriptOrigin),
		"lines":             len(res.Dialogue),
		"interviewer_lines": counts[script.Interviewer],
		"expert_lines":      counts[script.Expert],
		"script_path":       res.ScriptPath,
		"audio_path":        res.AudioPath,
		"duration_seconds":  res.Duration.Seconds(),
	}
	if res.SubtitlePath != "" {
		result["subtitle_path"] = res.SubtitlePath
	}
	if res.VideoPath != "" {
		result["video_path"] = res.VideoPath
	}
	if item := res.Published; item != nil {
		result["published_id"] = item.InterviewID
		result["audio_url"] = item.AudioURL
		if item.VideoURL != "" {
			result["video_url"] = item.VideoURL
		}
	}
	return jsonResult(result)
}

// HandleListVoices returns the voice catalog for a provider.
func (h *Handlers) HandleListVoices(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, span := tracer.Start(ctx, "tool.list_voices")
	defer span.End()

	provider := mcp.ParseString(req, "provider", "openai")
	voices, err := tts.AvailableVoices(provider)
	if err != nil {
		span.SetStatus(codes.Error, "unknown provider")
		return mcp.NewToolResultError(err.Error()), nil
	}

	out := make([]map[string]any, 0, len(voices))
	for _, v := range voices {
		entry := map[string]any{
			"id":          v.ID,
			"name":        v.Name,
			"gender":      v.Gender,
			"description": v.Description,
		}
		if v.DefaultFor != "" {
			entry["default_for"] = v.DefaultFor
		}
		out = append(out, entry)
	}
	return jsonResult(map[string]any{
		"provider": provider,
		"voices":   out,
	})
}

// HandleGetInterview returns one published interview.
func (h *Handlers) HandleGetInterview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.get_interview")
	defer span.End()

	id := mcp.ParseString(req, "interview_id", "")
	if id == "" {
		span.SetStatus(codes.Error, "missing interview_id")
		return mcp.NewToolResultError("interview_id is required"), nil
	}
	span.SetAttributes(attribute.String("interview_id", id))

	item, err := h.store.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get interview failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to get interview: %v", err)), nil
	}
	if item == nil {
		span.SetStatus(codes.Error, "not found")
		return mcp.NewToolResultError(fmt.Sprintf("interview %s not found", id)), nil
	}
	return jsonResult(itemSummary(*item, true))
}

// HandleListInterviews returns a page of published interviews.
func (h *Handlers) HandleListInterviews(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.list_interviews")
	defer span.End()

	limit := parseIntParam(req, "limit", 20)
	cursor := mcp.ParseString(req, "cursor", "")
	span.SetAttributes(attribute.Int("limit", limit), attribute.String("cursor", cursor))

	items, next, err := h.store.List(ctx, limit, cursor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list interviews failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to list interviews: %v", err)), nil
	}
	span.SetAttributes(attribute.Int("result_count", len(items)))

	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, itemSummary(item, false))
	}
	result := map[string]any{
		"interviews": out,
		"count":      len(out),
	}
	if next != "" {
		result["next_cursor"] = next
	}
	return jsonResult(result)
}

func itemSummary(item publish.InterviewItem, detail bool) map[string]any {
	m := map[string]any{
		"interview_id": item.InterviewID,
		"audio_url":    item.AudioURL,
		"created_at":   item.CreatedAt,
	}
	if item.Title != "" {
		m["title"] = item.Title
	}
	if item.Duration != "" {
		m["duration"] = item.Duration
	}
	if item.VideoURL != "" {
		m["video_url"] = item.VideoURL
	}
	if !detail {
		return m
	}
	if item.ScriptURL != "" {
		m["script_url"] = item.ScriptURL
	}
	if item.SubtitleURL != "" {
		m["subtitle_url"] = item.SubtitleURL
	}
	if item.FileSizeMB > 0 {
		m["file_size_mb"] = item.FileSizeMB
	}
	m["lines"] = item.Lines
	m["interviewer_lines"] = item.InterviewerLines
	m["expert_lines"] = item.ExpertLines
	if item.ScriptBackend != "" {
		m["script_backend"] = item.ScriptBackend
	}
	if item.TTSProvider != "" {
		m["tts_provider"] = item.TTSProvider
	}
	return m
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func parseIntParam(req mcp.CallToolRequest, key string, defaultVal int) int {
	raw, ok := req.GetArguments()[key]
	if !ok {
		return defaultVal
	}
	switch v := raw.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return defaultVal
	}
}

func parseBoolParam(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	if v, ok := req.GetArguments()[key].(bool); ok {
		return v
	}
	return defaultVal
}
