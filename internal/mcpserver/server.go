package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mark3labs/mcp-go/server"

	"github.com/apresai/interviewcast/internal/config"
	"github.com/apresai/interviewcast/internal/publish"
)

// Config holds server configuration.
type Config struct {
	Port    int
	WorkDir string // each generate_interview call gets its own subdirectory
	MaxRuns int    // concurrent generate_interview calls

	// Base is the interview configuration requests start from.
	Base config.Config
}

// DefaultConfig returns a Config populated from environment variables.
func DefaultConfig(base config.Config) Config {
	cfg := Config{
		Port:    8000,
		WorkDir: envOr("INTERVIEWCAST_MCP_WORKDIR", filepath.Join(os.TempDir(), "interviewcast-mcp")),
		MaxRuns: 2,
		Base:    base,
	}
	if v, err := strconv.Atoi(os.Getenv("PORT")); err == nil && v > 0 {
		cfg.Port = v
	}
	if v, err := strconv.Atoi(os.Getenv("INTERVIEWCAST_MCP_MAX_RUNS")); err == nil && v > 0 {
		cfg.MaxRuns = v
	}
	return cfg
}

// Server is the MCP server for interview generation.
type Server struct {
	cfg      Config
	mcp      *server.MCPServer
	handlers *Handlers
	log      *slog.Logger
}

// New creates and configures the MCP server. Publishing and the
// get_interview/list_interviews tools are enabled when both a bucket and a
// table are configured.
func New(ctx context.Context, cfg Config, version string, logger *slog.Logger) (*Server, error) {
	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	var pub *publish.Publisher
	if cfg.Base.PublishBucket != "" && cfg.Base.PublishTable != "" {
		p, err := publish.NewFromConfig(ctx, cfg.Base.PublishBucket, cfg.Base.PublishTable, cfg.Base.PublishBaseURL, logger)
		if err != nil {
			return nil, err
		}
		pub = p
	} else {
		logger.Info("publishing disabled", "bucket", cfg.Base.PublishBucket, "table", cfg.Base.PublishTable)
	}

	handlers := NewHandlers(cfg, pub, logger)

	mcpServer := server.NewMCPServer(
		"interviewcast",
		version,
		server.WithToolCapabilities(true),
	)
	handlers.Register(mcpServer)

	return &Server{
		cfg:      cfg,
		mcp:      mcpServer,
		handlers: handlers,
		log:      logger,
	}, nil
}

// Start runs the HTTP MCP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.log.Info("starting MCP server", "addr", addr, "work_dir", s.cfg.WorkDir)

	httpServer := server.NewStreamableHTTPServer(s.mcp,
		server.WithStateLess(true),
	)
	return httpServer.Start(addr)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
