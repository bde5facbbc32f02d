// Package publish uploads finished interviews to S3 and records them in
// DynamoDB.
package publish

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/oklog/ulid/v2"

	"github.com/apresai/interviewcast/internal/config"
	"github.com/apresai/interviewcast/internal/script"
)

// Artifacts are the local outputs of one run.
type Artifacts struct {
	Title         string
	ScriptPath    string
	AudioPath     string
	VideoPath     string // optional
	SubtitlePath  string // optional
	Duration      string
	Dialogue      script.Dialogue
	ScriptBackend string
	TTSProvider   string
}

// Publisher uploads artifacts and writes the metadata record.
type Publisher struct {
	storage *Storage
	store   *Store
	log     *slog.Logger
	now     func() time.Time
}

// New wires a Publisher from pre-built storage and store.
func New(storage *Storage, store *Store, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{storage: storage, store: store, log: logger, now: time.Now}
}

// NewFromConfig builds S3 and DynamoDB clients from the default AWS config.
func NewFromConfig(ctx context.Context, bucket, table, baseURL string, logger *slog.Logger) (*Publisher, error) {
	if bucket == "" || table == "" {
		return nil, fmt.Errorf("publishing needs both a bucket and a table (INTERVIEWCAST_PUBLISH_BUCKET, INTERVIEWCAST_PUBLISH_TABLE)")
	}
	awsCfg, err := config.AWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	return New(
		NewStorage(s3.NewFromConfig(awsCfg), bucket, baseURL),
		NewStore(dynamodb.NewFromConfig(awsCfg), table),
		logger,
	), nil
}

// NewID generates a ULID for a new interview.
func NewID(t time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(t), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate ulid: %w", err)
	}
	return id.String(), nil
}

// Store exposes the metadata store for lookups.
func (p *Publisher) Store() *Store { return p.store }

// Publish uploads every present artifact under interviews/<id>/ and records
// the interview.
func (p *Publisher) Publish(ctx context.Context, a Artifacts) (*InterviewItem, error) {
	if a.AudioPath == "" {
		return nil, fmt.Errorf("nothing to publish: no audio")
	}
	now := p.now().UTC()
	id, err := NewID(now)
	if err != nil {
		return nil, err
	}
	prefix := "interviews/" + id + "/"

	counts := a.Dialogue.Counts()
	item := InterviewItem{
		InterviewID:      id,
		Title:            a.Title,
		Duration:         a.Duration,
		Lines:            len(a.Dialogue),
		InterviewerLines: counts[script.Interviewer],
		ExpertLines:      counts[script.Expert],
		ScriptBackend:    a.ScriptBackend,
		TTSProvider:      a.TTSProvider,
		CreatedAt:        now.Format(time.RFC3339),
	}

	uploads := []struct {
		path     string
		key, url *string
	}{
		{a.AudioPath, &item.AudioKey, &item.AudioURL},
		{a.ScriptPath, &item.ScriptKey, &item.ScriptURL},
		{a.VideoPath, &item.VideoKey, &item.VideoURL},
		{a.SubtitlePath, &item.SubtitleKey, &item.SubtitleURL},
	}
	for _, u := range uploads {
		if u.path == "" {
			continue
		}
		if _, err := os.Stat(u.path); err != nil {
			if u.path == a.AudioPath {
				return nil, fmt.Errorf("audio: %w", err)
			}
			p.log.WarnContext(ctx, "skipping missing artifact", "path", u.path)
			continue
		}
		key := prefix + filepath.Base(u.path)
		url, err := p.storage.Upload(ctx, key, u.path)
		if err != nil {
			return nil, err
		}
		*u.key, *u.url = key, url
		p.log.InfoContext(ctx, "uploaded artifact", "key", key)
	}

	if info, err := os.Stat(a.AudioPath); err == nil {
		item.FileSizeMB = float64(info.Size()) / (1024 * 1024)
	}

	if err := p.store.Put(ctx, item); err != nil {
		return nil, err
	}
	p.log.InfoContext(ctx, "published interview", "interview_id", id)
	return &item, nil
}
