package pipeline

import (
	"context"
	"sync"

	"github.com/apresai/interviewcast/internal/config"
	"github.com/apresai/interviewcast/internal/script"
	"github.com/apresai/interviewcast/internal/video"
)

// lazyGenerator defers credential checks and client construction until a
// script actually has to be generated.
type lazyGenerator struct {
	cfg  config.Config
	once sync.Once
	gen  script.Generator
	err  error
}

func (l *lazyGenerator) Generate(ctx context.Context, narrative string, opts script.GenerateOptions) (string, error) {
	l.once.Do(func() {
		if l.err = l.cfg.RequireKey(l.cfg.ScriptBackend); l.err != nil {
			return
		}
		baseURL := ""
		if l.cfg.ScriptBackend == "openai" {
			baseURL = l.cfg.OpenAIBaseURL
		}
		l.gen, l.err = script.NewGenerator(ctx, l.cfg.ScriptBackend, script.GeneratorConfig{
			APIKey:  l.cfg.KeyFor(l.cfg.ScriptBackend),
			BaseURL: baseURL,
			Model:   l.cfg.TextModel,
		})
	})
	if l.err != nil {
		return "", l.err
	}
	return l.gen.Generate(ctx, narrative, opts)
}

func defaultRenderer() VideoRenderer {
	return video.NewRenderer("")
}
