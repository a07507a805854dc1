package providers

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/brandlens/brandlens/internal/common"
	"github.com/brandlens/brandlens/internal/interfaces"
)

// Factory holds one adapter per configured engine. Engines without an API
// key are skipped at construction; requesting them returns ErrUnknownEngine.
type Factory struct {
	providers map[string]interfaces.SearchProvider
	logger    arbor.ILogger
}

// NewFactory builds adapters for every engine with credentials configured
func NewFactory(ctx context.Context, cfg *common.ProvidersConfig, timeout time.Duration, logger arbor.ILogger) (*Factory, error) {
	f := &Factory{
		providers: make(map[string]interfaces.SearchProvider),
		logger:    logger,
	}

	if cfg.OpenAI.APIKey != "" {
		p, err := NewOpenAIProvider(&cfg.OpenAI, timeout, logger)
		if err != nil {
			return nil, err
		}
		f.providers[p.Engine()] = p
	}
	if cfg.Gemini.APIKey != "" {
		p, err := NewGeminiProvider(ctx, &cfg.Gemini, timeout, logger)
		if err != nil {
			return nil, err
		}
		f.providers[p.Engine()] = p
	}
	if cfg.Claude.APIKey != "" {
		p, err := NewClaudeProvider(&cfg.Claude, timeout, logger)
		if err != nil {
			return nil, err
		}
		f.providers[p.Engine()] = p
	}

	if len(f.providers) == 0 {
		return nil, fmt.Errorf("no answer engines configured: at least one provider API key is required")
	}

	logger.Info().Strs("engines", f.Engines()).Msg("Answer engine adapters initialized")
	return f, nil
}

func (f *Factory) Provider(engine string) (interfaces.SearchProvider, error) {
	p, ok := f.providers[engine]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, engine)
	}
	return p, nil
}

func (f *Factory) Engines() []string {
	engines := make([]string, 0, len(f.providers))
	for engine := range f.providers {
		engines = append(engines, engine)
	}
	sort.Strings(engines)
	return engines
}
