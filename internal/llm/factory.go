package llm

import (
	"strings"

	"servicedesk/internal/config"
	sderrors "servicedesk/internal/errors"
	"servicedesk/internal/logging"
)

// Factory resolves a Client per pipeline node, applying per-request overrides
// on top of configured defaults. When no credential can be resolved for a
// remote provider it hands out the deterministic fallback client instead of
// a client that is guaranteed to fail.
type Factory struct {
	cfg    *config.Config
	logger logging.Logger
}

// NewFactory builds a client factory over the loaded configuration.
func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logging.NewComponentLogger("LLMFactory"),
	}
}

// ClientFor returns the completion client for the given node type.
func (f *Factory) ClientFor(node config.NodeType, override Override) Client {
	provider := strings.ToLower(override.Provider)
	if provider == "" {
		provider = strings.ToLower(f.cfg.Provider)
	}

	model := override.Model
	if model == "" {
		model = f.cfg.ModelFor(provider, node)
	}

	apiKey := override.APIKey
	if apiKey == "" {
		apiKey = f.cfg.APIKey(provider)
	}

	if apiKey == "" && provider != "local" {
		f.logger.Debug("no credential for provider %s, using deterministic fallback for %s", provider, node)
		return NewFallbackClient()
	}

	client := NewOpenAIClient(Config{
		Provider: provider,
		Model:    model,
		APIKey:   apiKey,
		BaseURL:  baseURLFor(provider, f.cfg.LocalBaseURL),
	})
	return NewRetryClient(client, sderrors.DefaultRetryConfig())
}
