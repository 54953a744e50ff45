package llms

import (
	"fmt"

	"github.com/jungtaeinn/open-persona/pkg/config"
	"github.com/jungtaeinn/open-persona/pkg/registry"
)

// ProviderRegistry holds the configured LLM providers by name.
type ProviderRegistry struct {
	*registry.BaseRegistry[Provider]
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		BaseRegistry: registry.NewBaseRegistry[Provider](),
	}
}

func (r *ProviderRegistry) RegisterProvider(name string, provider Provider) error {
	if name == "" {
		return fmt.Errorf("provider name cannot be empty")
	}
	if provider == nil {
		return fmt.Errorf("provider cannot be nil")
	}
	return r.Register(name, provider)
}

// CreateFromConfig builds and registers a provider from configuration.
func (r *ProviderRegistry) CreateFromConfig(name string, cfg *config.LLMConfig) (Provider, error) {
	if name == "" {
		return nil, fmt.Errorf("provider name cannot be empty")
	}
	if cfg == nil {
		return nil, fmt.Errorf("provider config cannot be nil")
	}

	var provider Provider
	var err error

	switch cfg.Provider {
	case config.LLMProviderOpenAI, config.LLMProviderOpenAICompatible:
		provider, err = NewOpenAIProviderFromConfig(cfg)
	case config.LLMProviderAnthropic:
		provider, err = NewAnthropicProviderFromConfig(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s (supported: openai, anthropic, openai-compatible)", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	if err := r.RegisterProvider(name, provider); err != nil {
		return nil, fmt.Errorf("failed to register provider: %w", err)
	}

	return provider, nil
}

// GetProvider returns the provider registered under name.
func (r *ProviderRegistry) GetProvider(name string) (Provider, error) {
	provider, exists := r.Get(name)
	if !exists {
		return nil, fmt.Errorf("provider '%s' not found", name)
	}
	return provider, nil
}

// CloseAll closes every registered provider.
func (r *ProviderRegistry) CloseAll() error {
	var firstErr error
	for _, provider := range r.List() {
		if err := provider.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
