package vector

import (
	"fmt"

	"github.com/jungtaeinn/open-persona/pkg/config"
)

// NewFromConfig builds a vector store provider from configuration.
func NewFromConfig(cfg *config.VectorStoreConfig) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("vector store config is required")
	}

	switch cfg.Backend {
	case "chromem", "":
		return NewChromemProvider(ChromemConfig{
			PersistPath: cfg.Path,
		})
	case "qdrant":
		return NewQdrantProvider(QdrantConfig{
			Host:   cfg.Host,
			Port:   cfg.Port,
			APIKey: cfg.APIKey,
			UseTLS: cfg.UseTLS,
		})
	default:
		return nil, fmt.Errorf("unsupported vector store backend: %s", cfg.Backend)
	}
}
