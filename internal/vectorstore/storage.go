// Package vectorstore selects a namespaced vector store implementation.
package vectorstore

import (
	"fmt"
	"os"
	"time"

	"policyqa/internal/config"
	"policyqa/internal/domain"
	"policyqa/internal/vectorstore/memory"
	"policyqa/internal/vectorstore/qdrant"
)

// New builds a vector store from configuration. Supported types are
// "memory" and "qdrant".
func New(cfg config.VectorStoreConfig, dimension int) (domain.VectorStore, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.NewStorage(dimension), nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:              cfg.Qdrant.URL,
			APIKey:           os.Getenv(cfg.Qdrant.APIKeyEnv),
			CollectionPrefix: cfg.Qdrant.CollectionPrefix,
			Dimension:        dimension,
			Timeout:          time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}
