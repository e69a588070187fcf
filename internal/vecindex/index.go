package vecindex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/filegpt/filegpt/internal/config"
)

// Metadata travels with every chunk vector; Text is what retrieval hands
// back for context assembly.
type Metadata struct {
	Text  string
	Chunk int
}

type Vector struct {
	ID       string
	Values   []float32
	Metadata Metadata
}

type Match struct {
	ID       string
	Score    float32
	Metadata Metadata
}

// Manager is the nearest-neighbor index used for document chunks. One index
// (or table) per document; EnsureIndex is idempotent and DeleteIndex is only
// called from the file deletion cascade.
type Manager interface {
	Dimension() int
	EnsureIndex(ctx context.Context, name string) error
	Upsert(ctx context.Context, indexName string, vectors []Vector) error
	Query(ctx context.Context, indexName string, vector []float32, topK int) ([]Match, error)
	DeleteIndex(ctx context.Context, name string) error
}

type Factory func(args interface{}, dim int) (Manager, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(cfg config.VectorConfig, dim int) (Manager, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if key == "" {
		return nil, fmt.Errorf("vector.provider is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported vector provider: %s", cfg.Provider)
	}
	return factory(cfg.Data, dim)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("vector provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode vector provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode vector provider config: %w", err)
	}
	return nil
}
