package factory

import (
	"fmt"
	"sync"

	"github.com/tonelab/venue/config"
	"github.com/tonelab/venue/storage/entity"
)

// Factory builds an entity store for the provided entities config.
type Factory func(*config.Entities) (entity.Store, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register adds or replaces an entity store factory for the given strategy name.
func Register(strategy string, factory Factory) {
	mu.Lock()
	registry[strategy] = factory
	mu.Unlock()
}

// Get retrieves a factory for the given strategy.
func Get(strategy string) (Factory, bool) {
	mu.RLock()
	f, ok := registry[strategy]
	mu.RUnlock()
	return f, ok
}

// Create builds an entity store using the registered factory for the configured strategy.
func Create(cfg *config.Entities) (entity.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("entities config is nil")
	}

	f, ok := Get(cfg.Strategy)
	if !ok {
		return nil, fmt.Errorf("unknown entities strategy %q", cfg.Strategy)
	}
	return f(cfg)
}

func init() {
	Register("sql", func(cfg *config.Entities) (entity.Store, error) {
		return entity.NewSQLEntityStore(cfg.SQL)
	})

	Register("d1", func(cfg *config.Entities) (entity.Store, error) {
		return entity.NewD1EntityStore(cfg.D1)
	})

	Register("mongo", func(cfg *config.Entities) (entity.Store, error) {
		return entity.NewMongoEntityStore(cfg.Mongo)
	})

	Register("filesystem", func(cfg *config.Entities) (entity.Store, error) {
		return entity.NewFilesystemEntityStore(cfg.Filesystem)
	})

	Register("git", func(cfg *config.Entities) (entity.Store, error) {
		return entity.NewGitEntityStore(cfg.Git)
	})
}
