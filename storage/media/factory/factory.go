package factory

import (
	"fmt"
	"sync"

	"github.com/tonelab/venue/config"
	"github.com/tonelab/venue/storage/media"
	"github.com/tonelab/venue/storage/media/cloudinary"
	"github.com/tonelab/venue/storage/media/s3"
)

// Factory builds a remote media store for the provided media config.
type Factory func(*config.Media) (media.RemoteStore, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register adds or replaces a remote media store factory for the given strategy name.
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

// Create builds a remote media store using the registered factory for the configured strategy.
func Create(cfg *config.Media) (media.RemoteStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("media config is nil")
	}

	if f, ok := Get(cfg.Strategy); ok {
		return f(cfg)
	}

	return nil, fmt.Errorf("unknown media strategy %q", cfg.Strategy)
}

func init() {
	Register("cloudinary", func(cfg *config.Media) (media.RemoteStore, error) {
		return cloudinary.NewCloudinaryMediaStore(cfg)
	})
	Register("s3", func(cfg *config.Media) (media.RemoteStore, error) {
		return s3.NewS3MediaStore(cfg)
	})
}
