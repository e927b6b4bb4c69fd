package entity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tonelab/venue/config"
	storageutil "github.com/tonelab/venue/storage/util"
)

// FilesystemEntityStore keeps each record as a JSON file at <path>/<collection>/<id>.json.
type FilesystemEntityStore struct {
	root *os.Root
	mu   sync.RWMutex // serializes writers against readers
}

type fileEnvelope struct {
	ID      string          `json:"id"`
	SortKey string          `json:"sortKey"`
	Doc     json.RawMessage `json:"doc"`
}

// NewFilesystemEntityStore creates the base directory and one subdirectory per collection.
func NewFilesystemEntityStore(cfg *config.FilesystemEntityStrategy) (*FilesystemEntityStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("filesystem entities config is nil")
	}

	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	root, err := os.OpenRoot(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open entity root %s: %w", cfg.Path, err)
	}

	for _, coll := range Collections {
		if err := root.MkdirAll(string(coll), 0755); err != nil {
			_ = root.Close()
			return nil, fmt.Errorf("failed to create collection directory %s: %w", coll, err)
		}
	}

	return &FilesystemEntityStore{root: root}, nil
}

func (s *FilesystemEntityStore) Close() error {
	return s.root.Close()
}

func (s *FilesystemEntityStore) Insert(ctx context.Context, rec Record) error {
	name, err := recordPath(rec.Collection, rec.ID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.root.Stat(name); err == nil {
		return fmt.Errorf("%w: %s/%s", ErrConflict, rec.Collection, rec.ID)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return s.write(name, rec)
}

func (s *FilesystemEntityStore) Update(ctx context.Context, rec Record) error {
	name, err := recordPath(rec.Collection, rec.ID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.root.Stat(name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}

	return s.write(name, rec)
}

func (s *FilesystemEntityStore) Get(ctx context.Context, coll Collection, id string) (*Record, error) {
	name, err := recordPath(coll, id)
	if err != nil {
		// An id that cannot name a file cannot have been stored.
		return nil, ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.read(coll, name)
}

func (s *FilesystemEntityStore) List(ctx context.Context, coll Collection) ([]Record, error) {
	if err := checkCollection(coll); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := fs.ReadDir(s.root.FS(), string(coll))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", coll, err)
	}

	out := []Record{}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".json" {
			continue
		}

		rec, err := s.read(coll, path.Join(string(coll), e.Name()))
		if err != nil {
			log.Printf("warning: skipping unreadable %s/%s: %v", coll, e.Name(), err)
			continue
		}
		out = append(out, *rec)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].SortKey != out[j].SortKey {
			return out[i].SortKey < out[j].SortKey
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

func (s *FilesystemEntityStore) Delete(ctx context.Context, coll Collection, id string) error {
	name, err := recordPath(coll, id)
	if err != nil {
		return ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.root.Remove(name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}

	return nil
}

func (s *FilesystemEntityStore) read(coll Collection, name string) (*Record, error) {
	data, err := s.root.ReadFile(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return decodeEnvelope(coll, name, data)
}

// write replaces name atomically through a temporary sibling file.
func (s *FilesystemEntityStore) write(name string, rec Record) error {
	data, err := json.Marshal(fileEnvelope{ID: rec.ID, SortKey: rec.SortKey, Doc: rec.Doc})
	if err != nil {
		return err
	}

	tmp := filepath.Join(filepath.Dir(name), ".tmp-"+uuid.NewString())
	if err := s.root.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	if err := s.root.Rename(tmp, name); err != nil {
		_ = s.root.Remove(tmp)
		return fmt.Errorf("failed to move %s into place: %w", name, err)
	}

	return nil
}

func checkCollection(coll Collection) error {
	for _, c := range Collections {
		if c == coll {
			return nil
		}
	}
	return fmt.Errorf("unknown collection %q", coll)
}

func recordPath(coll Collection, id string) (string, error) {
	if err := checkCollection(coll); err != nil {
		return "", err
	}

	if !storageutil.IsSafe(id) || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("invalid id %q", id)
	}

	return filepath.Join(string(coll), id+".json"), nil
}
