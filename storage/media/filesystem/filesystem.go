package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tonelab/venue/config"
	"github.com/tonelab/venue/storage/media"
	storageutil "github.com/tonelab/venue/storage/util"
)

const (
	tmpPrefix        = ".tmp-"
	maxNameAttempts  = 5
	randomSuffixSpan = 1_000_000_000
)

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// StoreImpl stores uploaded media files in a local directory. All file access goes
// through an os.Root so no request can reach outside the base directory.
type StoreImpl struct {
	root     *os.Root
	basePath string
	prefix   string
	patterns map[media.Kind]*storageutil.PathPattern
	now      func() time.Time
	random   func() string
}

// NewFilesystemMediaStore creates a new filesystem-based media store.
func NewFilesystemMediaStore(cfg *config.FilesystemMediaStrategy) (*StoreImpl, error) {
	if cfg == nil {
		return nil, fmt.Errorf("filesystem media config is nil")
	}

	patterns := map[media.Kind]*storageutil.PathPattern{
		media.KindImage: storageutil.DefaultImagePattern(),
		media.KindVideo: storageutil.DefaultVideoPattern(),
	}
	if cfg.ImagePattern != "" {
		patterns[media.KindImage] = storageutil.NewPathPattern(cfg.ImagePattern)
	}
	if cfg.VideoPattern != "" {
		patterns[media.KindVideo] = storageutil.NewPathPattern(cfg.VideoPattern)
	}
	for kind, p := range patterns {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("invalid %s pattern: %w", kind, err)
		}
	}

	// Ensure base path exists
	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	root, err := os.OpenRoot(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage root %s: %w", cfg.Path, err)
	}

	return &StoreImpl{
		root:     root,
		basePath: cfg.Path,
		prefix:   storageutil.NormalizePrefix(cfg.PublicPrefix),
		patterns: patterns,
		now:      time.Now,
		random:   randomSuffix,
	}, nil
}

func randomSuffix() string {
	return strconv.FormatUint(rand.Uint64N(randomSuffixSpan), 10)
}

// Close releases the storage root handle.
func (s *StoreImpl) Close() error {
	return s.root.Close()
}

// Prefix returns the public URL prefix served for this store.
func (s *StoreImpl) Prefix() string {
	return s.prefix
}

// Save writes data under a freshly generated name and returns its root-relative URL.
// The URL is only returned once the file is complete at its final path.
func (s *StoreImpl) Save(ctx context.Context, data []byte, kind media.Kind, originalFilename string) (string, error) {
	if len(data) == 0 {
		return "", media.ErrEmptyPayload
	}

	if !kind.Valid() {
		return "", fmt.Errorf("%w: unsupported media kind %q", media.ErrStorageWrite, kind)
	}

	ext := extensionFor(originalFilename, kind)

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		relPath, err := s.patterns[kind].Generate(string(kind), s.now(), s.random(), ext)
		if err != nil {
			return "", fmt.Errorf("%w: %w", media.ErrStorageWrite, err)
		}

		// Names are unique with high probability; retry on the rare clash.
		if _, err := s.root.Stat(filepath.FromSlash(relPath)); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: failed to stat %s: %w", media.ErrStorageWrite, relPath, err)
		}

		if err := s.writeAtomic(relPath, data); err != nil {
			return "", fmt.Errorf("%w: %w", media.ErrStorageWrite, err)
		}

		return s.prefix + "/" + relPath, nil
	}

	return "", fmt.Errorf("%w: could not generate a unique filename", media.ErrStorageWrite)
}

// writeAtomic writes to a hidden temporary file in the target directory and renames
// it into place, so readers never observe a partial file.
func (s *StoreImpl) writeAtomic(relPath string, data []byte) error {
	dir := path.Dir(relPath)
	if dir != "." {
		// MkdirAll succeeds when a concurrent upload already created the directory.
		if err := s.root.MkdirAll(filepath.FromSlash(dir), 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	tmpPath := filepath.FromSlash(path.Join(dir, tmpPrefix+uuid.NewString()))
	f, err := s.root.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = s.root.Remove(tmpPath)
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = s.root.Remove(tmpPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = s.root.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := s.root.Rename(tmpPath, filepath.FromSlash(relPath)); err != nil {
		_ = s.root.Remove(tmpPath)
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	return nil
}

// Read returns the contents of a stored file. relPath is relative to the storage
// root and uses forward slashes.
func (s *StoreImpl) Read(ctx context.Context, relPath string) ([]byte, error) {
	if !storageutil.IsSafe(relPath) {
		return nil, media.ErrInvalidPath
	}

	clean := path.Clean(strings.TrimPrefix(strings.ReplaceAll(relPath, `\`, "/"), "/"))
	if clean == "." || strings.HasPrefix(path.Base(clean), tmpPrefix) {
		return nil, media.ErrNotFound
	}

	name := filepath.FromSlash(clean)
	info, err := s.root.Stat(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, media.ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if info.IsDir() {
		return nil, media.ErrNotFound
	}

	data, err := s.root.ReadFile(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, media.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return data, nil
}

// Owns reports whether url lives under this store's public prefix.
func (s *StoreImpl) Owns(url string) bool {
	return strings.HasPrefix(url, s.prefix+"/")
}

// Delete removes a media file from the filesystem. Missing files are not an error.
func (s *StoreImpl) Delete(ctx context.Context, url string) error {
	if !s.Owns(url) {
		return fmt.Errorf("url %q does not match public prefix %q", url, s.prefix)
	}

	relPath := strings.TrimPrefix(url, s.prefix+"/")
	if !storageutil.IsSafe(relPath) {
		return media.ErrInvalidPath
	}

	if err := s.root.Remove(filepath.FromSlash(path.Clean(relPath))); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to remove file: %w", err)
	}

	return nil
}

// extensionFor keeps the uploaded file's extension when it looks like one, and
// falls back to the kind's default otherwise.
func extensionFor(filename string, kind media.Kind) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	ext := strings.ToLower(path.Ext(base))
	if !extPattern.MatchString(ext) {
		return kind.DefaultExt()
	}

	return ext
}
