package media

import (
	"context"
	"errors"
)

var (
	// ErrEmptyPayload is returned when an upload carries no bytes.
	ErrEmptyPayload = errors.New("empty payload")

	// ErrStorageWrite wraps local disk failures while persisting an upload.
	ErrStorageWrite = errors.New("storage write failed")

	// ErrRemoteUploadFailed wraps any failure reported by the remote asset host.
	ErrRemoteUploadFailed = errors.New("remote upload failed")

	// ErrInvalidPath is returned for read paths that could escape the storage root.
	ErrInvalidPath = errors.New("invalid path")

	// ErrNotFound is returned when a safe path does not name a stored file.
	ErrNotFound = errors.New("file not found")

	// ErrUnsupportedKind is returned for media kinds other than image and video.
	ErrUnsupportedKind = errors.New("unsupported media kind")
)

// Kind is the declared kind of an uploaded asset.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Valid reports whether k is a kind the pipeline accepts.
func (k Kind) Valid() bool {
	return k == KindImage || k == KindVideo
}

// DefaultExt is used when the uploaded filename carries no usable extension.
func (k Kind) DefaultExt() string {
	if k == KindVideo {
		return ".mp4"
	}
	return ".jpg"
}

// Backend names the store that accepted an upload.
type Backend string

const (
	BackendRemote Backend = "remote"
	BackendLocal  Backend = "local"
)

// RemoteStore uploads assets to a content host and returns their canonical https URL.
// Implementations never retry and never fall back to another store.
type RemoteStore interface {
	Upload(ctx context.Context, data []byte, kind Kind, contentType string) (string, error)
}

// LocalStore persists assets on local disk under a public URL prefix.
type LocalStore interface {
	// Save writes data and returns a root-relative URL such as /api/uploads/image-1-2.png.
	Save(ctx context.Context, data []byte, kind Kind, originalFilename string) (string, error)

	// Read returns the bytes stored under relPath, relative to the storage root.
	Read(ctx context.Context, relPath string) ([]byte, error)

	// Delete removes the file referenced by a URL previously returned from Save.
	Delete(ctx context.Context, url string) error

	// Owns reports whether url was produced by this store.
	Owns(url string) bool

	// Prefix is the root-relative URL prefix every Save result starts with.
	Prefix() string
}
