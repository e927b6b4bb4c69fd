// Package entity persists the venue's events and gallery entries. Every backend
// stores opaque JSON documents keyed by collection and id; typed access goes
// through Repository.
package entity

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates that no document exists under the requested id.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict indicates that a document with the same id already exists.
	ErrConflict = errors.New("entity already exists")

	// ErrInvalid wraps validation failures; the message names the offending fields.
	ErrInvalid = errors.New("invalid entity")
)

// Collection names a group of documents of one type.
type Collection string

const (
	CollectionEvents        Collection = "events"
	CollectionGalleryPhotos Collection = "gallery_photos"
	CollectionGalleryVideos Collection = "gallery_videos"
)

// Collections lists every collection a store must be able to hold.
var Collections = []Collection{CollectionEvents, CollectionGalleryPhotos, CollectionGalleryVideos}

// Record is one stored document. SortKey orders List results; ties fall back to ID.
type Record struct {
	Collection Collection
	ID         string
	SortKey    string
	Doc        []byte
}

type Store interface {
	// Insert stores a new record, returning ErrConflict when the id is taken.
	Insert(ctx context.Context, rec Record) error

	// Update replaces the sort key and document of an existing record, returning
	// ErrNotFound when it does not exist.
	Update(ctx context.Context, rec Record) error

	// Get returns a single record or ErrNotFound.
	Get(ctx context.Context, coll Collection, id string) (*Record, error)

	// List returns every record in coll ordered by sort key, then id. The slice is
	// never nil.
	List(ctx context.Context, coll Collection) ([]Record, error)

	// Delete removes a record, returning ErrNotFound when it does not exist.
	Delete(ctx context.Context, coll Collection, id string) error

	Close() error
}
