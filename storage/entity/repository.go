package entity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Repository gives typed access to one collection of a Store.
type Repository[T any, P interface {
	*T
	document
}] struct {
	store    Store
	coll     Collection
	validate *validator.Validate
	now      func() time.Time
	newID    func() string
}

type (
	EventRepository        = Repository[Event, *Event]
	GalleryPhotoRepository = Repository[GalleryPhoto, *GalleryPhoto]
	GalleryVideoRepository = Repository[GalleryVideo, *GalleryVideo]
)

func newRepository[T any, P interface {
	*T
	document
}](store Store, coll Collection) *Repository[T, P] {
	return &Repository[T, P]{
		store:    store,
		coll:     coll,
		validate: newValidator(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

func NewEventRepository(store Store) *EventRepository {
	return newRepository[Event](store, CollectionEvents)
}

func NewGalleryPhotoRepository(store Store) *GalleryPhotoRepository {
	return newRepository[GalleryPhoto](store, CollectionGalleryPhotos)
}

func NewGalleryVideoRepository(store Store) *GalleryVideoRepository {
	return newRepository[GalleryVideo](store, CollectionGalleryVideos)
}

// Create assigns v a fresh id and timestamps, validates it and stores it.
func (r *Repository[T, P]) Create(ctx context.Context, v *T) (*T, error) {
	p := P(v)
	now := r.now()
	p.stamp(r.newID(), now, now)
	p.prepare()

	if err := p.check(r.validate); err != nil {
		return nil, err
	}

	rec, err := r.record(p)
	if err != nil {
		return nil, err
	}

	if err := r.store.Insert(ctx, rec); err != nil {
		return nil, err
	}

	return v, nil
}

func (r *Repository[T, P]) Get(ctx context.Context, id string) (*T, error) {
	rec, err := r.store.Get(ctx, r.coll, id)
	if err != nil {
		return nil, err
	}

	return r.decode(rec)
}

func (r *Repository[T, P]) List(ctx context.Context) ([]*T, error) {
	recs, err := r.store.List(ctx, r.coll)
	if err != nil {
		return nil, err
	}

	out := make([]*T, 0, len(recs))
	for i := range recs {
		v, err := r.decode(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	return out, nil
}

// Update loads the entity, lets apply modify it, then validates and stores the
// result. The id and creation time cannot be changed by apply.
func (r *Repository[T, P]) Update(ctx context.Context, id string, apply func(*T) error) (*T, error) {
	v, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	p := P(v)
	created := p.created()

	if err := apply(v); err != nil {
		if errors.Is(err, ErrInvalid) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	p.stamp(id, created, r.now())
	p.prepare()

	if err := p.check(r.validate); err != nil {
		return nil, err
	}

	rec, err := r.record(p)
	if err != nil {
		return nil, err
	}

	if err := r.store.Update(ctx, rec); err != nil {
		return nil, err
	}

	return v, nil
}

// Delete removes the entity and returns it as it was stored.
func (r *Repository[T, P]) Delete(ctx context.Context, id string) (*T, error) {
	v, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.store.Delete(ctx, r.coll, id); err != nil {
		return nil, err
	}

	return v, nil
}

func (r *Repository[T, P]) record(p P) (Record, error) {
	doc, err := json.Marshal(p)
	if err != nil {
		return Record{}, fmt.Errorf("failed to encode %s document: %w", r.coll, err)
	}

	return Record{Collection: r.coll, ID: p.key(), SortKey: p.sortKey(), Doc: doc}, nil
}

func (r *Repository[T, P]) decode(rec *Record) (*T, error) {
	v := new(T)
	if err := json.Unmarshal(rec.Doc, v); err != nil {
		return nil, fmt.Errorf("failed to decode %s document %s: %w", r.coll, rec.ID, err)
	}

	return v, nil
}
