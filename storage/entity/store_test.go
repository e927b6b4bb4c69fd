package entity

import (
	"context"
	"errors"
	"testing"
)

// exerciseStore runs the behaviour every Store implementation shares.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	recs := []Record{
		{Collection: CollectionEvents, ID: "b", SortKey: "20250102", Doc: []byte(`{"id":"b"}`)},
		{Collection: CollectionEvents, ID: "a", SortKey: "20250103", Doc: []byte(`{"id":"a"}`)},
		{Collection: CollectionEvents, ID: "c", SortKey: "20250102", Doc: []byte(`{"id":"c"}`)},
		{Collection: CollectionGalleryPhotos, ID: "a", SortKey: "0000000001", Doc: []byte(`{"id":"a","photo":true}`)},
	}
	for _, rec := range recs {
		if err := store.Insert(ctx, rec); err != nil {
			t.Fatalf("insert %s/%s: %v", rec.Collection, rec.ID, err)
		}
	}

	if err := store.Insert(ctx, recs[0]); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate insert, got %v", err)
	}

	got, err := store.Get(ctx, CollectionEvents, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got.Doc) != `{"id":"a"}` || got.SortKey != "20250103" || got.Collection != CollectionEvents {
		t.Fatalf("unexpected record: %+v", got)
	}

	photo, err := store.Get(ctx, CollectionGalleryPhotos, "a")
	if err != nil {
		t.Fatalf("get photo: %v", err)
	}
	if string(photo.Doc) != `{"id":"a","photo":true}` {
		t.Fatalf("collections are not isolated: %s", photo.Doc)
	}

	if _, err := store.Get(ctx, CollectionEvents, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, err := store.List(ctx, CollectionEvents)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var order []string
	for _, r := range list {
		order = append(order, r.ID)
	}
	if len(order) != 3 || order[0] != "b" || order[1] != "c" || order[2] != "a" {
		t.Fatalf("unexpected list order: %v", order)
	}

	empty, err := store.List(ctx, CollectionGalleryVideos)
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}

	updated := Record{Collection: CollectionEvents, ID: "a", SortKey: "20250101", Doc: []byte(`{"id":"a","v":2}`)}
	if err := store.Update(ctx, updated); err != nil {
		t.Fatalf("update: %v", err)
	}

	list, err = store.List(ctx, CollectionEvents)
	if err != nil {
		t.Fatalf("list after update: %v", err)
	}
	if list[0].ID != "a" || string(list[0].Doc) != `{"id":"a","v":2}` {
		t.Fatalf("update not reflected in ordering: %+v", list[0])
	}

	if err := store.Update(ctx, Record{Collection: CollectionEvents, ID: "missing", SortKey: "x", Doc: []byte(`{}`)}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}

	if err := store.Delete(ctx, CollectionEvents, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, CollectionEvents, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := store.Get(ctx, CollectionGalleryPhotos, "a"); err != nil {
		t.Fatalf("delete crossed collections: %v", err)
	}
}
