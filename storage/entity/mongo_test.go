package entity

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

func TestMongoDocumentRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := Record{Collection: CollectionEvents, ID: "e1", SortKey: "20250301", Doc: []byte(`{"title":"Show"}`)}

	doc := toMongoDocument(rec, now)
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if id := bson.Raw(raw).Lookup("_id").StringValue(); id != "e1" {
		t.Fatalf("expected _id e1, got %q", id)
	}

	var decoded mongoDocument
	if err := bson.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got := fromMongoDocument(CollectionEvents, decoded)
	if got.ID != rec.ID || got.SortKey != rec.SortKey || string(got.Doc) != string(rec.Doc) || got.Collection != rec.Collection {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestMongoUpdateFor(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	update := updateFor(Record{ID: "e1", SortKey: "k", Doc: []byte(`{}`)}, now)

	raw, err := bson.Marshal(update)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	set := bson.Raw(raw).Lookup("$set").Document()
	if set.Lookup("sortKey").StringValue() != "k" || set.Lookup("doc").StringValue() != "{}" {
		t.Fatalf("unexpected $set document: %s", set)
	}
	if set.Lookup("_id").Type != 0 {
		t.Fatalf("update must not rewrite _id")
	}
}

func TestMongoSortKeys(t *testing.T) {
	keys := sortIndexKeys()
	if len(keys) != 2 || keys[0].Key != "sortKey" || keys[1].Key != "_id" {
		t.Fatalf("unexpected sort keys: %v", keys)
	}
}

func TestNewMongoEntityStore_NilConfig(t *testing.T) {
	if _, err := NewMongoEntityStore(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
