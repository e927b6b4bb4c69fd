package entity

import (
	"context"
	"database/sql/driver"
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/tonelab/venue/config"
)

func TestSQLEntityStore_SQLite(t *testing.T) {
	cfg := &config.SQLEntityStrategy{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "venue.db")}
	store, err := NewSQLEntityStore(cfg)
	if err != nil {
		t.Fatalf("NewSQLEntityStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	exerciseStore(t, store)
}

func TestSQLEntityStore_InsertAndGet_PostgresPlaceholders(t *testing.T) {
	store, mock := newSQLTestStore(t, "postgres", nil)
	ctx := context.Background()

	if !strings.Contains(store.insertQuery(), "$4") || !strings.Contains(store.selectQuery(), "$2") {
		t.Fatalf("expected dollar placeholders: %s", store.insertQuery())
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(store.existsQuery())).
		WithArgs("events", "e1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectExec(regexp.QuoteMeta(store.insertQuery())).
		WithArgs("events", "e1", "20250101", jsonContains(`"title":"Show"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	rec := Record{Collection: CollectionEvents, ID: "e1", SortKey: "20250101", Doc: []byte(`{"title":"Show"}`)}
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta(store.selectQuery())).
		WithArgs("events", "e1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "sort_key", "doc"}).AddRow("e1", "20250101", `{"title":"Show"}`))

	got, err := store.Get(ctx, CollectionEvents, "e1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.ID != "e1" || string(got.Doc) != `{"title":"Show"}` {
		t.Fatalf("unexpected record: %+v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLEntityStore_InsertConflict(t *testing.T) {
	store, mock := newSQLTestStore(t, "mysql", nil)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(store.existsQuery())).
		WithArgs("events", "e1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectRollback()

	err := store.Insert(context.Background(), Record{Collection: CollectionEvents, ID: "e1", Doc: []byte(`{}`)})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLEntityStore_Update_MySQLUnchangedRow(t *testing.T) {
	store, mock := newSQLTestStore(t, "mysql", nil)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(store.updateQuery())).
		WithArgs("k", `{"a":1}`, "events", "e1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(store.existsQuery())).
		WithArgs("events", "e1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectCommit()

	if err := store.Update(context.Background(), Record{Collection: CollectionEvents, ID: "e1", SortKey: "k", Doc: []byte(`{"a":1}`)}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLEntityStore_Update_NotFound(t *testing.T) {
	store, mock := newSQLTestStore(t, "postgres", nil)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(store.updateQuery())).
		WithArgs("k", `{}`, "events", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(store.existsQuery())).
		WithArgs("events", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectRollback()

	err := store.Update(context.Background(), Record{Collection: CollectionEvents, ID: "missing", SortKey: "k", Doc: []byte(`{}`)})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLEntityStore_ListAndDelete(t *testing.T) {
	store, mock := newSQLTestStore(t, "postgres", nil)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(store.listQuery())).
		WithArgs("gallery_photos").
		WillReturnRows(sqlmock.NewRows([]string{"id", "sort_key", "doc"}).
			AddRow("p1", "0000000000-1", `{"id":"p1"}`).
			AddRow("p2", "0000000001-1", `{"id":"p2"}`))

	list, err := store.List(ctx, CollectionGalleryPhotos)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "p1" || list[1].Collection != CollectionGalleryPhotos {
		t.Fatalf("unexpected list: %+v", list)
	}

	mock.ExpectExec(regexp.QuoteMeta(store.deleteQuery())).
		WithArgs("gallery_photos", "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(store.deleteQuery())).
		WithArgs("gallery_photos", "p1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Delete(ctx, CollectionGalleryPhotos, "p1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := store.Delete(ctx, CollectionGalleryPhotos, "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLEntityStore_GetNotFound(t *testing.T) {
	store, mock := newSQLTestStore(t, "postgres", nil)

	mock.ExpectQuery(regexp.QuoteMeta(store.selectQuery())).
		WithArgs("events", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "sort_key", "doc"}))

	if _, err := store.Get(context.Background(), CollectionEvents, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNewSQLEntityStore_InvalidDriver(t *testing.T) {
	cfg := &config.SQLEntityStrategy{Driver: "invalid", DSN: "ignored"}
	if _, err := NewSQLEntityStore(cfg); err == nil {
		t.Fatalf("expected error for invalid driver")
	}
}

func TestNewSQLEntityStore_TablePrefix(t *testing.T) {
	shared := "shared"
	empty := ""

	cases := []struct {
		prefix *string
		want   string
	}{
		{nil, "venue_documents"},
		{&shared, "shared_documents"},
		{&empty, "documents"},
	}

	for _, tc := range cases {
		store, err := newSQLEntityStoreWithDB(&config.SQLEntityStrategy{Driver: "sqlite", DSN: "ignored", TablePrefix: tc.prefix}, nil)
		if err != nil {
			t.Fatalf("store setup failed: %v", err)
		}
		if store.table != tc.want {
			t.Fatalf("expected table %s, got %s", tc.want, store.table)
		}
	}
}

func TestResolveSQLDriverName(t *testing.T) {
	cases := map[string]string{"postgres": "pgx", "MySQL": "mysql", "sqlite": "sqlite"}
	for in, want := range cases {
		got, err := resolveSQLDriverName(in)
		if err != nil || got != want {
			t.Fatalf("resolveSQLDriverName(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
}

func newSQLTestStore(t *testing.T, driver string, prefix *string) (*SQLEntityStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.SQLEntityStrategy{Driver: driver, DSN: "ignored", TablePrefix: prefix}
	store, err := newSQLEntityStoreWithDB(cfg, db)
	if err != nil {
		t.Fatalf("store setup: %v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta(store.schemaQuery())).WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.initSchema(context.Background()); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	return store, mock
}

type jsonContains string

func (m jsonContains) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && strings.Contains(s, string(m))
}
