package entity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/tonelab/venue/config"
	storageutil "github.com/tonelab/venue/storage/util"
)

type placeholderStyle int

const (
	placeholderQuestion placeholderStyle = iota
	placeholderDollar
)

type SQLEntityStore struct {
	cfg         *config.SQLEntityStrategy
	db          *sql.DB
	table       string
	placeholder placeholderStyle
}

func NewSQLEntityStore(cfg *config.SQLEntityStrategy) (*SQLEntityStore, error) {
	store, err := newSQLEntityStoreWithDB(cfg, nil)
	if err != nil {
		return nil, err
	}

	driverName, err := resolveSQLDriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, err
	}

	store.db = db

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func newSQLEntityStoreWithDB(cfg *config.SQLEntityStrategy, db *sql.DB) (*SQLEntityStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("entities sql config is nil")
	}

	prefix := "venue"
	if cfg.TablePrefix != nil {
		prefix = *cfg.TablePrefix
	}

	placeholder, err := detectPlaceholderStyle(cfg.Driver)
	if err != nil {
		return nil, err
	}

	return &SQLEntityStore{
		cfg:         cfg,
		db:          db,
		table:       storageutil.DeriveTableName(prefix, "documents"),
		placeholder: placeholder,
	}, nil
}

func detectPlaceholderStyle(driver string) (placeholderStyle, error) {
	driverName, err := resolveSQLDriverName(driver)
	if err != nil {
		return placeholderQuestion, err
	}

	if driverName == "pgx" {
		return placeholderDollar, nil
	}

	return placeholderQuestion, nil
}

func resolveSQLDriverName(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "postgres":
		return "pgx", nil
	case "mysql":
		return "mysql", nil
	case "sqlite":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported sql driver %q", driver)
	}
}

func (s *SQLEntityStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, s.schemaQuery())
	return err
}

func (s *SQLEntityStore) schemaQuery() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
collection VARCHAR(64) NOT NULL,
id VARCHAR(64) NOT NULL,
sort_key VARCHAR(128) NOT NULL,
doc TEXT NOT NULL,
updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
PRIMARY KEY (collection, id)
)`, s.table)
}

func (s *SQLEntityStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLEntityStore) Insert(ctx context.Context, rec Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		// Rollback is safe to call after Commit; it will return sql.ErrTxDone
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Printf("unexpected error during transaction rollback in Insert: %v", rbErr)
		}
	}()

	exists, err := s.exists(ctx, tx, rec.Collection, rec.ID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s/%s", ErrConflict, rec.Collection, rec.ID)
	}

	if _, err := tx.ExecContext(ctx, s.insertQuery(), string(rec.Collection), rec.ID, rec.SortKey, string(rec.Doc)); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLEntityStore) Update(ctx context.Context, rec Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Printf("unexpected error during transaction rollback in Update: %v", rbErr)
		}
	}()

	res, err := tx.ExecContext(ctx, s.updateQuery(), rec.SortKey, string(rec.Doc), string(rec.Collection), rec.ID)
	if err != nil {
		return err
	}

	// MySQL reports zero affected rows when nothing changed, so confirm the row exists.
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		exists, err := s.exists(ctx, tx, rec.Collection, rec.ID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}

	return tx.Commit()
}

func (s *SQLEntityStore) Get(ctx context.Context, coll Collection, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, s.selectQuery(), string(coll), id)

	rec := Record{Collection: coll}
	var doc string
	if err := row.Scan(&rec.ID, &rec.SortKey, &doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rec.Doc = []byte(doc)

	return &rec, nil
}

func (s *SQLEntityStore) List(ctx context.Context, coll Collection) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, s.listQuery(), string(coll))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec := Record{Collection: coll}
		var doc string
		if err := rows.Scan(&rec.ID, &rec.SortKey, &doc); err != nil {
			return nil, err
		}
		rec.Doc = []byte(doc)
		out = append(out, rec)
	}

	return out, rows.Err()
}

func (s *SQLEntityStore) Delete(ctx context.Context, coll Collection, id string) error {
	res, err := s.db.ExecContext(ctx, s.deleteQuery(), string(coll), id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *SQLEntityStore) exists(ctx context.Context, tx *sql.Tx, coll Collection, id string) (bool, error) {
	var found int
	err := tx.QueryRowContext(ctx, s.existsQuery(), string(coll), id).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check existence: %w", err)
	}

	return true, nil
}

func (s *SQLEntityStore) insertQuery() string {
	return fmt.Sprintf(
		"INSERT INTO %s (collection, id, sort_key, doc, updated_at) VALUES (%s, %s, %s, %s, CURRENT_TIMESTAMP)",
		s.table,
		s.placeholderFor(1),
		s.placeholderFor(2),
		s.placeholderFor(3),
		s.placeholderFor(4),
	)
}

func (s *SQLEntityStore) updateQuery() string {
	return fmt.Sprintf(
		"UPDATE %s SET sort_key = %s, doc = %s, updated_at = CURRENT_TIMESTAMP WHERE collection = %s AND id = %s",
		s.table,
		s.placeholderFor(1),
		s.placeholderFor(2),
		s.placeholderFor(3),
		s.placeholderFor(4),
	)
}

func (s *SQLEntityStore) selectQuery() string {
	return fmt.Sprintf("SELECT id, sort_key, doc FROM %s WHERE collection = %s AND id = %s", s.table, s.placeholderFor(1), s.placeholderFor(2))
}

func (s *SQLEntityStore) listQuery() string {
	return fmt.Sprintf("SELECT id, sort_key, doc FROM %s WHERE collection = %s ORDER BY sort_key, id", s.table, s.placeholderFor(1))
}

func (s *SQLEntityStore) existsQuery() string {
	return fmt.Sprintf("SELECT 1 FROM %s WHERE collection = %s AND id = %s", s.table, s.placeholderFor(1), s.placeholderFor(2))
}

func (s *SQLEntityStore) deleteQuery() string {
	return fmt.Sprintf("DELETE FROM %s WHERE collection = %s AND id = %s", s.table, s.placeholderFor(1), s.placeholderFor(2))
}

func (s *SQLEntityStore) placeholderFor(index int) string {
	if s.placeholder == placeholderDollar {
		return fmt.Sprintf("$%d", index)
	}

	return "?"
}
