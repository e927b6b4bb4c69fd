package entity

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	cloudflare "github.com/cloudflare/cloudflare-go/v6"
	cfd1 "github.com/cloudflare/cloudflare-go/v6/d1"
	"github.com/cloudflare/cloudflare-go/v6/option"

	"github.com/tonelab/venue/config"
	storageutil "github.com/tonelab/venue/storage/util"
)

// D1EntityStore implements Store using Cloudflare D1 via the HTTP API.
// It mirrors the schema of SQLEntityStore to keep parity across backends.
type D1EntityStore struct {
	cfg    *config.D1EntityStrategy
	client *cloudflare.Client
	table  string
}

// NewD1EntityStore builds a store and ensures the schema exists.
func NewD1EntityStore(cfg *config.D1EntityStrategy) (*D1EntityStore, error) {
	return newD1EntityStoreWithClient(cfg, nil)
}

// newD1EntityStoreWithClient creates a D1 store with a custom HTTP client.
// The httpClient parameter is used for testing; pass nil for production use.
func newD1EntityStoreWithClient(cfg *config.D1EntityStrategy, httpClient *http.Client) (*D1EntityStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("d1 entities config is nil")
	}

	prefix := "venue"
	if cfg.TablePrefix != "" {
		prefix = cfg.TablePrefix
	}

	store := &D1EntityStore{
		cfg:    cfg,
		client: buildD1Client(cfg, httpClient),
		table:  storageutil.DeriveTableName(prefix, "documents"),
	}

	if err := store.initSchema(context.Background()); err != nil {
		return nil, err
	}

	return store, nil
}

// buildD1Client creates a Cloudflare client configured with API token and optional custom endpoint.
func buildD1Client(cfg *config.D1EntityStrategy, httpClient *http.Client) *cloudflare.Client {
	opts := []option.RequestOption{option.WithAPIToken(strings.TrimSpace(cfg.APIToken))}

	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	if base := strings.TrimSpace(cfg.Endpoint); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}

	return cloudflare.NewClient(opts...)
}

// initSchema ensures the documents table exists in the D1 database.
// This also serves as a health check, validating connectivity and authentication.
func (s *D1EntityStore) initSchema(ctx context.Context) error {
	if _, err := s.executeQuery(ctx, s.schemaQuery(), nil); err != nil {
		return fmt.Errorf("d1 initialization failed (check account_id, database_id, and api_token): %w", err)
	}
	return nil
}

func (s *D1EntityStore) schemaQuery() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
collection TEXT NOT NULL,
id TEXT NOT NULL,
sort_key TEXT NOT NULL,
doc TEXT NOT NULL,
updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
PRIMARY KEY (collection, id)
)`, s.table)
}

func (s *D1EntityStore) insertQuery() string {
	return fmt.Sprintf("INSERT INTO %s (collection, id, sort_key, doc, updated_at) VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)", s.table)
}

func (s *D1EntityStore) updateQuery() string {
	return fmt.Sprintf("UPDATE %s SET sort_key = ?, doc = ?, updated_at = CURRENT_TIMESTAMP WHERE collection = ? AND id = ?", s.table)
}

func (s *D1EntityStore) selectQuery() string {
	return fmt.Sprintf("SELECT id, sort_key, doc FROM %s WHERE collection = ? AND id = ? LIMIT 1", s.table)
}

func (s *D1EntityStore) listQuery() string {
	return fmt.Sprintf("SELECT id, sort_key, doc FROM %s WHERE collection = ? ORDER BY sort_key, id", s.table)
}

func (s *D1EntityStore) existsQuery() string {
	return fmt.Sprintf("SELECT 1 FROM %s WHERE collection = ? AND id = ? LIMIT 1", s.table)
}

func (s *D1EntityStore) deleteQuery() string {
	return fmt.Sprintf("DELETE FROM %s WHERE collection = ? AND id = ?", s.table)
}

func (s *D1EntityStore) Close() error { return nil }

func (s *D1EntityStore) Insert(ctx context.Context, rec Record) error {
	exists, err := s.exists(ctx, rec.Collection, rec.ID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s/%s", ErrConflict, rec.Collection, rec.ID)
	}

	_, err = s.executeQuery(ctx, s.insertQuery(), []any{string(rec.Collection), rec.ID, rec.SortKey, string(rec.Doc)})
	return err
}

func (s *D1EntityStore) Update(ctx context.Context, rec Record) error {
	exists, err := s.exists(ctx, rec.Collection, rec.ID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	_, err = s.executeQuery(ctx, s.updateQuery(), []any{rec.SortKey, string(rec.Doc), string(rec.Collection), rec.ID})
	return err
}

func (s *D1EntityStore) Get(ctx context.Context, coll Collection, id string) (*Record, error) {
	rows, err := s.executeQuery(ctx, s.selectQuery(), []any{string(coll), id})
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	return recordFromRow(coll, rows[0])
}

func (s *D1EntityStore) List(ctx context.Context, coll Collection) ([]Record, error) {
	rows, err := s.executeQuery(ctx, s.listQuery(), []any{string(coll)})
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := recordFromRow(coll, row)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}

	return out, nil
}

func (s *D1EntityStore) Delete(ctx context.Context, coll Collection, id string) error {
	exists, err := s.exists(ctx, coll, id)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	_, err = s.executeQuery(ctx, s.deleteQuery(), []any{string(coll), id})
	return err
}

func (s *D1EntityStore) exists(ctx context.Context, coll Collection, id string) (bool, error) {
	rows, err := s.executeQuery(ctx, s.existsQuery(), []any{string(coll), id})
	if err != nil {
		return false, err
	}

	return len(rows) > 0, nil
}

func recordFromRow(coll Collection, row map[string]any) (*Record, error) {
	id, _ := row["id"].(string)
	sortKey, _ := row["sort_key"].(string)
	doc, ok := row["doc"].(string)
	if !ok || doc == "" || id == "" {
		return nil, fmt.Errorf("d1 row is missing id or doc column")
	}

	return &Record{Collection: coll, ID: id, SortKey: sortKey, Doc: []byte(doc)}, nil
}

// executeQuery sends a SQL query to the D1 database and returns the result rows.
// Returns nil rows (no error) when the query succeeds but produces no results.
func (s *D1EntityStore) executeQuery(ctx context.Context, sql string, params []any) ([]map[string]any, error) {
	body := cfd1.DatabaseQueryParamsBodyD1SingleQuery{Sql: cloudflare.F(sql)}
	if len(params) > 0 {
		body.Params = cloudflare.F(convertParams(params))
	}

	resp, err := s.client.D1.Database.Query(ctx, s.cfg.DatabaseID, cfd1.DatabaseQueryParams{
		AccountID: cloudflare.F(strings.TrimSpace(s.cfg.AccountID)),
		Body:      body,
	})
	if err != nil {
		return nil, err
	}

	if resp == nil || len(resp.Result) == 0 {
		return nil, nil
	}

	result := resp.Result[0]
	if !result.Success {
		return nil, fmt.Errorf("d1 query execution failed")
	}

	rows := make([]map[string]any, 0, len(result.Results))
	for _, r := range result.Results {
		m, ok := r.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unexpected row type %T", r)
		}
		rows = append(rows, m)
	}

	return rows, nil
}

// convertParams converts query parameters to D1's string-based parameter format.
// Booleans are converted to "1" (true) or "0" (false); all other types use Sprint.
func convertParams(params []any) []string {
	if len(params) == 0 {
		return nil
	}

	out := make([]string, 0, len(params))
	for _, p := range params {
		switch v := p.(type) {
		case bool:
			if v {
				out = append(out, "1")
			} else {
				out = append(out, "0")
			}
		default:
			out = append(out, fmt.Sprint(p))
		}
	}

	return out
}
