//go:build testcontainers
// +build testcontainers

package integration

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tonelab/venue/config"
	"github.com/tonelab/venue/media"
	"github.com/tonelab/venue/server"
	"github.com/tonelab/venue/server/state"
	"github.com/tonelab/venue/storage/entity"
	storemedia "github.com/tonelab/venue/storage/media"
	"github.com/tonelab/venue/storage/media/filesystem"
)

const adminToken = "integration-token"

var pngData = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	URL     string          `json:"url"`
	Error   string          `json:"error"`
}

func baseConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.Server{
			AdminToken: adminToken,
			Limits:     config.ServerLimits{MaxPayloadSize: 1 << 20, MaxFileSize: 1 << 20, MaxMultipartMem: 1 << 20},
		},
		Media: config.Media{
			Strategy:        "cloudinary",
			Filesystem:      config.FilesystemMediaStrategy{Path: t.TempDir(), PublicPrefix: "/api/uploads"},
			CleanupOnDelete: true,
		},
	}
}

// newState wires the handlers the same way StartServer does, with the given stores.
func newState(t *testing.T, cfg *config.Config, remote storemedia.RemoteStore, store entity.Store) *state.VenueState {
	t.Helper()

	local, err := filesystem.NewFilesystemMediaStore(&cfg.Media.Filesystem)
	if err != nil {
		t.Fatalf("failed to create local media store: %v", err)
	}
	t.Cleanup(func() { _ = local.Close() })
	t.Cleanup(func() { _ = store.Close() })

	orch, err := media.NewOrchestrator(cfg.Media.Credentials, remote, local)
	if err != nil {
		t.Fatalf("failed to create orchestrator: %v", err)
	}

	return &state.VenueState{
		Cfg:           cfg,
		Orchestrator:  orch,
		StaticServer:  media.NewStaticServer(local),
		LocalStore:    local,
		EntityStore:   store,
		Events:        entity.NewEventRepository(store),
		GalleryPhotos: entity.NewGalleryPhotoRepository(store),
		GalleryVideos: entity.NewGalleryVideoRepository(store),
	}
}

func call(t *testing.T, h http.Handler, method, path, payload string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var req *http.Request
	if payload != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if method != http.MethodGet {
		req.Header.Set("Authorization", "Bearer "+adminToken)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func upload(t *testing.T, h http.Handler, path, field, filename string, data []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+adminToken)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid upload response %q: %v", rec.Body.String(), err)
	}
	return rec, env
}

// exerciseEntities runs a create, read, update, list and delete cycle through the router.
func exerciseEntities(t *testing.T, st *state.VenueState) {
	t.Helper()
	h := server.NewRouter(st)

	rec, env := call(t, h, http.MethodPost, "/api/events", `{"title":"Jazz Night","description":"Trio","date":"2026-12-05T21:00","imageUrl":"https://cdn.example.com/jazz.png"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create event: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var ev map[string]any
	if err := json.Unmarshal(env.Data, &ev); err != nil {
		t.Fatal(err)
	}
	id := ev["id"].(string)

	rec, _ = call(t, h, http.MethodPost, "/api/events", `{"title":"Opening","description":"Doors","date":"2026-12-01","imageUrl":"/api/uploads/open.png"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create second event: expected 201, got %d", rec.Code)
	}

	rec, env = call(t, h, http.MethodGet, "/api/events", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list events: expected 200, got %d", rec.Code)
	}
	var events []map[string]any
	if err := json.Unmarshal(env.Data, &events); err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[0]["title"] != "Opening" {
		t.Fatalf("expected events ordered by date, got %v", events)
	}

	rec, env = call(t, h, http.MethodPut, "/api/events/"+id, `{"ticketPrice":15}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update event: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec, env = call(t, h, http.MethodGet, "/api/events/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get event: expected 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(env.Data, &ev); err != nil {
		t.Fatal(err)
	}
	if ev["ticketPrice"] != 15.0 || ev["title"] != "Jazz Night" {
		t.Fatalf("unexpected event after update: %v", ev)
	}

	rec, _ = call(t, h, http.MethodDelete, "/api/events/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete event: expected 200, got %d", rec.Code)
	}

	rec, env = call(t, h, http.MethodGet, "/api/events/"+id, "")
	if rec.Code != http.StatusNotFound || env.Error != "Event not found" {
		t.Fatalf("expected event to be gone, got %d %q", rec.Code, env.Error)
	}

	rec, _ = call(t, h, http.MethodPost, "/api/gallery/videos", `{"youtubeUrl":"https://youtu.be/abc123","title":"Live","order":1}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create video: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}
