package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tonelab/venue/config"
	"github.com/tonelab/venue/media"
	"github.com/tonelab/venue/server/handler/resource"
	"github.com/tonelab/venue/server/handler/upload"
	"github.com/tonelab/venue/server/metrics"
	"github.com/tonelab/venue/server/middleware"
	"github.com/tonelab/venue/server/state"
	"github.com/tonelab/venue/storage/entity"
	entityfactory "github.com/tonelab/venue/storage/entity/factory"
	storemedia "github.com/tonelab/venue/storage/media"
	mediafactory "github.com/tonelab/venue/storage/media/factory"
	"github.com/tonelab/venue/storage/media/filesystem"
)

const shutdownTimeout = 10 * time.Second

// StartServer wires the stores, serves HTTP until SIGINT or SIGTERM and then shuts down gracefully.
func StartServer(cfg *config.Config) error {
	st, err := initializeState(cfg)
	if err != nil {
		return err
	}
	defer cleanup(st)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bindAddress := fmt.Sprintf("%v:%v", cfg.Server.Address, cfg.Server.Port)
	srv := &http.Server{
		Addr:              bindAddress,
		Handler:           NewRouter(st),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("serving http requests on %q (media backend: %s)", bindAddress, st.Orchestrator.Backend())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}

// NewRouter registers every route on a fresh mux wrapped in request logging.
func NewRouter(st *state.VenueState) http.Handler {
	cfg := st.Cfg
	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireAdmin(cfg, h)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/upload-image", admin(upload.HandleImageUpload(st)))
	mux.Handle("POST /api/upload-video", admin(upload.HandleVideoUpload(st)))
	mux.Handle("GET "+staticRoute(st.LocalStore.Prefix()), upload.HandleServeUpload(st))

	events := resource.Events(st.Events)
	mux.Handle("GET /api/events", events.List(st))
	mux.Handle("POST /api/events", admin(events.Create(st)))
	mux.Handle("GET /api/events/{id}", events.Get(st))
	mux.Handle("PUT /api/events/{id}", admin(events.Update(st)))
	mux.Handle("DELETE /api/events/{id}", admin(events.Delete(st)))

	photos := resource.GalleryPhotos(st.GalleryPhotos)
	mux.Handle("GET /api/gallery/photos", photos.List(st))
	mux.Handle("POST /api/gallery/photos", admin(photos.Create(st)))
	mux.Handle("GET /api/gallery/photos/{id}", photos.Get(st))
	mux.Handle("PUT /api/gallery/photos/{id}", admin(photos.Update(st)))
	mux.Handle("DELETE /api/gallery/photos/{id}", admin(photos.Delete(st)))

	videos := resource.GalleryVideos(st.GalleryVideos)
	mux.Handle("GET /api/gallery/videos", videos.List(st))
	mux.Handle("POST /api/gallery/videos", admin(videos.Create(st)))
	mux.Handle("GET /api/gallery/videos/{id}", videos.Get(st))
	mux.Handle("PUT /api/gallery/videos/{id}", admin(videos.Update(st)))
	mux.Handle("DELETE /api/gallery/videos/{id}", admin(videos.Delete(st)))

	if cfg.Metrics.Enabled && st.Metrics != nil {
		mux.Handle("GET "+cfg.Metrics.Path, st.Metrics.Handler())
	}

	return middleware.RequestLogging(mux)
}

// staticRoute mounts the upload server where the local store's URLs point.
func staticRoute(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/{path...}"
}

func initializeState(cfg *config.Config) (*state.VenueState, error) {
	local, err := initializeLocalStore(&cfg.Media.Filesystem)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local media store: %w", err)
	}

	remote, err := initializeMediaStore(&cfg.Media)
	if err != nil {
		_ = local.Close()
		return nil, fmt.Errorf("failed to initialize remote media store: %w", err)
	}

	orch, err := media.NewOrchestrator(cfg.Media.Credentials, remote, local)
	if err != nil {
		_ = local.Close()
		return nil, err
	}

	store, err := initializeEntityStore(&cfg.Entities)
	if err != nil {
		_ = local.Close()
		return nil, fmt.Errorf("failed to initialize entity store: %w", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		if m, err = metrics.New(); err != nil {
			_ = local.Close()
			_ = store.Close()
			return nil, err
		}
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
		Metrics:       m,
	}, nil
}

func initializeLocalStore(cfg *config.FilesystemMediaStrategy) (*filesystem.StoreImpl, error) {
	return filesystem.NewFilesystemMediaStore(cfg)
}

// initializeMediaStore builds the remote store only when real credentials are configured.
// A nil store means uploads go to local disk.
func initializeMediaStore(cfg *config.Media) (storemedia.RemoteStore, error) {
	if !cfg.Credentials.Configured() {
		log.Printf("remote media credentials not configured (%+v); storing uploads locally", cfg.Credentials.Redacted())
		return nil, nil
	}

	return mediafactory.Create(cfg)
}

func initializeEntityStore(cfg *config.Entities) (entity.Store, error) {
	return entityfactory.Create(cfg)
}

func cleanup(st *state.VenueState) {
	if st == nil {
		return
	}

	if st.EntityStore != nil {
		if err := st.EntityStore.Close(); err != nil {
			log.Printf("error closing entity store: %v", err)
		}
	}

	if closer, ok := st.LocalStore.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Printf("error closing local media store: %v", err)
		}
	}
}
