package state

import (
	"github.com/tonelab/venue/config"
	"github.com/tonelab/venue/media"
	"github.com/tonelab/venue/server/metrics"
	"github.com/tonelab/venue/storage/entity"
	storemedia "github.com/tonelab/venue/storage/media"
)

// VenueState is shared by every handler for the lifetime of the server.
type VenueState struct {
	Cfg           *config.Config
	Orchestrator  *media.Orchestrator
	StaticServer  *media.StaticServer
	LocalStore    storemedia.LocalStore
	EntityStore   entity.Store
	Events        *entity.EventRepository
	GalleryPhotos *entity.GalleryPhotoRepository
	GalleryVideos *entity.GalleryVideoRepository
	Metrics       *metrics.Metrics
}

// CleanupOnDelete reports whether deleting an entity releases the local files it referenced.
func (st *VenueState) CleanupOnDelete() bool {
	return st.Cfg != nil && st.Cfg.Media.CleanupOnDelete
}
