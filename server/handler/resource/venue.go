package resource

import (
	"encoding/json"

	"github.com/tonelab/venue/media"
	"github.com/tonelab/venue/storage/entity"
)

func Events(repo Repository[entity.Event]) *Resource[entity.Event] {
	return &Resource[entity.Event]{
		Repo:    repo,
		Subject: "event",
		MediaURLs: func(e *entity.Event) []string {
			return media.URLs(e.Media)
		},
	}
}

type photoPatch struct {
	Description *string `json:"description"`
	Order       *int    `json:"order"`
}

// GalleryPhotos allows only the description and order of a photo to change.
func GalleryPhotos(repo Repository[entity.GalleryPhoto]) *Resource[entity.GalleryPhoto] {
	return &Resource[entity.GalleryPhoto]{
		Repo:    repo,
		Subject: "gallery photo",
		Patch: func(p *entity.GalleryPhoto, raw []byte) error {
			var patch photoPatch
			if err := json.Unmarshal(raw, &patch); err != nil {
				return err
			}
			if patch.Description != nil {
				p.Description = *patch.Description
			}
			if patch.Order != nil {
				p.Order = *patch.Order
			}
			return nil
		},
		MediaURLs: func(p *entity.GalleryPhoto) []string {
			return []string{p.ImageURL}
		},
	}
}

type videoPatch struct {
	Title *string `json:"title"`
	Order *int    `json:"order"`
}

// GalleryVideos allows only the title and order of a video to change.
func GalleryVideos(repo Repository[entity.GalleryVideo]) *Resource[entity.GalleryVideo] {
	return &Resource[entity.GalleryVideo]{
		Repo:    repo,
		Subject: "gallery video",
		Patch: func(v *entity.GalleryVideo, raw []byte) error {
			var patch videoPatch
			if err := json.Unmarshal(raw, &patch); err != nil {
				return err
			}
			if patch.Title != nil {
				v.Title = *patch.Title
			}
			if patch.Order != nil {
				v.Order = *patch.Order
			}
			return nil
		},
	}
}
