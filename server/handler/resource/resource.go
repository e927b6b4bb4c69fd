// Package resource serves the JSON collection routes for events and gallery entries.
package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tonelab/venue/server/body"
	"github.com/tonelab/venue/server/handler/common"
	"github.com/tonelab/venue/server/resp"
	"github.com/tonelab/venue/server/state"
	"github.com/tonelab/venue/storage/entity"
)

// Repository is the part of entity.Repository the handlers use.
type Repository[T any] interface {
	Create(ctx context.Context, v *T) (*T, error)
	Get(ctx context.Context, id string) (*T, error)
	List(ctx context.Context) ([]*T, error)
	Update(ctx context.Context, id string, apply func(*T) error) (*T, error)
	Delete(ctx context.Context, id string) (*T, error)
}

// Resource binds a repository to its route handlers.
type Resource[T any] struct {
	Repo Repository[T]

	// Subject names one entity in messages, e.g. "event" or "gallery photo".
	Subject string

	// Patch applies a PUT body to the stored entity.
	Patch func(v *T, raw []byte) error

	// MediaURLs lists the stored files an entity references; nil when it has none.
	MediaURLs func(v *T) []string
}

func (res *Resource[T]) notFoundSubject() string {
	if res.Subject == "" {
		return "Entity"
	}
	return strings.ToUpper(res.Subject[:1]) + res.Subject[1:]
}

func (res *Resource[T]) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	common.LogAndWriteEntityError(w, r, op+" "+res.Subject, res.notFoundSubject(), err)
}

func (res *Resource[T]) List(st *state.VenueState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := res.Repo.List(r.Context())
		if err != nil {
			res.fail(w, r, "fetch", err)
			return
		}

		resp.WriteOK(w, items)
	}
}

func (res *Resource[T]) Get(st *state.VenueState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := res.Repo.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			res.fail(w, r, "fetch", err)
			return
		}

		resp.WriteOK(w, item)
	}
}

func (res *Resource[T]) Create(st *state.VenueState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := body.ReadJSONObject(st.Cfg, w, r)
		if !ok {
			return
		}

		v := new(T)
		if err := json.Unmarshal(raw, v); err != nil {
			res.fail(w, r, "create", fmt.Errorf("%w: %w", entity.ErrInvalid, err))
			return
		}

		created, err := res.Repo.Create(r.Context(), v)
		if err != nil {
			res.fail(w, r, "create", err)
			return
		}

		resp.WriteCreated(w, created)
	}
}

func (res *Resource[T]) Update(st *state.VenueState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := body.ReadJSONObject(st.Cfg, w, r)
		if !ok {
			return
		}

		patch := res.Patch
		if patch == nil {
			patch = func(v *T, raw []byte) error { return json.Unmarshal(raw, v) }
		}

		updated, err := res.Repo.Update(r.Context(), r.PathValue("id"), func(v *T) error {
			return patch(v, raw)
		})
		if err != nil {
			res.fail(w, r, "update", err)
			return
		}

		resp.WriteOK(w, updated)
	}
}

// Delete removes the entity. When cleanup on delete is enabled, local files it
// referenced are released afterwards; a failed release is logged and does not
// fail the request.
func (res *Resource[T]) Delete(st *state.VenueState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deleted, err := res.Repo.Delete(r.Context(), r.PathValue("id"))
		if err != nil {
			res.fail(w, r, "delete", err)
			return
		}

		if st.CleanupOnDelete() && res.MediaURLs != nil && st.Orchestrator != nil {
			if err := st.Orchestrator.Release(r.Context(), res.MediaURLs(deleted)...); err != nil {
				common.LogRequestError(r, "release "+res.Subject+" media", err)
			}
		}

		resp.WriteOK(w, deleted)
	}
}
