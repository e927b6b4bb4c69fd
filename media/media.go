// Package media routes uploads to the remote asset host or local disk, resolves
// stored local files back into bytes, and models the media attached to entities.
package media

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/tonelab/venue/config"
	storemedia "github.com/tonelab/venue/storage/media"
)

// UploadRequest is one uploaded file. Filename is client supplied and untrusted.
type UploadRequest struct {
	Data     []byte
	Kind     storemedia.Kind
	Filename string
}

// StoredAssetReference is what callers persist inside events and gallery entries.
type StoredAssetReference struct {
	URL     string             `json:"url"`
	Backend storemedia.Backend `json:"backend"`
}

// Orchestrator picks the backend for each upload. The choice is made once, from the
// credentials given at construction.
type Orchestrator struct {
	remote   storemedia.RemoteStore
	local    storemedia.LocalStore
	eligible bool
}

// NewOrchestrator evaluates creds and wires the stores. When the credentials are
// configured a remote store is mandatory; otherwise remote is ignored and every
// upload lands on local disk.
func NewOrchestrator(creds config.Credentials, remote storemedia.RemoteStore, local storemedia.LocalStore) (*Orchestrator, error) {
	if local == nil {
		return nil, fmt.Errorf("local media store is required")
	}

	eligible := creds.Configured()
	if eligible && remote == nil {
		return nil, fmt.Errorf("remote media credentials are configured but no remote store was provided")
	}

	if !eligible {
		remote = nil
	}

	return &Orchestrator{remote: remote, local: local, eligible: eligible}, nil
}

// Backend reports which store uploads are sent to.
func (o *Orchestrator) Backend() storemedia.Backend {
	if o.eligible {
		return storemedia.BackendRemote
	}
	return storemedia.BackendLocal
}

// Store persists one upload. It performs exactly one remote call or one local write,
// and a remote failure is returned as is rather than retried locally.
func (o *Orchestrator) Store(ctx context.Context, req UploadRequest) (*StoredAssetReference, error) {
	if len(req.Data) == 0 {
		return nil, storemedia.ErrEmptyPayload
	}

	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", storemedia.ErrUnsupportedKind, req.Kind)
	}

	if o.eligible {
		return o.storeRemote(ctx, req)
	}

	return o.storeLocal(ctx, req)
}

func (o *Orchestrator) storeRemote(ctx context.Context, req UploadRequest) (*StoredAssetReference, error) {
	remoteURL, err := o.remote.Upload(ctx, req.Data, req.Kind, DetectContentType(req.Data))
	if err != nil {
		if !errors.Is(err, storemedia.ErrRemoteUploadFailed) {
			err = fmt.Errorf("%w: %w", storemedia.ErrRemoteUploadFailed, err)
		}
		return nil, err
	}

	if parsed, perr := url.Parse(remoteURL); perr != nil || parsed.Scheme != "https" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: remote store returned non-https url %q", storemedia.ErrRemoteUploadFailed, remoteURL)
	}

	return &StoredAssetReference{URL: remoteURL, Backend: storemedia.BackendRemote}, nil
}

func (o *Orchestrator) storeLocal(ctx context.Context, req UploadRequest) (*StoredAssetReference, error) {
	localURL, err := o.local.Save(ctx, req.Data, req.Kind, req.Filename)
	if err != nil {
		if !errors.Is(err, storemedia.ErrStorageWrite) && !errors.Is(err, storemedia.ErrEmptyPayload) && ctx.Err() == nil {
			err = fmt.Errorf("%w: %w", storemedia.ErrStorageWrite, err)
		}
		return nil, err
	}

	if !strings.HasPrefix(localURL, "/") {
		return nil, fmt.Errorf("%w: local store returned malformed path %q", storemedia.ErrStorageWrite, localURL)
	}

	return &StoredAssetReference{URL: localURL, Backend: storemedia.BackendLocal}, nil
}

// Release deletes local blobs referenced by urls. Remote URLs and empty strings are
// skipped; remote assets are managed on the host.
func (o *Orchestrator) Release(ctx context.Context, urls ...string) error {
	var errs []error
	for _, u := range urls {
		if u == "" || !o.local.Owns(u) {
			continue
		}

		if err := o.local.Delete(ctx, u); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", u, err))
			continue
		}
		log.Printf("released local media %s", u)
	}

	return errors.Join(errs...)
}

// DetectContentType sniffs the MIME type of data, without parameters.
func DetectContentType(data []byte) string {
	ct, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	return strings.TrimSpace(ct)
}
