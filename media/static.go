package media

import (
	"context"
	"path"
	"strings"

	storemedia "github.com/tonelab/venue/storage/media"
	storageutil "github.com/tonelab/venue/storage/util"
)

// CacheControl is sent with every served file. Stored names are never reused, so
// the bytes behind a URL never change.
const CacheControl = "public, max-age=31536000, immutable"

const defaultContentType = "application/octet-stream"

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
}

// StaticContent is a stored file ready to be written to a response.
type StaticContent struct {
	Data        []byte
	ContentType string
}

// StaticServer reads files written by the local store.
type StaticServer struct {
	local storemedia.LocalStore
}

func NewStaticServer(local storemedia.LocalStore) *StaticServer {
	return &StaticServer{local: local}
}

// Serve resolves a path relative to the upload root. The path check runs on the raw
// string before any filesystem access.
func (s *StaticServer) Serve(ctx context.Context, requested string) (*StaticContent, error) {
	if !storageutil.IsSafe(requested) {
		return nil, storemedia.ErrInvalidPath
	}

	data, err := s.local.Read(ctx, requested)
	if err != nil {
		return nil, err
	}

	return &StaticContent{Data: data, ContentType: ContentTypeFor(requested)}, nil
}

// ContentTypeFor maps a file name to its content type by extension, ignoring case.
func ContentTypeFor(name string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(name, `\`, "/")))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}

	return defaultContentType
}
