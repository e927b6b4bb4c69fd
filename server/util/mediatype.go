package util

import (
	"fmt"
	"mime"
	"net/http"
	"slices"

	"github.com/tonelab/venue/server/resp"
)

func RequireMultipart(w http.ResponseWriter, r *http.Request) bool {
	return requireValidContentType(w, r, []string{"multipart/form-data"})
}

func RequireJSON(w http.ResponseWriter, r *http.Request) bool {
	return requireValidContentType(w, r, []string{"application/json"})
}

func ExtractMediaType(w http.ResponseWriter, r *http.Request) (string, bool) {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		resp.WriteBadRequest(w, "Content-Type must be specified")
		return "", false
	}

	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		resp.WriteBadRequest(w, fmt.Errorf("Invalid Content-Type: %w", err).Error())
		return "", false
	}

	return mediaType, true
}

func requireValidContentType(w http.ResponseWriter, r *http.Request, valid []string) bool {
	mediaType, ok := ExtractMediaType(w, r)
	if !ok {
		return false
	}

	if !slices.Contains(valid, mediaType) {
		resp.WriteError(w, http.StatusUnsupportedMediaType, fmt.Sprintf("Invalid Content-Type: only %v allowed", valid))
		return false
	}

	return true
}
