package common

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tonelab/venue/server/resp"
	"github.com/tonelab/venue/server/util"
	"github.com/tonelab/venue/storage/entity"
	storemedia "github.com/tonelab/venue/storage/media"
)

// LogAndWriteError logs an error with request context and maps known conditions to client responses.
func LogAndWriteError(w http.ResponseWriter, r *http.Request, op string, err error) {
	LogRequestError(r, op, err)

	switch {
	case errors.Is(err, storemedia.ErrEmptyPayload),
		errors.Is(err, storemedia.ErrUnsupportedKind),
		errors.Is(err, storemedia.ErrInvalidPath):
		resp.WriteBadRequest(w, err.Error())
	case errors.Is(err, entity.ErrInvalid):
		resp.WriteBadRequest(w, trimSentinel(err, entity.ErrInvalid))
	case errors.Is(err, entity.ErrConflict):
		resp.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, entity.ErrNotFound), errors.Is(err, storemedia.ErrNotFound):
		resp.WriteNotFound(w, "not found")
	case errors.Is(err, storemedia.ErrRemoteUploadFailed), errors.Is(err, storemedia.ErrStorageWrite):
		resp.WriteInternalServerError(w, err.Error())
	default:
		resp.WriteInternalServerError(w, "Failed to "+op)
	}
}

// LogAndWriteEntityError is LogAndWriteError with a subject specific not found message,
// e.g. "Event not found".
func LogAndWriteEntityError(w http.ResponseWriter, r *http.Request, op, subject string, err error) {
	if errors.Is(err, entity.ErrNotFound) {
		LogRequestError(r, op, err)
		resp.WriteNotFound(w, subject+" not found")
		return
	}
	LogAndWriteError(w, r, op, err)
}

// LogRequestError logs err with the request context without writing a response.
func LogRequestError(r *http.Request, op string, err error) {
	util.FromRequest(r).Errorf("%s failed: %v", op, err)
}

func trimSentinel(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error())
	msg = strings.TrimPrefix(msg, ": ")
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}
