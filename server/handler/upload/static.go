package upload

import (
	"errors"
	"net/http"

	"github.com/tonelab/venue/media"
	"github.com/tonelab/venue/server/handler/common"
	"github.com/tonelab/venue/server/metrics"
	"github.com/tonelab/venue/server/resp"
	"github.com/tonelab/venue/server/state"
	storemedia "github.com/tonelab/venue/storage/media"
)

// HandleServeUpload serves GET /api/uploads/{path...} from local storage.
func HandleServeUpload(st *state.VenueState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		content, err := st.StaticServer.Serve(r.Context(), r.PathValue("path"))
		switch {
		case err == nil:
			st.Metrics.RecordServed(metrics.ResultOK)
			resp.WriteFile(w, content.Data, content.ContentType, media.CacheControl)
		case errors.Is(err, storemedia.ErrInvalidPath):
			st.Metrics.RecordServed(metrics.ResultInvalid)
			resp.WriteStaticError(w, http.StatusBadRequest, "Invalid path")
		case errors.Is(err, storemedia.ErrNotFound):
			st.Metrics.RecordServed(metrics.ResultMissing)
			resp.WriteStaticError(w, http.StatusNotFound, "File not found")
		default:
			st.Metrics.RecordServed(metrics.ResultError)
			common.LogRequestError(r, "serve upload", err)
			resp.WriteStaticError(w, http.StatusInternalServerError, "Failed to serve file")
		}
	}
}
