package upload

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tonelab/venue/media"
	"github.com/tonelab/venue/server/body"
	"github.com/tonelab/venue/server/handler/common"
	"github.com/tonelab/venue/server/metrics"
	"github.com/tonelab/venue/server/resp"
	"github.com/tonelab/venue/server/state"
	"github.com/tonelab/venue/server/util"
	storemedia "github.com/tonelab/venue/storage/media"
)

// HandleImageUpload accepts a multipart form with an "image" file.
func HandleImageUpload(st *state.VenueState) http.HandlerFunc {
	return handleUpload(st, storemedia.KindImage)
}

// HandleVideoUpload accepts a multipart form with a "video" file.
func HandleVideoUpload(st *state.VenueState) http.HandlerFunc {
	return handleUpload(st, storemedia.KindVideo)
}

func handleUpload(st *state.VenueState, kind storemedia.Kind) http.HandlerFunc {
	field := string(kind)
	label := strings.ToUpper(field[:1]) + field[1:]

	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reject := func(status int, msg string) {
			st.Metrics.RecordUpload(field, "", metrics.ResultRejected, 0, 0)
			resp.WriteError(w, status, msg)
		}

		if !util.RequireMultipart(w, r) {
			st.Metrics.RecordUpload(field, "", metrics.ResultRejected, 0, 0)
			return
		}

		parsed, file, err := body.ReadUpload(st.Cfg, w, r, field)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				reject(http.StatusRequestEntityTooLarge, fmt.Sprintf("%s file is too large", label))
				return
			}
			reject(http.StatusBadRequest, "Invalid multipart form")
			return
		}
		defer parsed.CloseFiles()

		if file == nil {
			if parsed.IsOversized(field) {
				reject(http.StatusRequestEntityTooLarge, fmt.Sprintf("%s file is too large", label))
				return
			}
			reject(http.StatusBadRequest, fmt.Sprintf("No %s file provided", field))
			return
		}

		data, err := file.ReadAll()
		if err != nil {
			st.Metrics.RecordUpload(field, "", metrics.ResultError, 0, 0)
			common.LogAndWriteError(w, r, "read "+field+" upload", err)
			return
		}
		if len(data) == 0 {
			reject(http.StatusBadRequest, fmt.Sprintf("%s file is empty", label))
			return
		}

		ref, err := st.Orchestrator.Store(r.Context(), media.UploadRequest{
			Data:     data,
			Kind:     kind,
			Filename: file.Filename(),
		})
		backend := string(st.Orchestrator.Backend())
		if err != nil {
			st.Metrics.RecordUpload(field, backend, metrics.ResultError, time.Since(start), len(data))
			common.LogAndWriteError(w, r, "upload "+field, err)
			return
		}

		st.Metrics.RecordUpload(field, string(ref.Backend), metrics.ResultOK, time.Since(start), len(data))
		resp.WriteUploaded(w, ref.URL)
	}
}
