package upload

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tonelab/venue/config"
	"github.com/tonelab/venue/media"
)

func serve(t *testing.T, h http.HandlerFunc, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/uploads/x", nil)
	req.SetPathValue("path", path)
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func staticError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.NotContains(t, body, "success")
	return body["error"].(string)
}

func TestServeUpload(t *testing.T) {
	st, dir := newUploadState(t, config.Credentials{}, nil)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "videos"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "poster.PNG"), pngBytes, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "videos", "clip.mp4"), []byte("mp4"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))

	h := HandleServeUpload(st)

	rr := serve(t, h, "poster.PNG")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	require.Equal(t, media.CacheControl, rr.Header().Get("Cache-Control"))
	require.Equal(t, pngBytes, rr.Body.Bytes())

	rr = serve(t, h, "videos/clip.mp4")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "video/mp4", rr.Header().Get("Content-Type"))

	rr = serve(t, h, "notes.txt")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/octet-stream", rr.Header().Get("Content-Type"))

	rr = serve(t, h, "missing.png")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "File not found", staticError(t, rr))

	rr = serve(t, h, "videos")
	require.Equal(t, http.StatusNotFound, rr.Code)

	require.Contains(t, scrape(t, st), `venue_served_files_total{result="ok"} 3`)
}

func TestServeUploadRejectsTraversal(t *testing.T) {
	st, _ := newUploadState(t, config.Credentials{}, nil)
	h := HandleServeUpload(st)

	for _, p := range []string{"../config.yml", "videos/../../etc/passwd", `..\secret`, "a/.."} {
		t.Run(p, func(t *testing.T) {
			rr := serve(t, h, p)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			require.Equal(t, "Invalid path", staticError(t, rr))
		})
	}
}
