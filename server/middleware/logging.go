package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/tonelab/venue/server/util"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// RequestLogging attaches a request logger to the context and logs each completed request.
func RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rl := util.WithRequest(log.Default(), r, "")
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(util.ContextWithLogger(r.Context(), rl)))

		rl.Completed(rec.status, time.Since(start))
	})
}
