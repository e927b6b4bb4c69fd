package util

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type loggerKeyType struct{}

var loggerKey = loggerKeyType{}

// Logger is satisfied by *log.Logger.
type Logger interface {
	Printf(format string, v ...any)
}

// RequestLogger prefixes every line with the request id, method, path and, once the
// admin token has been checked, the acting principal.
type RequestLogger struct {
	logger Logger
	id     string
	method string
	path   string
	user   string
}

// WithRequest starts a logger for r under a fresh request id.
func WithRequest(l Logger, r *http.Request, user string) *RequestLogger {
	return &RequestLogger{
		logger: l,
		id:     uuid.NewString()[:8],
		method: r.Method,
		path:   r.URL.Path,
		user:   user,
	}
}

// WithUser returns a copy that also logs user, keeping the request id.
func (rl *RequestLogger) WithUser(user string) *RequestLogger {
	cp := *rl
	cp.user = user
	return &cp
}

// ID is the short request id shared by every line of one request.
func (rl *RequestLogger) ID() string {
	return rl.id
}

func ContextWithLogger(ctx context.Context, rl *RequestLogger) context.Context {
	return context.WithValue(ctx, loggerKey, rl)
}

func (rl *RequestLogger) logf(level string, message string) {
	prefix := fmt.Sprintf("%s req=%s method=%s path=%s", level, rl.id, rl.method, rl.path)
	if rl.user != "" {
		prefix += " user=" + rl.user
	}
	rl.logger.Printf("%s: %s", prefix, message)
}

func (rl *RequestLogger) Infof(format string, v ...any)  { rl.logf("INFO", fmt.Sprintf(format, v...)) }
func (rl *RequestLogger) Errorf(format string, v ...any) { rl.logf("ERROR", fmt.Sprintf(format, v...)) }

// Completed logs the final status and latency of a request.
func (rl *RequestLogger) Completed(status int, elapsed time.Duration) {
	level := "INFO"
	if status >= http.StatusInternalServerError {
		level = "ERROR"
	}
	rl.logf(level, fmt.Sprintf("status=%d duration=%s", status, elapsed.Round(time.Microsecond)))
}

// FromContext returns the logger stored by ContextWithLogger, or nil.
func FromContext(ctx context.Context) *RequestLogger {
	if ctx == nil {
		return nil
	}

	if rl, ok := ctx.Value(loggerKey).(*RequestLogger); ok {
		return rl
	}

	return nil
}

// FromRequest returns the request's logger, falling back to one on the standard logger
// for handlers mounted outside RequestLogging.
func FromRequest(r *http.Request) *RequestLogger {
	if rl := FromContext(r.Context()); rl != nil {
		return rl
	}
	return WithRequest(log.Default(), r, "")
}
