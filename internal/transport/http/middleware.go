package httpx

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/bcrosbie/noose/internal/logging"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

// withRequestLog logs one line per request and turns handler panics into 500s.
func withRequestLog(log *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w}
		defer func() {
			if recovered := recover(); recovered != nil {
				log.Error().
					Str("path", r.URL.Path).
					Interface("panic", recovered).
					Str("stack", string(debug.Stack())).
					Msg("panic recovered")
				if recorder.status == 0 {
					writeJSON(recorder, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
				}
			}

			event := log.Debug()
			if recorder.status >= http.StatusBadRequest {
				event = log.Warn()
			}
			event.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", recorder.status).
				Int("bytes", recorder.bytes).
				Dur("duration", time.Since(started)).
				Msg("http request")
		}()
		next.ServeHTTP(recorder, r)
	})
}
