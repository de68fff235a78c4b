package daemon

import (
	"net/http"
	"time"
)

// responseRecorder wraps http.ResponseWriter to capture the status code.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rr *responseRecorder) WriteHeader(code int) {
	rr.statusCode = code
	rr.ResponseWriter.WriteHeader(code)
}

// applyMiddleware wraps the mux with the middleware chain, outermost
// first.
func (d *Daemon) applyMiddleware(mux http.Handler) http.Handler {
	handler := jsonContentType(mux)
	handler = d.requestLogger(handler)
	return handler
}

// requestLogger logs method, path, status code, and duration per request.
func (d *Daemon) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rr := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rr, r)
		d.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rr.statusCode).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// jsonContentType sets the Content-Type header for all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
