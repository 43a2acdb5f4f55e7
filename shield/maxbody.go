package shield

import "net/http"

// MaxBody returns middleware that caps the request body at maxBytes. A
// request whose declared Content-Length already exceeds the cap is answered
// by tooLarge without reading the body; otherwise reads past the cap fail
// with *http.MaxBytesError. A nil tooLarge replies with a plain 413.
func MaxBody(maxBytes int64, tooLarge http.Handler) func(http.Handler) http.Handler {
	if tooLarge == nil {
		tooLarge = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
		})
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				tooLarge.ServeHTTP(w, r)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
