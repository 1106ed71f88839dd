package middleware

import "net/http"

// CORS headers set on every response.
const (
	CORSAllowOrigin  = "*"
	CORSAllowMethods = "GET,OPTIONS"
	CORSAllowHeaders = "Content-Type"
)

// CORS sets permissive CORS headers and answers every OPTIONS request with
// 204 and no body, whatever the path.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", CORSAllowOrigin)
		h.Set("Access-Control-Allow-Methods", CORSAllowMethods)
		h.Set("Access-Control-Allow-Headers", CORSAllowHeaders)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
