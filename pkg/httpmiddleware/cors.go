package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig controls the Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	// AllowOrigins lists permitted origins. "*" allows any origin.
	AllowOrigins []string
	// AllowHeaders lists headers permitted in preflight requests.
	AllowHeaders []string
	// AllowCredentials permits cookies and auth headers. Incompatible
	// with a wildcard origin; the matched origin is echoed instead.
	AllowCredentials bool
	// MaxAge is how long, in seconds, a preflight response may be cached.
	MaxAge int
}

// CORS returns a middleware that answers preflight requests and sets the
// response CORS headers for allowed origins.
func CORS(cfg CORSConfig) Middleware {
	allowMethods := "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	allowHeaders := strings.Join(cfg.AllowHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := matchOrigin(cfg.AllowOrigins, origin)

			if origin != "" && allowed != "" {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", allowed)
				h.Add("Vary", "Origin")
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}

				if r.Method == http.MethodOptions {
					h.Set("Access-Control-Allow-Methods", allowMethods)
					if allowHeaders != "" {
						h.Set("Access-Control-Allow-Headers", allowHeaders)
					}
					if cfg.MaxAge > 0 {
						h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
					}
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// matchOrigin returns the Allow-Origin value for origin, or "" when the
// origin is not allowed. A wildcard config returns the origin itself so
// credentialed requests keep working.
func matchOrigin(allowed []string, origin string) string {
	for _, a := range allowed {
		if a == "*" {
			return origin
		}
		if strings.EqualFold(a, origin) {
			return origin
		}
	}
	return ""
}
