package middleware

import (
	"net/http"
	"strings"
)

const (
	corsAllowMethods  = "GET, POST, PUT, DELETE, OPTIONS"
	corsAllowHeaders  = "Authorization, Content-Type, Accept, X-User-Id, X-Api-Key, X-Request-ID"
	corsExposeHeaders = "Authorization, X-Request-ID"
	corsMaxAge        = "3600"
)

// corsPolicy is the parsed form of the configured origin list.
type corsPolicy struct {
	anyOrigin bool
	origins   map[string]struct{}
}

func parseCORSOrigins(list string) corsPolicy {
	policy := corsPolicy{origins: map[string]struct{}{}}
	for _, origin := range strings.Split(list, ",") {
		origin = strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
		switch origin {
		case "":
		case "*":
			policy.anyOrigin = true
		default:
			policy.origins[origin] = struct{}{}
		}
	}
	return policy
}

func (p corsPolicy) enabled() bool {
	return p.anyOrigin || len(p.origins) > 0
}

// allowOrigin returns the Access-Control-Allow-Origin value for a request origin.
func (p corsPolicy) allowOrigin(requestOrigin string) (string, bool) {
	if p.anyOrigin {
		return "*", true
	}
	if requestOrigin == "" {
		return "", false
	}
	if _, ok := p.origins[strings.ToLower(requestOrigin)]; ok {
		return requestOrigin, true
	}
	return "", false
}

func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
}

// CORS answers browser preflights and decorates responses for the origins in
// allowedOrigins, a comma separated list where "*" admits any origin. An empty
// list disables CORS. Credentials are only allowed for named origins.
func CORS(allowedOrigins string) func(http.Handler) http.Handler {
	policy := parseCORSOrigins(allowedOrigins)

	return func(next http.Handler) http.Handler {
		if !policy.enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			allowed, ok := policy.allowOrigin(r.Header.Get("Origin"))
			if ok {
				h.Set("Access-Control-Allow-Origin", allowed)
				h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
				if allowed != "*" {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if !isPreflight(r) {
				next.ServeHTTP(w, r)
				return
			}
			if ok {
				h.Set("Access-Control-Allow-Methods", corsAllowMethods)
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				h.Set("Access-Control-Max-Age", corsMaxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
