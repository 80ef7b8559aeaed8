package admission

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
)

// exemptPaths bypass the credential check so orchestration probes are never blocked.
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// internalKeyHeader carries the service-to-service credential.
const internalKeyHeader = "X-Internal-API-Key"

// RateLimitMiddleware rejects requests over the per-endpoint sliding window
// with 429 before they reach any pipeline. The client identity is the first
// X-Forwarded-For hop when present, else the remote address host.
func RateLimitMiddleware(limiter *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := limiter.Check(r.URL.Path, ClientIdentity(r)); err != nil {
				writeRefusal(w, http.StatusTooManyRequests, "rate_limited", "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthMiddleware enforces the internal API key in production. Outside
// production, or with no key configured, every request passes: permissive by
// default so local development needs no credentials.
func AuthMiddleware(configuredKey string, isProduction bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !isProduction || configuredKey == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			if r.Header.Get(internalKeyHeader) != configuredKey {
				writeRefusal(w, http.StatusForbidden, "forbidden", "Forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIdentity resolves the rate-limit identity for a request:
// first X-Forwarded-For hop (load balancers prepend the client), else the
// remote address without port.
func ClientIdentity(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeRefusal(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    code,
		"message": message,
	})
}
