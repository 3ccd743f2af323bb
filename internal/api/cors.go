package api

import (
	"net/http"
	"slices"
	"strings"

	"github.com/eugenenazirov/whisperx-api/internal/config"
)

const defaultAllowedMethods = "DELETE, GET, HEAD, OPTIONS, PATCH, POST, PUT"

// corsPolicy is the request-time form of config.CORSSettings.
type corsPolicy struct {
	anyOrigin   bool
	origins     []string
	anyMethod   bool
	methods     []string
	anyHeader   bool
	headers     []string
	credentials bool
}

func newCORSPolicy(cfg config.CORSSettings) corsPolicy {
	return corsPolicy{
		anyOrigin:   config.AllowsAll(cfg.Origins),
		origins:     cfg.Origins,
		anyMethod:   config.AllowsAll(cfg.Methods),
		methods:     upper(cfg.Methods),
		anyHeader:   config.AllowsAll(cfg.Headers),
		headers:     cfg.Headers,
		credentials: cfg.Credentials,
	}
}

func (p corsPolicy) originAllowed(origin string) bool {
	return p.anyOrigin || slices.Contains(p.origins, origin)
}

func (p corsPolicy) methodAllowed(method string) bool {
	return p.anyMethod || slices.Contains(p.methods, strings.ToUpper(method))
}

// allowOrigin returns the Access-Control-Allow-Origin value. A wildcard cannot
// be combined with credentials, so the request origin is echoed instead.
func (p corsPolicy) allowOrigin(origin string) string {
	if p.anyOrigin && !p.credentials {
		return "*"
	}
	return origin
}

func corsMiddleware(policy corsPolicy, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		requestedMethod := r.Header.Get("Access-Control-Request-Method")
		if r.Method == http.MethodOptions && requestedMethod != "" {
			handlePreflight(policy, w, r, origin, requestedMethod)
			return
		}

		if policy.originAllowed(origin) {
			setOriginHeaders(policy, w.Header(), origin)
			w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
		}
		next.ServeHTTP(w, r)
	})
}

func handlePreflight(policy corsPolicy, w http.ResponseWriter, r *http.Request, origin, requestedMethod string) {
	var failures []string
	if !policy.originAllowed(origin) {
		failures = append(failures, "origin")
	}
	if !policy.methodAllowed(requestedMethod) {
		failures = append(failures, "method")
	}
	if len(failures) > 0 {
		writeError(w, http.StatusBadRequest, "Disallowed CORS "+strings.Join(failures, ", "),
			"the preflight request is not permitted by the CORS policy")
		return
	}

	h := w.Header()
	setOriginHeaders(policy, h, origin)
	if policy.anyMethod {
		h.Set("Access-Control-Allow-Methods", defaultAllowedMethods)
	} else {
		h.Set("Access-Control-Allow-Methods", strings.Join(policy.methods, ", "))
	}
	if policy.anyHeader {
		if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
			h.Set("Access-Control-Allow-Headers", requested)
		}
	} else {
		h.Set("Access-Control-Allow-Headers", strings.Join(policy.headers, ", "))
	}
	h.Set("Access-Control-Max-Age", "600")
	w.WriteHeader(http.StatusNoContent)
}

func setOriginHeaders(policy corsPolicy, h http.Header, origin string) {
	allow := policy.allowOrigin(origin)
	h.Set("Access-Control-Allow-Origin", allow)
	if allow != "*" {
		h.Add("Vary", "Origin")
	}
	if policy.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
}

func upper(items []string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = strings.ToUpper(item)
	}
	return out
}
