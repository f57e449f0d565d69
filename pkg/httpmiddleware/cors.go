package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSConfig lists the origins allowed to call the API from a browser. No
// origins, or "*", allows any origin unless credentials are enabled, in which
// case the request origin is echoed back.
type CORSConfig struct {
	Origins          []string
	Headers          []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// CORS answers preflight requests and decorates cross-origin responses.
func CORS(cfg CORSConfig) Middleware {
	wildcard := len(cfg.Origins) == 0
	allowed := make(map[string]string, len(cfg.Origins))
	for _, o := range cfg.Origins {
		if o == "*" {
			wildcard = true
			continue
		}
		allowed[strings.ToLower(o)] = o
	}
	echoAny := wildcard && cfg.AllowCredentials

	headers := strings.Join(cfg.Headers, ", ")
	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(int(cfg.MaxAge.Seconds()))
	}

	origin := func(o string) string {
		switch {
		case echoAny:
			return o
		case wildcard:
			return "*"
		default:
			return allowed[strings.ToLower(o)]
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if !wildcard || echoAny {
				h.Add("Vary", "Origin")
			}

			o := r.Header.Get("Origin")
			if o == "" {
				next.ServeHTTP(w, r)
				return
			}
			allow := origin(o)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Add("Vary", "Access-Control-Request-Method")
				h.Add("Vary", "Access-Control-Request-Headers")
				if allow != "" {
					h.Set("Access-Control-Allow-Origin", allow)
					h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
					if headers != "" {
						h.Set("Access-Control-Allow-Headers", headers)
					} else if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
						h.Set("Access-Control-Allow-Headers", req)
					}
					if cfg.AllowCredentials {
						h.Set("Access-Control-Allow-Credentials", "true")
					}
					if maxAge != "" {
						h.Set("Access-Control-Max-Age", maxAge)
					}
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if allow != "" {
				h.Set("Access-Control-Allow-Origin", allow)
				h.Set("Access-Control-Expose-Headers", headerRequestID)
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
