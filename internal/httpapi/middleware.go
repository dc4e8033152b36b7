package httpapi

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tinoosan/filmstore/internal/errs"
	"github.com/tinoosan/filmstore/internal/filmstore"
	"github.com/tinoosan/filmstore/internal/ratelimit"
)

// admit applies a fixed-window admission check keyed by caller identity and
// exposes the remaining quota and reset time as response headers.
func (s *Server) admit(l *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil {
				next.ServeHTTP(w, r)
				return
			}
			d := l.Allow(clientKey(r))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
			if !d.Allowed {
				w.Header().Set("Retry-After", strconv.FormatInt(ceilSeconds(d.RetryAfter), 10))
				rateLimitRejections.Inc()
				toJSON(w, http.StatusTooManyRequests, envelope{
					Success: false,
					Error:   &errorBody{Message: d.Message, Code: string(errs.KindTooManyRequests)},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey resolves the rate-limit key: the first X-Forwarded-For hop when
// present, otherwise the remote address host.
func clientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr)); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}

// parsePage reads page/page_size query params. Missing or out-of-range values
// fall back to the defaults.
func parsePage(r *http.Request) filmstore.PageRequest {
	q := r.URL.Query()
	page := filmstore.PageRequest{}
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.Page = n
		}
	}
	if v := q.Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.PageSize = n
		}
	}
	return page.Normalize()
}
