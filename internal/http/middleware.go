package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// ExtractClientIP extracts the client IP address from the request.
// Checks X-Forwarded-For header first (for proxied requests), then X-Real-IP, finally RemoteAddr.
func ExtractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// first hop is the client
		if before, _, ok := strings.Cut(xff, ","); ok {
			return before
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if idx := strings.LastIndex(r.RemoteAddr, ":"); idx != -1 {
		return r.RemoteAddr[:idx]
	}
	return r.RemoteAddr
}

// ClientIPHandler adds the client IP, as resolved by ExtractClientIP, to the
// request logger under fieldKey.
func ClientIPHandler(fieldKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ExtractClientIP(r)
			hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str(fieldKey, ip)
			})
			next.ServeHTTP(w, r)
		})
	}
}

// AccessLog attaches a request scoped logger, carrying the client IP, to the
// request context and logs each completed request.
func AccessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		h := hlog.AccessHandler(logRequest)(next)
		h = ClientIPHandler("client_ip")(h)
		h = hlog.URLHandler("path")(h)
		h = hlog.MethodHandler("method")(h)
		return hlog.NewHandler(logger)(h)
	}
}

func logRequest(r *http.Request, status, size int, duration time.Duration) {
	// handlers that never write get the implicit 200 from net/http
	if status == 0 {
		status = http.StatusOK
	}

	log := hlog.FromRequest(r)
	event := log.Info()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.
		Int("status", status).
		Int("bytes", size).
		Dur("duration", duration).
		Msg("http request")
}
