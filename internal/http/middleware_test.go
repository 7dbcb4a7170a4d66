package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestExtractClientIP_xForwardedFor(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{
			name:     "single IP",
			header:   "192.168.1.1",
			expected: "192.168.1.1",
		},
		{
			name:     "multiple IPs (take first)",
			header:   "203.0.113.1, 198.51.100.1",
			expected: "203.0.113.1",
		},
		{
			name:     "multiple IPs no spaces",
			header:   "203.0.113.1,198.51.100.1",
			expected: "203.0.113.1",
		},
		{
			name:     "multiple IPs with extra spaces",
			header:   "203.0.113.1  ,  198.51.100.1",
			expected: "203.0.113.1  ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("X-Forwarded-For", tt.header)

			ip := ExtractClientIP(r)
			require.Equal(t, tt.expected, ip)
		})
	}
}

func TestExtractClientIP_xRealIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Real-IP", "192.168.1.100")

	ip := ExtractClientIP(r)
	require.Equal(t, "192.168.1.100", ip)
}

func TestExtractClientIP_xForwardedForTakesPreference(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.1, 198.51.100.1")
	r.Header.Set("X-Real-IP", "192.168.1.100")

	ip := ExtractClientIP(r)
	// X-Forwarded-For should take precedence
	require.Equal(t, "203.0.113.1", ip)
}

func TestExtractClientIP_remoteAddr(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		expected   string
	}{
		{
			name:       "IPv4 with port",
			remoteAddr: "192.168.1.1:54321",
			expected:   "192.168.1.1",
		},
		{
			name:       "IPv6 with port",
			remoteAddr: "[2001:db8::1]:54321",
			expected:   "[2001:db8::1]",
		},
		{
			name:       "no port",
			remoteAddr: "192.168.1.1",
			expected:   "192.168.1.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr

			ip := ExtractClientIP(r)
			require.Equal(t, tt.expected, ip)
		})
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	var sawContextLogger bool
	handler := AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawContextLogger = zerolog.Ctx(r.Context()).GetLevel() != zerolog.Disabled
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/_build/bundle.js", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.1")

	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusTeapot, w.Code)
	require.True(t, sawContextLogger)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "http request", entry["message"])
	require.Equal(t, "info", entry["level"])
	require.Equal(t, "203.0.113.1", entry["client_ip"])
	require.Equal(t, "GET", entry["method"])
	require.Equal(t, "/_build/bundle.js", entry["path"])
	require.EqualValues(t, http.StatusTeapot, entry["status"])
	require.EqualValues(t, len("short and stout"), entry["bytes"])
}

func TestAccessLog_implicitStatusAndErrors(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status float64
		level  string
	}{
		{
			name:   "write without header",
			write:  func(w http.ResponseWriter) { _, _ = w.Write([]byte("ok")) },
			status: http.StatusOK,
			level:  "info",
		},
		{
			name:   "nothing written",
			write:  func(w http.ResponseWriter) {},
			status: http.StatusOK,
			level:  "info",
		},
		{
			name:   "server error",
			write:  func(w http.ResponseWriter) { http.Error(w, "boom", http.StatusInternalServerError) },
			status: http.StatusInternalServerError,
			level:  "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := AccessLog(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.write(w)
			}))

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			require.Equal(t, tt.status, entry["status"])
			require.Equal(t, tt.level, entry["level"])
		})
	}
}

func TestAccessLog_handlerLogsCarryRequestFields(t *testing.T) {
	var buf bytes.Buffer

	handler := AccessLog(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("rendering page")
		w.WriteHeader(http.StatusNoContent)
	}))

	r := httptest.NewRequest(http.MethodHead, "/", nil)
	r.RemoteAddr = "192.168.1.1:54321"
	handler.ServeHTTP(httptest.NewRecorder(), r)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	for _, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		require.Equal(t, "192.168.1.1", entry["client_ip"])
		require.Equal(t, "HEAD", entry["method"])
		require.Equal(t, "/", entry["path"])
	}

	var access map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &access))
	require.Equal(t, "http request", access["message"])
	require.EqualValues(t, http.StatusNoContent, access["status"])
}
