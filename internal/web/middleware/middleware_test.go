package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JonMunkholm/sheetchat/internal/config"
)

func echoRemoteAddr() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.RemoteAddr))
	})
}

func TestTrustedRealIP(t *testing.T) {
	handler := TrustedRealIP([]string{"10.0.0.0/8", "192.168.1.5", "not-an-ip"})(echoRemoteAddr())

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "untrusted source keeps connection address",
			remoteAddr: "203.0.113.9:5555",
			headers:    map[string]string{"X-Real-IP": "1.2.3.4"},
			want:       "203.0.113.9:5555",
		},
		{
			name:       "trusted CIDR uses X-Real-IP",
			remoteAddr: "10.1.2.3:4444",
			headers:    map[string]string{"X-Real-IP": "198.51.100.7"},
			want:       "198.51.100.7",
		},
		{
			name:       "trusted single address uses first forwarded hop",
			remoteAddr: "192.168.1.5:80",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.8, 10.0.0.1"},
			want:       "198.51.100.8",
		},
		{
			name:       "invalid header value is ignored",
			remoteAddr: "10.1.2.3:4444",
			headers:    map[string]string{"X-Real-IP": "garbage"},
			want:       "10.1.2.3:4444",
		},
		{
			name:       "trusted without headers keeps address",
			remoteAddr: "10.1.2.3:4444",
			want:       "10.1.2.3:4444",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if got := rec.Body.String(); got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIKeyAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name    string
		cfg     config.SecurityConfig
		headers map[string]string
		want    int
	}{
		{
			name: "disabled passes through",
			cfg:  config.SecurityConfig{},
			want: http.StatusNoContent,
		},
		{
			name: "missing key",
			cfg:  config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}},
			want: http.StatusUnauthorized,
		},
		{
			name:    "wrong key",
			cfg:     config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}},
			headers: map[string]string{"X-API-Key": "nope"},
			want:    http.StatusForbidden,
		},
		{
			name:    "header key",
			cfg:     config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1", "k2"}},
			headers: map[string]string{"X-API-Key": "k2"},
			want:    http.StatusNoContent,
		},
		{
			name:    "bearer token",
			cfg:     config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}},
			headers: map[string]string{"Authorization": "Bearer k1"},
			want:    http.StatusNoContent,
		},
		{
			name:    "required with no keys configured",
			cfg:     config.SecurityConfig{RequireAPIKey: true},
			headers: map[string]string{"X-API-Key": "anything"},
			want:    http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			handler := APIKeyAuth(&cfg)(ok)
			req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if rec.Code >= 400 && !strings.Contains(rec.Body.String(), `"code":"AUTH00`) {
				t.Errorf("body = %s, want an AUTH code", rec.Body.String())
			}
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/sheet", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{"level=ERROR", "msg=request", "status=502", "bytes=13", "path=/api/sheet"} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %q", out, want)
		}
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		path   string
		status int
		want   slog.Level
	}{
		{"/", 200, slog.LevelInfo},
		{"/static/app.js", 200, slog.LevelDebug},
		{"/api/ask", 400, slog.LevelWarn},
		{"/api/ask", 500, slog.LevelError},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if got := levelFor(req, tt.status); got != tt.want {
			t.Errorf("levelFor(%s, %d) = %v, want %v", tt.path, tt.status, got, tt.want)
		}
	}
}
