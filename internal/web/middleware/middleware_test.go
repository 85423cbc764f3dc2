package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/JonMunkholm/dataplay/internal/config"
	"github.com/JonMunkholm/dataplay/internal/metrics"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		headers map[string]string
		want    string
	}{
		{"untrusted ignores headers", []string{"10.0.0.0/8"}, "203.0.113.5:4000",
			map[string]string{"X-Real-IP": "1.2.3.4"}, "203.0.113.5:4000"},
		{"trusted uses X-Real-IP", []string{"10.0.0.0/8"}, "10.1.2.3:4000",
			map[string]string{"X-Real-IP": "1.2.3.4"}, "1.2.3.4"},
		{"trusted uses first X-Forwarded-For", []string{"10.0.0.0/8"}, "10.1.2.3:4000",
			map[string]string{"X-Forwarded-For": "1.2.3.4, 10.1.2.3"}, "1.2.3.4"},
		{"single address entry", []string{"192.168.1.1"}, "192.168.1.1:80",
			map[string]string{"X-Real-IP": "5.6.7.8"}, "5.6.7.8"},
		{"invalid header keeps remote", []string{"10.0.0.0/8"}, "10.1.2.3:4000",
			map[string]string{"X-Real-IP": "nonsense"}, "10.1.2.3:4000"},
		{"no trusted proxies", nil, "10.1.2.3:4000",
			map[string]string{"X-Real-IP": "1.2.3.4"}, "10.1.2.3:4000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParsePrefixes(t *testing.T) {
	got := ParsePrefixes([]string{"10.0.0.0/8", " ", "bogus", "::1", "192.168.1.7/24"})
	want := []string{"10.0.0.0/8", "::1/128", "192.168.1.0/24"}
	if len(got) != len(want) {
		t.Fatalf("ParsePrefixes() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Errorf("prefix %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"1.2.3.4:5678", "1.2.3.4"},
		{"[::1]:80", "::1"},
		{"[::ffff:1.2.3.4]:80", "1.2.3.4"},
		{"5.6.7.8", "5.6.7.8"},
		{"pipe", "pipe"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		if got := ClientIP(req); got != tt.want {
			t.Errorf("ClientIP(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := &config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"alpha", " beta ", ""}}

	tests := []struct {
		name   string
		cfg    *config.SecurityConfig
		key    string
		bearer string
		status int
		code   string
	}{
		{"disabled", &config.SecurityConfig{}, "", "", http.StatusOK, ""},
		{"missing", cfg, "", "", http.StatusUnauthorized, "AUTH_MISSING_KEY"},
		{"invalid", cfg, "gamma", "", http.StatusForbidden, "AUTH_INVALID_KEY"},
		{"prefix of valid key", cfg, "alp", "", http.StatusForbidden, "AUTH_INVALID_KEY"},
		{"first key", cfg, "alpha", "", http.StatusOK, ""},
		{"configured key is trimmed", cfg, "beta", "", http.StatusOK, ""},
		{"bearer token", cfg, "", "Bearer beta", http.StatusOK, ""},
		{"bearer is case insensitive", cfg, "", "bearer alpha", http.StatusOK, ""},
		{"invalid bearer", cfg, "", "Bearer gamma", http.StatusForbidden, "AUTH_INVALID_KEY"},
		{"other scheme", cfg, "", "Basic YWxwaGE=", http.StatusUnauthorized, "AUTH_MISSING_KEY"},
		{"header wins over bearer", cfg, "gamma", "Bearer alpha", http.StatusForbidden, "AUTH_INVALID_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/tables", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			if tt.bearer != "" {
				req.Header.Set("Authorization", tt.bearer)
			}
			rec := httptest.NewRecorder()
			APIKeyAuth(tt.cfg)(ok).ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.code == "" {
				return
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["code"] != tt.code {
				t.Errorf("code = %q, want %q", body["code"], tt.code)
			}
		})
	}
}

func TestAPIKeyAuth_CountsRejections(t *testing.T) {
	cfg := &config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"alpha"}}
	handler := APIKeyAuth(cfg)(ok)
	missing := testutil.ToFloat64(metrics.AuthRejections.WithLabelValues("missing"))
	invalid := testutil.ToFloat64(metrics.AuthRejections.WithLabelValues("invalid"))

	for _, key := range []string{"", "nope", "nope", "alpha"} {
		req := httptest.NewRequest(http.MethodGet, "/api/tables", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	if got := testutil.ToFloat64(metrics.AuthRejections.WithLabelValues("missing")) - missing; got != 1 {
		t.Errorf("missing rejections = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.AuthRejections.WithLabelValues("invalid")) - invalid; got != 2 {
		t.Errorf("invalid rejections = %v, want 2", got)
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 60, Burst: 2})
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("burst of 2 should be allowed")
	}
	if rl.Allow("a") {
		t.Error("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Error("other clients have their own bucket")
	}

	now = now.Add(time.Second)
	if !rl.Allow("a") {
		t.Error("one token should refill after a second at 60/min")
	}

	now = now.Add(2 * time.Minute)
	rl.Allow("b")
	now = now.Add(2 * time.Minute)
	if removed := rl.Cleanup(); removed != 1 {
		t.Errorf("Cleanup() removed %d, want 1", removed)
	}
	if _, ok := rl.visitors["b"]; !ok {
		t.Error("recently seen visitor should be kept")
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 30, Burst: 1})
	h := rl.Middleware(ok)

	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := send("1.1.1.1:1000"); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}
	// a new port is the same client
	rec := send("1.1.1.1:2000")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want 2", got)
	}
	if rec := send("2.2.2.2:1000"); rec.Code != http.StatusOK {
		t.Errorf("other client status = %d", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	for _, csp := range []bool{false, true} {
		rec := httptest.NewRecorder()
		SecurityHeaders(csp)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
			t.Errorf("X-Frame-Options = %q", got)
		}
		if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
			t.Errorf("X-Content-Type-Options = %q", got)
		}
		if got := rec.Header().Get("Content-Security-Policy") != ""; got != csp {
			t.Errorf("CSP present = %v, want %v", got, csp)
		}
	}
}

func TestLogger_CapturesStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Logger)
	r.Get("/tables/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("x"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tables/sales", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}
