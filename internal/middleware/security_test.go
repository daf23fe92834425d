package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// applySecurityHeaders runs a GET / through SecurityHeadersMiddleware and returns
// the response recorder so callers can inspect headers.
func applySecurityHeaders(cfg SecurityHeadersConfig) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(SecurityHeadersMiddleware(cfg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestAPISecurityHeadersConfig(t *testing.T) {
	cfg := APISecurityHeadersConfig()

	if !cfg.EnableHSTS {
		t.Error("EnableHSTS = false, want true")
	}
	if cfg.EnableXSSProtection {
		t.Error("EnableXSSProtection = true, want false (not relevant for JSON APIs)")
	}
	if cfg.ContentSecurityPolicy != "default-src 'none'; frame-ancestors 'none'" {
		t.Errorf("ContentSecurityPolicy = %q, want deny-all API policy", cfg.ContentSecurityPolicy)
	}
	if cfg.ReferrerPolicy != "no-referrer" {
		t.Errorf("ReferrerPolicy = %q, want no-referrer", cfg.ReferrerPolicy)
	}
	if cfg.PermissionsPolicy != "" {
		t.Errorf("PermissionsPolicy = %q, want empty", cfg.PermissionsPolicy)
	}
}

func TestSecurityHeadersMiddleware_HSTS(t *testing.T) {
	tests := []struct {
		name     string
		cfg      SecurityHeadersConfig
		contains []string
		excludes []string
	}{
		{
			name: "subdomains without preload",
			cfg: SecurityHeadersConfig{
				EnableHSTS:            true,
				HSTSMaxAge:            31536000,
				HSTSIncludeSubdomains: true,
			},
			contains: []string{"max-age=31536000", "includeSubDomains"},
			excludes: []string{"preload"},
		},
		{
			name: "preload opted in",
			cfg: SecurityHeadersConfig{
				EnableHSTS:  true,
				HSTSMaxAge:  86400,
				HSTSPreload: true,
			},
			contains: []string{"max-age=86400", "preload"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hsts := applySecurityHeaders(tt.cfg).Header().Get("Strict-Transport-Security")
			for _, want := range tt.contains {
				if !strings.Contains(hsts, want) {
					t.Errorf("HSTS = %q, want to contain %q", hsts, want)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(hsts, unwanted) {
					t.Errorf("HSTS = %q, should not contain %q", hsts, unwanted)
				}
			}
		})
	}

	t.Run("disabled", func(t *testing.T) {
		w := applySecurityHeaders(SecurityHeadersConfig{EnableHSTS: false})
		if got := w.Header().Get("Strict-Transport-Security"); got != "" {
			t.Errorf("Strict-Transport-Security = %q, want unset", got)
		}
	})
}

func TestSecurityHeadersMiddleware_ToggledHeaders(t *testing.T) {
	tests := []struct {
		name   string
		cfg    SecurityHeadersConfig
		header string
		want   string
	}{
		{"frame options deny", SecurityHeadersConfig{EnableFrameOptions: true, FrameOptionsValue: "DENY"}, "X-Frame-Options", "DENY"},
		{"frame options off", SecurityHeadersConfig{}, "X-Frame-Options", ""},
		{"content type nosniff", SecurityHeadersConfig{EnableContentTypeOptions: true}, "X-Content-Type-Options", "nosniff"},
		{"content type off", SecurityHeadersConfig{}, "X-Content-Type-Options", ""},
		{"xss protection on", SecurityHeadersConfig{EnableXSSProtection: true}, "X-XSS-Protection", "1; mode=block"},
		{"xss protection off", SecurityHeadersConfig{}, "X-XSS-Protection", ""},
		{"csp set", SecurityHeadersConfig{ContentSecurityPolicy: "default-src 'none'"}, "Content-Security-Policy", "default-src 'none'"},
		{"csp empty", SecurityHeadersConfig{}, "Content-Security-Policy", ""},
		{"referrer policy set", SecurityHeadersConfig{ReferrerPolicy: "no-referrer"}, "Referrer-Policy", "no-referrer"},
		{"referrer policy empty", SecurityHeadersConfig{}, "Referrer-Policy", ""},
		{"permissions policy set", SecurityHeadersConfig{PermissionsPolicy: "geolocation=()"}, "Permissions-Policy", "geolocation=()"},
		{"permissions policy empty", SecurityHeadersConfig{}, "Permissions-Policy", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := applySecurityHeaders(tt.cfg).Header().Get(tt.header); got != tt.want {
				t.Errorf("%s = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

// The cross-origin isolation headers are unconditional; even a zero config
// keeps them on.
func TestSecurityHeadersMiddleware_FixedHeaders(t *testing.T) {
	w := applySecurityHeaders(SecurityHeadersConfig{})

	fixed := map[string]string{
		"X-Permitted-Cross-Domain-Policies": "none",
		"Cross-Origin-Embedder-Policy":      "require-corp",
		"Cross-Origin-Opener-Policy":        "same-origin",
		"Cross-Origin-Resource-Policy":      "same-origin",
	}
	for header, want := range fixed {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestSecurityHeadersMiddleware_APIProfile(t *testing.T) {
	w := applySecurityHeaders(APISecurityHeadersConfig())

	if got := w.Header().Get("Content-Security-Policy"); !strings.Contains(got, "default-src 'none'") {
		t.Errorf("Content-Security-Policy = %q, want deny-all", got)
	}
	if got := w.Header().Get("X-XSS-Protection"); got != "" {
		t.Errorf("X-XSS-Protection = %q, want unset for the API profile", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}

func TestItoa(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{7, "7"},
		{31536000, "31536000"},
		{-42, "-42"},
	}
	for _, tt := range tests {
		if got := itoa(tt.in); got != tt.want {
			t.Errorf("itoa(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
