package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/boostedcalls/boostedcalls/internal/auth"
	"github.com/boostedcalls/boostedcalls/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testVerifier(t *testing.T) *auth.Verifier {
	t.Helper()
	v, err := auth.NewVerifier(auth.Config{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	return v
}

func TestRequireAuthMissingHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequireAuth(testVerifier(t)))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRequireAuthMalformedHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequireAuth(testVerifier(t)))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, header := range []string{"tok-123", "Basic dXNlcjpwYXNz", "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, w.Code)
		}
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	r := gin.New()
	r.Use(RequireAuth(testVerifier(t)))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRequireAuthStoresClaimsAndToken(t *testing.T) {
	v := testVerifier(t)
	token, err := v.Generate("user-1", &auth.Claims{Email: "jo@example.com"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var gotSubject, gotToken string
	r := gin.New()
	r.Use(RequireAuth(v))
	r.GET("/x", func(c *gin.Context) {
		if claims, ok := ClaimsFrom(c); ok {
			gotSubject = claims.Subject
		}
		gotToken = TokenFrom(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotSubject != "user-1" {
		t.Errorf("subject = %q, want user-1", gotSubject)
	}
	if gotToken != token {
		t.Errorf("token not stored for upstream forwarding")
	}
}

func TestCORSAllowedOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS(CORSConfig{
		AllowedOrigins: []string{"https://app.example.com"},
		AllowedMethods: []string{"GET", "POST"},
	}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestCORSDisallowedOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS(CORSConfig{AllowedOrigins: []string{"https://app.example.com"}}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want empty", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS(CORSConfig{AllowedOrigins: []string{"*"}}))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
}

func TestRequestIDGenerated(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Header().Get("X-Request-Id") == "" {
		t.Error("X-Request-Id not set")
	}
}

func TestRequestIDPreserved(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-Id"); got != "req-abc" {
		t.Errorf("X-Request-Id = %q, want req-abc", got)
	}
}

func TestRecoveryReturns500(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(logger.NewDefault("test")))
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
}

func TestHealthEndpointIncludesStats(t *testing.T) {
	r := gin.New()
	r.GET("/health", Health("boostedcalls", func() map[string]any {
		return map[string]any{"channels": 3, "subscribers": 7}
	}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %v", body["status"])
	}
	if body["channels"] != float64(3) {
		t.Errorf("channels = %v, want 3", body["channels"])
	}
}

func TestRequestLoggerSkipsOnlyRegisteredProbes(t *testing.T) {
	// The skip list must name real routes; the webhook path is shared by
	// POST notifications, which stay logged.
	cases := []struct {
		path string
		skip bool
	}{
		{"/health", true},
		{"/info", true},
		{"/api/webhooks/revalidate", false},
		{"/api/calls", false},
	}
	for _, tc := range cases {
		if got := isHealthEndpoint(tc.path); got != tc.skip {
			t.Errorf("isHealthEndpoint(%q) = %v, want %v", tc.path, got, tc.skip)
		}
	}
}

func TestServerStartStop(t *testing.T) {
	cfg := Config{Port: 0}
	srv := New(cfg, logger.NewDefault("test"))
	srv.ApplyMiddleware()

	ctx := context.Background()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := srv.Stop(ctx); err != nil {
		t.Errorf("Stop: %v", err)
	}
}
