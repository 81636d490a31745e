package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCORSOptionsPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORS([]string{"http://localhost:5173"}))
	router.OPTIONS("/analysis/upload", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodOptions, "/analysis/upload", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	assertCORSHeaders(t, resp)
}

func TestCORSHeadersOnPost(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORS([]string{"http://localhost:5173"}))
	router.POST("/analysis/upload", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/analysis/upload", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	assertCORSHeaders(t, resp)
}

func assertCORSHeaders(t *testing.T, resp *httptest.ResponseRecorder) {
	t.Helper()
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected Allow-Origin http://localhost:5173, got %q", got)
	}
	if got := resp.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Fatalf("expected Allow-Methods header")
	}
	if got := resp.Header().Get("Access-Control-Allow-Headers"); got == "" {
		t.Fatalf("expected Allow-Headers header")
	}
	if got := resp.Header().Get("Access-Control-Max-Age"); got != "600" {
		t.Fatalf("expected Max-Age 600, got %q", got)
	}
}

func TestCORSOriginPolicy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		wantOrigin string
		wantCreds  string
	}{
		{name: "listed origin", allowed: []string{"http://app.example"}, origin: "http://app.example", wantOrigin: "http://app.example", wantCreds: "true"},
		{name: "trailing slash in config", allowed: []string{"http://app.example/"}, origin: "http://app.example", wantOrigin: "http://app.example", wantCreds: "true"},
		{name: "unlisted origin", allowed: []string{"http://app.example"}, origin: "http://evil.example", wantOrigin: "", wantCreds: ""},
		{name: "wildcard", allowed: []string{"*"}, origin: "http://any.example", wantOrigin: "*", wantCreds: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CORS(tt.allowed))
			router.GET("/analysis/history", func(c *gin.Context) {
				c.Status(http.StatusOK)
			})
			req := httptest.NewRequest(http.MethodGet, "/analysis/history", nil)
			req.Header.Set("Origin", tt.origin)
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			if got := resp.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Fatalf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := resp.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCreds {
				t.Fatalf("Allow-Credentials = %q, want %q", got, tt.wantCreds)
			}
			if tt.wantOrigin != "" && !strings.Contains(resp.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition") {
				t.Fatalf("expected Content-Disposition to be exposed")
			}
		})
	}
}
