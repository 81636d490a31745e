package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, RequestIDFromContext(c))
	})

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "generated when absent", incoming: "", keep: false},
		{name: "caller id kept", incoming: "trace-abc.123", keep: true},
		{name: "spaces rejected", incoming: "not a valid id", keep: false},
		{name: "too long rejected", incoming: strings.Repeat("a", 200), keep: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.incoming != "" {
				req.Header.Set("X-Request-Id", tt.incoming)
			}
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, req)

			got := resp.Header().Get("X-Request-Id")
			if got != resp.Body.String() {
				t.Fatalf("header %q and context %q differ", got, resp.Body.String())
			}
			if tt.keep {
				if got != tt.incoming {
					t.Fatalf("expected caller id %q, got %q", tt.incoming, got)
				}
				return
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("expected generated uuid, got %q", got)
			}
		})
	}
}
