package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"summarize-backend/internal/shared/auth"
	"summarize-backend/internal/shared/telemetry"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens, err := auth.NewTokens("test-secret", "test")
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	token, err := tokens.Sign(auth.Claims{Sub: "user-1"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	router := gin.New()
	router.Use(RequestID(), Auth(tokens), Logging())
	router.GET("/analysis/:id", func(c *gin.Context) {
		c.Set(RecordIDKey, c.Param("id"))
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	var buf bytes.Buffer
	telemetry.SetOutput(&buf)
	t.Cleanup(func() { telemetry.SetOutput(os.Stdout) })

	req := httptest.NewRequest(http.MethodGet, "/analysis/rec-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	last := lines[len(lines)-1]
	var payload map[string]any
	if err := json.Unmarshal([]byte(last), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}

	required := []string{"request_id", "user_id", "record_id", "duration_ms", "status", "route"}
	for _, key := range required {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if payload["user_id"] != "user-1" {
		t.Fatalf("unexpected user_id: %v", payload["user_id"])
	}
	if payload["record_id"] != "rec-1" {
		t.Fatalf("unexpected record_id: %v", payload["record_id"])
	}
	if payload["route"] != "/analysis/:id" {
		t.Fatalf("unexpected route: %v", payload["route"])
	}
}
