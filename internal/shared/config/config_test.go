package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"LLM_PROVIDER", "LLM_MODEL", "LLM_TIMEOUT", "MAX_UPLOAD_BYTES", "HISTORY_STORE", "DATABASE_URL", "LLM_API_KEY", "OPENAI_API_KEY"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.LLMProvider != "openai" {
		t.Fatalf("provider = %q", cfg.LLMProvider)
	}
	if cfg.LLMModel != "gpt-4o-mini" {
		t.Fatalf("model = %q", cfg.LLMModel)
	}
	if cfg.LLMTimeout != 30*time.Second {
		t.Fatalf("timeout = %s", cfg.LLMTimeout)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("max upload = %d", cfg.MaxUploadBytes)
	}
	if cfg.HistoryStore != "memory" {
		t.Fatalf("history store = %q", cfg.HistoryStore)
	}
}

func TestLoadProviderSpecificDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "groq")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("LLM_TIMEOUT", "45")
	t.Setenv("DATABASE_URL", "postgres://localhost/history")
	t.Setenv("HISTORY_STORE", "")

	cfg := Load()
	if cfg.LLMModel != "llama3-70b-8192" {
		t.Fatalf("model = %q", cfg.LLMModel)
	}
	if cfg.LLMAPIKey != "gsk-test" {
		t.Fatalf("api key = %q", cfg.LLMAPIKey)
	}
	if cfg.LLMTimeout != 45*time.Second {
		t.Fatalf("timeout = %s", cfg.LLMTimeout)
	}
	if cfg.HistoryStore != "postgres" {
		t.Fatalf("history store = %q", cfg.HistoryStore)
	}
}

func TestGetEnvDurationRejectsGarbage(t *testing.T) {
	t.Setenv("X_TIMEOUT", "soon")
	if got := getEnvDuration("X_TIMEOUT", time.Second); got != time.Second {
		t.Fatalf("got %s", got)
	}
	t.Setenv("X_TIMEOUT", "1500ms")
	if got := getEnvDuration("X_TIMEOUT", time.Second); got != 1500*time.Millisecond {
		t.Fatalf("got %s", got)
	}
}
