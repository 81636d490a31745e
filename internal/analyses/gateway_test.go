package analyses

import (
	"testing"

	"summarize-backend/internal/parse"
)

func TestGatewayAcceptsPDFMediaTypes(t *testing.T) {
	g := Gateway{MaxBytes: 1024}
	for _, ct := range []string{"application/pdf", "application/x-pdf", "Application/PDF; charset=binary"} {
		if err := g.Validate(Upload{FileName: "a.pdf", ContentType: ct, Size: 10, Data: make([]byte, 10)}); err != nil {
			t.Fatalf("content type %q rejected: %v", ct, err)
		}
	}
}

func TestGatewayLimitUsesLargerOfDeclaredAndActualSize(t *testing.T) {
	g := Gateway{MaxBytes: 8}
	if err := g.Validate(Upload{FileName: "a.pdf", ContentType: "application/pdf", Size: 1, Data: make([]byte, 9)}); err == nil {
		t.Fatal("expected oversized payload to be rejected")
	}
	if got := (Gateway{}).maxBytes(); got != int64(DefaultMaxUploadBytes) {
		t.Fatalf("default max bytes = %d, want %d", got, DefaultMaxUploadBytes)
	}
}

func TestResultCache(t *testing.T) {
	var disabled *ResultCache
	disabled.Add("k", parse.Result{Summary: "s"})
	if _, ok := disabled.Get("k"); ok {
		t.Fatal("nil cache should never hit")
	}

	c, err := NewResultCache(0)
	if err != nil {
		t.Fatalf("NewResultCache(0): %v", err)
	}
	if c != nil {
		t.Fatal("size 0 should disable the cache")
	}

	c, err = NewResultCache(1)
	if err != nil {
		t.Fatalf("NewResultCache(1): %v", err)
	}
	c.Add("a", parse.Result{Summary: "first", KeyPoints: []string{"k"}, Actions: []string{"x"}})
	got, ok := c.Get("a")
	if !ok {
		t.Fatal("expected cache hit")
	}
	got.KeyPoints[0] = "mutated"
	if again, _ := c.Get("a"); again.KeyPoints[0] != "k" {
		t.Fatalf("cached result was mutated through a returned copy: %v", again.KeyPoints)
	}

	c.Add("b", parse.Result{Summary: "second"})
	if _, ok := c.Get("a"); ok {
		t.Fatal("oldest entry should be evicted")
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}
