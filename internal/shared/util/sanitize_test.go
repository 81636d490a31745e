package util

import (
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "contract.pdf", want: "contract.pdf"},
		{in: "  Lease Agreement.pdf ", want: "Lease Agreement.pdf"},
		{in: "../../etc/passwd", want: "passwd"},
		{in: `C:\Users\me\policy.pdf`, want: "policy.pdf"},
		{in: "bad\x00name\n.pdf", want: "badname.pdf"},
	}
	for _, tt := range tests {
		got, err := SanitizeFileName(tt.in)
		if err != nil {
			t.Fatalf("SanitizeFileName(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFileNameRejects(t *testing.T) {
	for _, in := range []string{"", "   ", "..", "dir/", "a/.."} {
		if got, err := SanitizeFileName(in); err == nil {
			t.Fatalf("SanitizeFileName(%q) = %q, want error", in, got)
		}
	}
}

func TestSanitizeFileNameBoundsLength(t *testing.T) {
	got, err := SanitizeFileName(strings.Repeat("é", 150) + ".pdf")
	if err != nil {
		t.Fatalf("SanitizeFileName: %v", err)
	}
	if len(got) > MaxFileNameLength {
		t.Fatalf("length %d exceeds bound", len(got))
	}
}
