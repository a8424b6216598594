package util

import (
	"strings"
	"testing"
)

func TestTruncateLog(t *testing.T) {
	short := "hello"
	if got := TruncateLog(short, 10); got != short {
		t.Fatalf("short string must pass through, got %q", got)
	}

	long := strings.Repeat("x", 100)
	got := TruncateLog(long, 10)
	if !strings.HasPrefix(got, "xxxxxxxxxx...") {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if !strings.Contains(got, "100 bytes total") {
		t.Fatalf("expected total size in marker: %q", got)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"short", "***"},
		{"pat_0123456789abcdef0123456789abcdef", "...abcdef"},
	}
	for _, tt := range tests {
		if got := MaskSecret(tt.in); got != tt.want {
			t.Fatalf("MaskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaskSecretNeverLeaksFullValue(t *testing.T) {
	secret := "sk-abcdefghijklmnopqrstuvwxyz012345"
	if MaskSecret(secret) == secret {
		t.Fatal("masked value must differ from the secret")
	}
	if strings.Contains(MaskSecret(secret), secret[:10]) {
		t.Fatal("masked value must not contain the secret prefix")
	}
}
