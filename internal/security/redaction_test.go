package security_test

import (
	"strings"
	"testing"

	"focustrack/internal/security"
)

func TestRedactTitle(t *testing.T) {
	in := `vim .env token=abc123 password:supersecret - Terminal`
	out := security.RedactTitle(in)

	for _, leaked := range []string{"abc123", "supersecret"} {
		if strings.Contains(out, leaked) {
			t.Fatalf("secret %q leaked: %q", leaked, out)
		}
	}
	if !strings.Contains(out, "token=[REDACTED]") || !strings.Contains(out, "password:[REDACTED]") {
		t.Fatalf("unexpected redaction: %q", out)
	}
	if !strings.HasPrefix(out, "vim .env ") || !strings.HasSuffix(out, " - Terminal") {
		t.Fatalf("surrounding text mangled: %q", out)
	}
}

func TestRedactTitleURLQuery(t *testing.T) {
	in := "Dashboard https://example.com/x?id=7&access_token=eyJabc.def - Chromium"
	out := security.RedactTitle(in)
	if strings.Contains(out, "eyJabc") {
		t.Fatalf("token leaked: %q", out)
	}
	if !strings.Contains(out, "id=7") {
		t.Fatalf("harmless query param lost: %q", out)
	}
}

func TestRedactTitleBearer(t *testing.T) {
	out := security.RedactTitle("curl -H 'Authorization: Bearer eyJhbGci.payload' - Terminal")
	if strings.Contains(out, "eyJhbGci") {
		t.Fatalf("token leaked: %q", out)
	}
}

func TestRedactTitlePassthrough(t *testing.T) {
	in := "main.go - Editor"
	if out := security.RedactTitle(in); out != in {
		t.Fatalf("expected passthrough, got %q", out)
	}
	if out := security.RedactTitle(""); out != "" {
		t.Fatalf("expected empty, got %q", out)
	}
}
