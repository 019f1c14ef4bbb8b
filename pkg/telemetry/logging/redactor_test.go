package logging

import (
	"log/slog"
	"strings"
	"testing"
)

func TestRedactor_RedactString(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bearer", "Authorization: Bearer abc.def-ghi", "Authorization: Bearer ***"},
		{"form", "grant_type=password&username=u&password=p4ss", "grant_type=password&username=u&password=***"},
		{"json", `{"access_token":"tok","expires_in":3600}`, `{"access_token":"***","expires_in":3600}`},
		{"plain", "retrieved page 3 of account", "retrieved page 3 of account"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.RedactString(tt.input); got != tt.want {
				t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactor_IsSensitiveKey(t *testing.T) {
	r := NewRedactor()

	for _, key := range []string{"password", "Client_Secret", "access_token", "Authorization", "credentials"} {
		if !r.IsSensitiveKey(key) {
			t.Errorf("IsSensitiveKey(%q) = false", key)
		}
	}
	for _, key := range []string{"entity", "view", "client_id", "records", "authority"} {
		if r.IsSensitiveKey(key) {
			t.Errorf("IsSensitiveKey(%q) = true", key)
		}
	}
}

func TestRedactor_RedactAttr(t *testing.T) {
	r := NewRedactor()

	got := r.RedactAttr(slog.Group("auth",
		slog.String("username", "alice"),
		slog.String("password", "p4ss"),
		slog.Int("token_ttl", 3600),
	))

	out := got.String()
	if strings.Contains(out, "p4ss") || strings.Contains(out, "3600") {
		t.Errorf("group not redacted: %s", out)
	}
	if !strings.Contains(out, "alice") {
		t.Errorf("username should be kept: %s", out)
	}

	if a := r.RedactAttr(slog.String("password", "")); a.Value.String() != "" {
		t.Errorf("empty secret should stay empty, got %q", a.Value.String())
	}
}
