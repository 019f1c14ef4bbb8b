package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestEnvProvider_Get(t *testing.T) {
	t.Setenv("VIEWEXPORT_SECRET_DATAVERSE_CLIENT_SECRET", "env-value")

	p := NewEnvProvider("VIEWEXPORT_SECRET_")
	value, err := p.Get(context.Background(), "dataverse-client-secret")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if value != "env-value" {
		t.Errorf("Get() = %q, want %q", value, "env-value")
	}

	_, err = p.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEnvProvider_EnvVar(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "token", want: "P_TOKEN"},
		{name: "client-secret", want: "P_CLIENT_SECRET"},
		{name: "history.password", want: "P_HISTORY_PASSWORD"},
	}

	p := NewEnvProvider("P_")
	for _, tt := range tests {
		if got := p.envVar(tt.name); got != tt.want {
			t.Errorf("envVar(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func writeSecret(t *testing.T, dir, name, value string, perm os.FileMode) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(value), perm); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, perm); err != nil {
		t.Fatal(err)
	}
}

func TestFileProvider_Get(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "client-secret", "file-value\n", 0o600)
	writeSecret(t, dir, "readonly", "ro", 0o400)

	p, err := NewFileProvider(dir)
	if err != nil {
		t.Fatalf("NewFileProvider() error = %v", err)
	}

	value, err := p.Get(context.Background(), "client-secret")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if value != "file-value" {
		t.Errorf("Get() = %q, want trimmed value", value)
	}

	if value, err := p.Get(context.Background(), "readonly"); err != nil || value != "ro" {
		t.Errorf("Get(readonly) = %q, %v", value, err)
	}

	if _, err := p.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileProvider_Rejects(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "open", "value", 0o644)
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o700); err != nil {
		t.Fatal(err)
	}

	p, err := NewFileProvider(dir)
	if err != nil {
		t.Fatalf("NewFileProvider() error = %v", err)
	}

	tests := []struct {
		name    string
		secret  string
		wantErr string
		skip    bool
	}{
		{name: "insecure permissions", secret: "open", wantErr: "insecure permissions", skip: runtime.GOOS == "windows"},
		{name: "directory", secret: "nested", wantErr: "not a regular file"},
		{name: "traversal", secret: "../outside", wantErr: "directory traversal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.skip {
				t.Skip("permission bits are not reported on this platform")
			}
			_, err := p.Get(context.Background(), tt.secret)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
			if errors.Is(err, ErrNotFound) {
				t.Error("rejections must not look like a missing secret")
			}
		})
	}
}

func TestNewFileProvider_Errors(t *testing.T) {
	if _, err := NewFileProvider(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for a missing directory")
	}

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileProvider(file); err == nil {
		t.Error("expected error for a file")
	}
}

func TestResolver_Order(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "token", "from-file", 0o600)
	t.Setenv("TEST_SECRET_TOKEN", "from-env")

	files, err := NewFileProvider(dir)
	if err != nil {
		t.Fatal(err)
	}

	envFirst := NewResolver(nil, NewEnvProvider("TEST_SECRET_"), files)
	if value, _ := envFirst.Get(context.Background(), "token"); value != "from-env" {
		t.Errorf("env first: Get() = %q", value)
	}

	filesFirst := NewResolver(nil, files, NewEnvProvider("TEST_SECRET_"))
	if value, _ := filesFirst.Get(context.Background(), "token"); value != "from-file" {
		t.Errorf("files first: Get() = %q", value)
	}

	if _, err := filesFirst.Get(context.Background(), "absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResolver_Expand(t *testing.T) {
	t.Setenv("TEST_SECRET_DB_USER", "exporter")
	t.Setenv("TEST_SECRET_DB_PASSWORD", "p@ss")
	r := NewResolver(nil, NewEnvProvider("TEST_SECRET_"))

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "no reference", input: "plain-value", want: "plain-value"},
		{name: "whole value", input: "${secret:db-password}", want: "p@ss"},
		{
			name:  "embedded",
			input: "postgres://${secret:db-user}:${secret:db-password}@db/history",
			want:  "postgres://exporter:p@ss@db/history",
		},
		{name: "unresolved", input: "${secret:db-user}:${secret:missing}", wantErr: true},
		{name: "unterminated is literal", input: "${secret:db-user", want: "${secret:db-user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Expand(context.Background(), tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got %q", got)
				}
				if strings.Contains(err.Error(), "exporter") {
					t.Errorf("error leaks a resolved value: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expand() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Expand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHasReference(t *testing.T) {
	if !HasReference("x${secret:a}y") {
		t.Error("expected a reference")
	}
	if HasReference("${env:a}") {
		t.Error("only secret references are recognized")
	}
}

func TestRedactName(t *testing.T) {
	if got := redactName("abc"); got != "***" {
		t.Errorf("redactName(short) = %q", got)
	}
	if got := redactName("client-secret"); got != "cl...et" {
		t.Errorf("redactName() = %q", got)
	}
}
