package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestCSVWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.csv")

	w, err := CreateCSV(path, CSVOptions{UseCRLF: true})
	if err != nil {
		t.Fatalf("CreateCSV() error = %v", err)
	}

	header := []string{"name", "description", "revenue"}
	rows := []NormalizedRow{
		{"Contoso, Ltd.", `He said "hi"`, "10.50"},
		{"Fabrikam", "line one\nline two", ""},
		{"", "", "0"},
	}
	if err := w.WriteHeader(header); err != nil {
		t.Fatalf("WriteHeader() error = %v", err)
	}
	for _, row := range rows {
		if err := w.WriteRow(row); err != nil {
			t.Fatalf("WriteRow() error = %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if w.Rows() != len(rows) {
		t.Errorf("Rows() = %d", w.Rows())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Contains(data, []byte("\r\n")) {
		t.Error("expected CRLF record separators")
	}
	if !bytes.Contains(data, []byte(`"Contoso, Ltd."`)) || !bytes.Contains(data, []byte(`"He said ""hi"""`)) {
		t.Errorf("fields not quoted as expected:\n%s", data)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(records) != len(rows)+1 {
		t.Fatalf("got %d records, want %d", len(records), len(rows)+1)
	}
	if !reflect.DeepEqual(records[0], header) {
		t.Errorf("header = %v", records[0])
	}
	for i, row := range rows {
		if !reflect.DeepEqual(records[i+1], []string(row)) {
			t.Errorf("row %d = %q, want %q", i, records[i+1], row)
		}
	}
}

func TestCSVWriter_Options(t *testing.T) {
	tests := []struct {
		name string
		opts CSVOptions
		want string
	}{
		{"plain", CSVOptions{}, "a,b\n1,2\n"},
		{"bom", CSVOptions{UseBOM: true}, "\xEF\xBB\xBFa,b\n1,2\n"},
		{"crlf", CSVOptions{UseCRLF: true}, "a,b\r\n1,2\r\n"},
		{"semicolon", CSVOptions{Delimiter: ';'}, "a;b\n1;2\n"},
		{"tab bom crlf", CSVOptions{Delimiter: '\t', UseBOM: true, UseCRLF: true}, "\xEF\xBB\xBFa\tb\r\n1\t2\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.csv")
			w, err := CreateCSV(path, tt.opts)
			if err != nil {
				t.Fatalf("CreateCSV() error = %v", err)
			}
			if err := w.WriteHeader([]string{"a", "b"}); err != nil {
				t.Fatal(err)
			}
			if err := w.WriteRow(NormalizedRow{"1", "2"}); err != nil {
				t.Fatal(err)
			}
			if err := w.Close(); err != nil {
				t.Fatal(err)
			}

			data, _ := os.ReadFile(path)
			if string(data) != tt.want {
				t.Errorf("file = %q, want %q", data, tt.want)
			}
		})
	}
}

func TestCSVWriter_TruncatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := os.WriteFile(path, []byte(strings.Repeat("old data\n", 100)), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := CreateCSV(path, CSVOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteHeader([]string{"a"}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "a\n" {
		t.Errorf("file = %q", data)
	}
}

func TestCSVWriter_Abort(t *testing.T) {
	t.Run("direct keeps written rows", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.csv")
		w, err := CreateCSV(path, CSVOptions{})
		if err != nil {
			t.Fatal(err)
		}
		_ = w.WriteHeader([]string{"a"})
		_ = w.WriteRow(NormalizedRow{"1"})
		if err := w.Abort(); err != nil {
			t.Fatalf("Abort() error = %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("partial output should remain: %v", err)
		}
		if string(data) != "a\n1\n" {
			t.Errorf("file = %q", data)
		}
	})

	t.Run("atomic removes partial file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "out.csv")
		if err := os.WriteFile(path, []byte("previous\n"), 0644); err != nil {
			t.Fatal(err)
		}

		w, err := CreateCSV(path, CSVOptions{Atomic: true})
		if err != nil {
			t.Fatal(err)
		}
		_ = w.WriteHeader([]string{"a"})
		if _, err := os.Stat(path + ".partial"); err != nil {
			t.Fatalf("partial file should exist while writing: %v", err)
		}
		if err := w.Abort(); err != nil {
			t.Fatalf("Abort() error = %v", err)
		}

		if _, err := os.Stat(path + ".partial"); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("partial file should be removed, stat err = %v", err)
		}
		data, _ := os.ReadFile(path)
		if string(data) != "previous\n" {
			t.Errorf("previous output should be untouched, got %q", data)
		}
	})

	t.Run("atomic rename on close", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.csv")
		w, err := CreateCSV(path, CSVOptions{Atomic: true})
		if err != nil {
			t.Fatal(err)
		}
		_ = w.WriteHeader([]string{"a"})
		if err := w.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if err := w.Abort(); err != nil {
			t.Errorf("Abort() after Close() should be a no-op, got %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil || string(data) != "a\n" {
			t.Errorf("file = %q, err = %v", data, err)
		}
		if _, err := os.Stat(path + ".partial"); !errors.Is(err, os.ErrNotExist) {
			t.Error("partial file should be gone after rename")
		}
	})
}

func TestCreateCSV_IOError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	_, err := CreateCSV(filepath.Join(blocker, "out.csv"), CSVOptions{})
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected *IOError, got %T: %v", err, err)
	}
}

func TestResolveFileName(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	tests := []struct {
		template string
		want     string
	}{
		{"{entity}_{timestamp}.csv", "account_20240102030405.csv"},
		{"export.csv", "export.csv"},
		{"{entity}/{entity}.csv", "account/account.csv"},
	}
	for _, tt := range tests {
		if got := ResolveFileName(tt.template, "account", now); got != tt.want {
			t.Errorf("ResolveFileName(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
}
