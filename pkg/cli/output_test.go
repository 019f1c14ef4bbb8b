package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"mercator-hq/viewexport/pkg/export"
	"mercator-hq/viewexport/pkg/history"
	"mercator-hq/viewexport/pkg/record"
)

func sampleRuns() []history.Run {
	started := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)
	return []history.Run{
		{
			RunID:      "run-2",
			Entity:     "account",
			View:       "Active Accounts",
			ViewKind:   record.SystemView,
			Policy:     export.PolicyView,
			Status:     export.StatusFailure,
			Pages:      2,
			Error:      "retrieval of account page 2 failed",
			StartedAt:  started.Add(24 * time.Hour),
			FinishedAt: started.Add(24*time.Hour + 2*time.Second),
		},
		{
			RunID:      "run-1",
			Entity:     "account",
			View:       "Active Accounts",
			ViewKind:   record.SystemView,
			Policy:     export.PolicyView,
			Status:     export.StatusSuccess,
			Records:    1200,
			Pages:      1,
			Columns:    []string{"name", "accountnumber"},
			Path:       "output/account_20260302030000.csv",
			StartedAt:  started,
			FinishedAt: started.Add(1500 * time.Millisecond),
		},
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOutputFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTextFormatter_RunList(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatText).FormatTo(&buf, NewRunList(sampleRuns())); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "STARTED") || !strings.Contains(lines[0], "RECORDS") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "failure") || !strings.Contains(lines[1], "retrieval of account page 2 failed") {
		t.Errorf("failed run line = %q", lines[1])
	}
	if !strings.Contains(lines[2], "1200") || !strings.Contains(lines[2], "1.5s") || !strings.Contains(lines[2], "account_20260302030000.csv") {
		t.Errorf("successful run line = %q", lines[2])
	}
}

func TestTextFormatter_Plain(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextFormatter{}).FormatTo(&buf, "configuration is valid"); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if buf.String() != "configuration is valid\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestJSONFormatter_RunList(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatJSON).FormatTo(&buf, NewRunList(sampleRuns())); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var got []RunSummary
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if len(got) != 2 {
		t.Fatalf("got %d runs, want 2", len(got))
	}
	if got[0].Columns == nil {
		t.Error("columns of a failed run should encode as [] not null")
	}
	if got[1].Duration != "1.5s" || got[1].Records != 1200 || got[1].ViewKind != "system" {
		t.Errorf("run = %+v", got[1])
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("JSON output is not indented")
	}
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatCSV).FormatTo(&buf, NewRunList(sampleRuns())); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0][0] != "STARTED" || rows[2][4] != "1200" {
		t.Errorf("rows = %v", rows)
	}

	if err := (&CSVFormatter{}).FormatTo(&buf, 42); err == nil {
		t.Error("CSV output of a non-tabular value succeeded")
	}
}
