package history

import "testing"

func TestDialectRebind(t *testing.T) {
	query := "INSERT INTO t (a, b, c) VALUES (?, ?, ?)"

	tests := []struct {
		driver string
		want   string
	}{
		{"sqlite", query},
		{"sqlite3", query},
		{"mysql", query},
		{"postgres", "INSERT INTO t (a, b, c) VALUES ($1, $2, $3)"},
		{"pgx", "INSERT INTO t (a, b, c) VALUES ($1, $2, $3)"},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, err := lookupDialect(tt.driver)
			if err != nil {
				t.Fatalf("lookupDialect(%q) error = %v", tt.driver, err)
			}
			if got := d.rebind(query); got != tt.want {
				t.Errorf("rebind() = %q, want %q", got, tt.want)
			}
			if len(d.schema) == 0 {
				t.Error("dialect has no schema statements")
			}
		})
	}
}

func TestLookupDialect_Unknown(t *testing.T) {
	if _, err := lookupDialect("oracle"); err == nil {
		t.Error("lookupDialect(oracle) succeeded, want error")
	}
}
