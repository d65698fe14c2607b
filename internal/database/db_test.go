package database

import (
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_quote_index.up.sql":    {Data: []byte("CREATE INDEX ...")},
		"001_stock_quotes.up.sql":   {Data: []byte("CREATE TABLE ...")},
		"001_stock_quotes.down.sql": {Data: []byte("DROP TABLE ...")},
		"README.md":                 {Data: []byte("notes")},
		"archive/000_old.up.sql":    {Data: []byte("-- old")},
	}

	tests := []struct {
		name    string
		applied map[string]bool
		want    []string
	}{
		{"fresh database", map[string]bool{}, []string{"001_stock_quotes.up.sql", "002_quote_index.up.sql"}},
		{"partially applied", map[string]bool{"001_stock_quotes.up.sql": true}, []string{"002_quote_index.up.sql"}},
		{"up to date", map[string]bool{"001_stock_quotes.up.sql": true, "002_quote_index.up.sql": true}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pendingMigrations(fsys, tt.applied)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}
