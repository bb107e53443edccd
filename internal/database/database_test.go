package database

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrations_Paired(t *testing.T) {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(names) == 0 {
		t.Fatal("expected embedded migrations")
	}

	ups := make(map[string]bool)
	downs := make(map[string]bool)
	for _, n := range names {
		switch {
		case strings.HasSuffix(n, ".up.sql"):
			ups[strings.TrimSuffix(n, ".up.sql")] = true
		case strings.HasSuffix(n, ".down.sql"):
			downs[strings.TrimSuffix(n, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file %s", n)
		}
	}
	for base := range ups {
		if !downs[base] {
			t.Errorf("expected down migration for %s", base)
		}
	}
	if len(ups) != len(downs) {
		t.Errorf("expected %d down migrations, got %d", len(ups), len(downs))
	}
}
