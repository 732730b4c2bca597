package store

import (
	"path/filepath"
	"testing"
)

func TestMigrateDirMissingDirectory(t *testing.T) {
	p := &Postgres{}
	if err := p.MigrateDir(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("missing migration directory must surface an error")
	}
}

func TestMigrateDirEmptyDirectory(t *testing.T) {
	// No .sql files means nothing to apply and no error.
	p := &Postgres{}
	if err := p.MigrateDir(t.TempDir()); err != nil {
		t.Fatalf("empty directory: %v", err)
	}
}
