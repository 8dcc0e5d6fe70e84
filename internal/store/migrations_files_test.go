package store

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"testing/fstest"

	schema "atomdeck/api/db"
	"github.com/google/go-cmp/cmp"
)

func TestMigrationsHaveMatchingUpAndDownFiles(t *testing.T) {
	migrationsDir := filepath.Join("..", "..", "db", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	pattern := regexp.MustCompile(`^(\d+)_.*\.(up|down)\.sql$`)
	byVersion := map[string]map[string]bool{}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		match := pattern.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		version := match[1]
		direction := match[2]
		if byVersion[version] == nil {
			byVersion[version] = map[string]bool{}
		}
		if byVersion[version][direction] {
			t.Fatalf("duplicate %s migration file for version %s", direction, version)
		}
		byVersion[version][direction] = true
	}

	if len(byVersion) == 0 {
		t.Fatal("no migrations discovered")
	}

	for version, dirs := range byVersion {
		if !dirs["up"] || !dirs["down"] {
			t.Fatalf("version %s must include both up and down files", version)
		}
	}
}

func TestUpMigrationsAreSortedAndFiltered(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_assets.up.sql":  {Data: []byte("SELECT 2")},
		"0001_init.up.sql":    {Data: []byte("SELECT 1")},
		"0001_init.down.sql":  {Data: []byte("SELECT 0")},
		"README.md":           {Data: []byte("notes")},
		"archive/0000.up.sql": {Data: []byte("SELECT 0")},
		"0010_search.up.sql":  {Data: []byte("SELECT 10")},
	}
	got, err := upMigrations(fsys)
	if err != nil {
		t.Fatalf("upMigrations() error = %v", err)
	}
	want := []string{"0001_init.up.sql", "0002_assets.up.sql", "0010_search.up.sql"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("upMigrations() mismatch (-want +got):\n%s", diff)
	}
}

func TestEmbeddedSchemaMatchesMigrationsDir(t *testing.T) {
	embedded, err := fs.Sub(schema.Migrations, "migrations")
	if err != nil {
		t.Fatalf("fs.Sub() error = %v", err)
	}
	fromEmbed, err := upMigrations(embedded)
	if err != nil {
		t.Fatalf("upMigrations(embedded) error = %v", err)
	}
	fromDisk, err := upMigrations(os.DirFS(filepath.Join("..", "..", "db", "migrations")))
	if err != nil {
		t.Fatalf("upMigrations(disk) error = %v", err)
	}
	if len(fromEmbed) == 0 {
		t.Fatal("embedded schema carries no migrations")
	}
	if diff := cmp.Diff(fromDisk, fromEmbed); diff != "" {
		t.Fatalf("embedded migrations drifted (-disk +embedded):\n%s", diff)
	}
}
