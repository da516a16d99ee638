package catalog_test

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"launcherd/internal/catalog"
	"launcherd/internal/fault"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "games.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestLoad(t *testing.T) {
	path := writeCatalog(t, `{
		"games": [
			{"id": "alpha", "name": "Alpha Quest", "install_path": "/games/alpha", "executable_path": "alpha.exe", "version": "1.2.0"},
			{"id": "beta", "name": "Beta Blast", "install_path": "", "executable_path": "beta", "version": "0.9"}
		]
	}`)

	c, err := catalog.Load(path, discard())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	rec, ok := c.Get("alpha")
	if !ok {
		t.Fatal("Get(alpha) not found")
	}
	if rec.Name != "Alpha Quest" || rec.ExecutablePath != "alpha.exe" || rec.Version != "1.2.0" {
		t.Errorf("unexpected record: %+v", rec)
	}

	titles := c.Titles()
	if len(titles) != 2 {
		t.Fatalf("len(Titles) = %d, want 2", len(titles))
	}
	if titles[0].ID != "alpha" || titles[1].ID != "beta" {
		t.Errorf("titles not sorted by id: %v, %v", titles[0].ID, titles[1].ID)
	}
}

func TestLoadSkipsEntriesWithoutID(t *testing.T) {
	path := writeCatalog(t, `{"games": [{"name": "nameless"}, {"id": "ok", "name": "OK"}]}`)

	c, err := catalog.Load(path, discard())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Titles()) != 1 {
		t.Errorf("len(Titles) = %d, want 1", len(c.Titles()))
	}
}

func TestLoadDuplicateIDLastWins(t *testing.T) {
	path := writeCatalog(t, `{"games": [
		{"id": "alpha", "version": "1.0"},
		{"id": "alpha", "version": "2.0"}
	]}`)

	c, err := catalog.Load(path, discard())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rec, _ := c.Get("alpha")
	if rec.Version != "2.0" {
		t.Errorf("Version = %q, want %q (last entry wins)", rec.Version, "2.0")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := catalog.Load(filepath.Join(t.TempDir(), "missing.json"), discard()); !errors.Is(err, fault.ErrNotFound) {
		t.Errorf("missing file error = %v, want ErrNotFound", err)
	}

	badJSON := writeCatalog(t, `{{{`)
	if _, err := catalog.Load(badJSON, discard()); !errors.Is(err, fault.ErrInvalidArgument) {
		t.Errorf("bad JSON error = %v, want ErrInvalidArgument", err)
	}

	noGames := writeCatalog(t, `{"titles": []}`)
	if _, err := catalog.Load(noGames, discard()); !errors.Is(err, fault.ErrInvalidArgument) {
		t.Errorf("missing games array error = %v, want ErrInvalidArgument", err)
	}
}
