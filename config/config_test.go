package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/stasis/store"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[checkpoint]
reserved-modules = ["builtins", "sys", "_native"]

[store]
dir = "/var/lib/stasis"
compression = "lz4"

[log]
verbosity = 2
file = "stasis.log"
`)

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(c.Checkpoint.ReservedModules) != 3 || c.Checkpoint.ReservedModules[2] != "_native" {
		t.Errorf("reserved modules = %v", c.Checkpoint.ReservedModules)
	}
	if c.StoreDir() != "/var/lib/stasis" {
		t.Errorf("store dir = %q, want /var/lib/stasis", c.StoreDir())
	}
	opts, err := c.StoreOptions()
	if err != nil {
		t.Fatalf("StoreOptions failed: %v", err)
	}
	if opts.Compression != store.CompressionLZ4 {
		t.Errorf("compression = %s, want lz4", opts.Compression)
	}
	if c.Log.Verbosity != 2 {
		t.Errorf("verbosity = %d, want 2", c.Log.Verbosity)
	}
	abs, _ := filepath.Abs(dir)
	if lf := c.LogFile(); lf == nil || *lf != filepath.Join(abs, "stasis.log") {
		t.Errorf("log file = %v, want %s", lf, filepath.Join(abs, "stasis.log"))
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[log]\nverbosity = 1\n")

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if strings.Join(c.Checkpoint.ReservedModules, ",") != "builtins,sys" {
		t.Errorf("reserved modules = %v, want [builtins sys]", c.Checkpoint.ReservedModules)
	}
	if c.Store.Compression != "zstd" {
		t.Errorf("compression = %q, want zstd", c.Store.Compression)
	}
	abs, _ := filepath.Abs(dir)
	if c.StoreDir() != filepath.Join(abs, ".stasis") {
		t.Errorf("store dir = %q, want %s", c.StoreDir(), filepath.Join(abs, ".stasis"))
	}
	if c.LogFile() != nil {
		t.Errorf("log file = %q, want stderr", *c.LogFile())
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[store\n", "parse error"},
		{"unknown key", "[store]\nlocation = \"x\"\n", "unknown key"},
		{"bad compression", "[store]\ncompression = \"gzip\"\n", "store.compression"},
		{"negative verbosity", "[log]\nverbosity = -1\n", "log.verbosity"},
		{"empty module", "[checkpoint]\nreserved-modules = [\"\"]\n", "reserved-modules"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)
			_, err := Load(dir)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("expected error for missing stasis.toml")
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[store]\ncompression = \"none\"\n")

	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	c, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	abs, _ := filepath.Abs(root)
	if c.Dir != abs {
		t.Errorf("config dir = %q, want %q", c.Dir, abs)
	}
	if c.Store.Compression != "none" {
		t.Errorf("compression = %q, want none", c.Store.Compression)
	}
}

func TestFindAndLoadFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	c, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if c.Store.Compression != "zstd" || c.Store.Dir != ".stasis" {
		t.Errorf("default store = %+v", c.Store)
	}
	abs, _ := filepath.Abs(dir)
	if c.Dir != abs {
		t.Errorf("default dir = %q, want %q", c.Dir, abs)
	}
}
