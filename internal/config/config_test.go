package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileLoaderLoadDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	l := NewFileLoader(filepath.Join(dir, "config.json"))

	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Nodes.MaxNodes != 64 {
		t.Errorf("MaxNodes = %d, want 64", cfg.Nodes.MaxNodes)
	}
	if !cfg.Guests.Allow || !cfg.Guests.AskInfo {
		t.Errorf("guest defaults = %+v, want allow/askinfo both true", cfg.Guests)
	}
}

func TestFileLoaderSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	l := NewFileLoader(path)

	cfg := Default()
	cfg.BBS.Name = "Test Board"
	cfg.Nodes.MaxNodes = 8

	if err := l.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.BBS.Name != "Test Board" || loaded.Nodes.MaxNodes != 8 {
		t.Errorf("loaded = %+v, want Name=Test Board MaxNodes=8", loaded)
	}
}

func TestFileLoaderWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	l := NewFileLoader(path)
	l.debounce = 10 * time.Millisecond

	if err := l.Save(Default()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan Config, 1)
	if err := l.Watch(ctx, func(c Config) { changed <- c }); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	updated := Default()
	updated.BBS.Name = "Reloaded"
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	_ = data
	if err := l.Save(updated); err != nil {
		t.Fatalf("Save: %v", err)
	}

	select {
	case cfg := <-changed:
		if cfg.BBS.Name != "Reloaded" {
			t.Errorf("cfg.BBS.Name = %q, want Reloaded", cfg.BBS.Name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watch callback")
	}
}
