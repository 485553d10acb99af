package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for nil callback")
	}
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestNewWatcher_RejectsBadGlob(t *testing.T) {
	_, err := NewWatcher(100*time.Millisecond, []string{"["}, nil, func([]string) {})
	if err == nil {
		t.Fatal("expected error for invalid exclude glob")
	}
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()

	changedFiles := make(chan []string, 4)
	w, err := NewWatcher(100*time.Millisecond, []string{"exclude_dir"}, []string{"*.backup.gd"}, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	// A source file change must come through.
	testFile := filepath.Join(tmpDir, "player.gd")
	os.WriteFile(testFile, []byte("func _ready():\n\tpass\n"), 0644)

	select {
	case paths := <-changedFiles:
		found := false
		for _, p := range paths {
			if p == testFile {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected %s in changed files %v", testFile, paths)
		}
	case <-time.After(2 * time.Second):
		t.Error("timed out waiting for file change event")
	}

	// Non-source and excluded files stay silent.
	os.WriteFile(filepath.Join(tmpDir, "player.png"), []byte{0x89}, 0644)
	os.WriteFile(filepath.Join(tmpDir, "old.backup.gd"), []byte("func x():\n\tpass\n"), 0644)

	select {
	case paths := <-changedFiles:
		for _, p := range paths {
			base := filepath.Base(p)
			if base == "player.png" || base == "old.backup.gd" {
				t.Errorf("filtered file triggered event: %s", p)
			}
		}
	case <-time.After(500 * time.Millisecond):
		// Expected
	}

	// New directory should be recursively watched after create.
	subdir := filepath.Join(tmpDir, "scenes")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatal(err)
	}
	subFile := filepath.Join(subdir, "level.tscn")
	if err := os.WriteFile(subFile, []byte("[gd_scene format=3]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	foundNested := false
	timeout := time.After(2 * time.Second)
	for !foundNested {
		select {
		case paths := <-changedFiles:
			for _, p := range paths {
				if p == subFile {
					foundNested = true
				}
			}
		case <-timeout:
			t.Fatal("timed out waiting for nested file event")
		}
	}
}

func TestWatcherCoalescesBurst(t *testing.T) {
	tmpDir := t.TempDir()

	changedFiles := make(chan []string, 4)
	w, err := NewWatcher(200*time.Millisecond, nil, nil, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	a := filepath.Join(tmpDir, "a.gd")
	b := filepath.Join(tmpDir, "b.gd")
	os.WriteFile(a, []byte("var x = 1\n"), 0644)
	os.WriteFile(b, []byte("var y = 2\n"), 0644)

	select {
	case paths := <-changedFiles:
		if len(paths) != 2 {
			t.Errorf("burst delivered %d paths, want both in one batch: %v", len(paths), paths)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for batch")
	}
}
