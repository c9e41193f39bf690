package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates a file (and any parent directories) under dir with the
// given content, returning its absolute path.
func WriteFile(t *testing.T, dir, rel string, content []byte) string {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating parent directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("writing %s: %v", rel, err)
	}
	return path
}

// MediaTree lays out a small library under dir:
//
//	a.mp3
//	b.flac
//	c.txt        (not media)
//	d/e.mp3
//	.hidden/f.mp3
//
// and returns dir for convenience.
func MediaTree(t *testing.T, dir string) string {
	t.Helper()

	WriteFile(t, dir, "a.mp3", []byte("aa"))
	WriteFile(t, dir, "b.flac", []byte("bb"))
	WriteFile(t, dir, "c.txt", []byte("cc"))
	WriteFile(t, dir, "d/e.mp3", []byte("ee"))
	WriteFile(t, dir, ".hidden/f.mp3", []byte("ff"))
	return dir
}
