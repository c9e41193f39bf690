package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"mls-go/internal/mls"
)

// FileSystemRemote mirrors uploads into a local library root, preserving
// each file's scan-relative path. It serves mounted NAS shares and portable
// drives.
type FileSystemRemote struct {
	name string
	root string
}

// NewFileSystemRemote creates a filesystem remote rooted at the given path,
// creating the root if needed.
func NewFileSystemRemote(name, root string) (*FileSystemRemote, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create library root: %w", err)
	}
	return &FileSystemRemote{name: name, root: root}, nil
}

// Upload copies the file under the library root and returns the destination
// path. The copy is atomic (temp file + rename), so a torn copy never
// appears at the final path.
func (r *FileSystemRemote) Upload(_ context.Context, file mls.MediaFile) (string, error) {
	src, err := os.Open(file.Path)
	if err != nil {
		return "", fmt.Errorf("opening source: %w", err)
	}
	defer src.Close()

	dest := filepath.Join(r.root, file.RelPath)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("creating destination directory: %w", err)
	}
	if err := writeFile(dest, src, file.Size); err != nil {
		return "", err
	}
	return dest, nil
}

// ValidateSetup verifies that the library root is an accessible directory.
func (r *FileSystemRemote) ValidateSetup(context.Context) error {
	info, err := os.Stat(r.root)
	if err != nil {
		return fmt.Errorf("library root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("library root is not a directory: %s", r.root)
	}
	return nil
}

// writeFile writes data from rd to the specified path using atomic write
// (temp file + rename). The size check catches files that changed while
// being copied.
func writeFile(destPath string, rd io.Reader, expectedSize int64) error {
	// Create temp file in the same directory to ensure atomic rename works
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on failure
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, rd)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileSystemRemote implements the mls.Remote interface
var _ mls.Remote = (*FileSystemRemote)(nil)
