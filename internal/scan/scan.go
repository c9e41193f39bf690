package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mls-go/internal/mls"
)

// MediaScanner discovers media files on the real filesystem. It is
// stateless: every Scan is a fresh traversal, so an unchanged tree always
// yields the same ordered result.
type MediaScanner struct {
	logger mls.Logger
}

// NewMediaScanner creates a scanner that reports unreadable entries through
// logger as warnings.
func NewMediaScanner(logger mls.Logger) *MediaScanner {
	return &MediaScanner{logger: logger}
}

// Scan walks root depth-first in lexicographic entry order and returns the
// regular files whose extensions are in allowed. Hidden entries (leading
// dot) are skipped, hidden directories along with their whole subtree.
// Symbolic links are never followed and never yielded.
//
// A missing or unreadable root fails the scan outright; an entry that
// cannot be read mid-walk is logged as a warning and skipped.
func (s *MediaScanner) Scan(root string, allowed mls.ExtensionSet) ([]mls.MediaFile, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", absRoot)
	}

	var files []mls.MediaFile
	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// A failure on the root itself means no partial results.
			if p == absRoot {
				return err
			}
			s.logger.Warn("skipping unreadable entry", "path", p, "error", err)
			return nil
		}
		if p == absRoot {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		// Excludes symlinks, devices, pipes and sockets.
		if !d.Type().IsRegular() {
			return nil
		}
		if !allowed.Contains(d.Name()) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			s.logger.Warn("skipping unreadable entry", "path", p, "error", err)
			return nil
		}
		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", p, err)
		}
		files = append(files, mls.MediaFile{
			Path:    p,
			RelPath: rel,
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", absRoot, err)
	}

	return files, nil
}

// Compile-time check that MediaScanner implements the mls.Scanner interface
var _ mls.Scanner = (*MediaScanner)(nil)
