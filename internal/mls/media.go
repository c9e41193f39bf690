package mls

import (
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// MediaFile represents one candidate file discovered under a scan root.
// Identity is the canonical absolute path: renaming or moving a file yields
// a new identity. Size and ModTime are carried for display and logging only.
type MediaFile struct {
	Path    string // absolute path, the tracking key
	RelPath string // relative to the scan root, for display
	Size    int64
	ModTime time.Time
}

// ExtensionSet is a case-insensitive set of file extensions. Entries are
// stored normalized: lower case with a leading dot.
type ExtensionSet map[string]struct{}

// NewExtensionSet builds a set from extensions given with or without the
// leading dot, in any case.
func NewExtensionSet(exts ...string) ExtensionSet {
	set := make(ExtensionSet, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}

// Contains reports whether name's extension is in the set.
func (s ExtensionSet) Contains(name string) bool {
	_, ok := s[strings.ToLower(filepath.Ext(name))]
	return ok
}

// List returns the extensions sorted, for display.
func (s ExtensionSet) List() []string {
	out := make([]string, 0, len(s))
	for ext := range s {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// DefaultExtensions covers the common audio containers plus the video
// containers music services accept uploads in.
func DefaultExtensions() ExtensionSet {
	return NewExtensionSet(
		".mp3", ".m4a", ".flac", ".wav", ".aac", ".ogg", ".oga", ".wma", ".opus", ".aiff", ".alac",
		".mp4", ".m4v", ".mov", ".webm", ".mkv",
	)
}
