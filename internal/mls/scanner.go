package mls

// Scanner enumerates candidate media files under a root directory.
type Scanner interface {
	// Scan walks root depth-first, entries in lexicographic order, and
	// returns the regular files whose extensions are in allowed. Hidden
	// entries are skipped and symbolic links are not followed. Each call
	// is a fresh traversal; an unchanged tree yields an identical slice.
	Scan(root string, allowed ExtensionSet) ([]MediaFile, error)
}
