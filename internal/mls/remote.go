package mls

import "context"

// Remote is the external upload capability: one configured destination for
// media files. Implementations own their transport, credentials and
// timeouts; the engine owns nothing of that.
type Remote interface {
	// Upload transfers one file and returns a detail string, typically the
	// identifier the service assigned. Any error is a per-file failure:
	// the engine records it and proceeds to the next file.
	Upload(ctx context.Context, file MediaFile) (string, error)

	// ValidateSetup verifies that the remote is accessible and properly
	// configured. Called once before a run starts.
	ValidateSetup(ctx context.Context) error
}
