package remote

import (
	"context"
	"fmt"

	"mls-go/internal/config"
	"mls-go/internal/mls"
)

// PassphraseFunc supplies the passphrase for an encrypted headers file. The
// CLI prompts on the terminal; tests return a fixed string.
type PassphraseFunc func() (string, error)

// Options carries collaborator hooks remotes may need at construction time.
type Options struct {
	Passphrase PassphraseFunc
}

// NewRemoteFromConfig creates a Remote implementation based on the remote
// config type.
func NewRemoteFromConfig(ctx context.Context, cfg config.RemoteConfig, opts Options) (mls.Remote, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryRemote(cfg.Name), nil
	case "http":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("http remote requires endpoint to be set")
		}
		if cfg.HeadersPath == "" {
			return nil, fmt.Errorf("http remote requires headers_path to be set")
		}
		headers, err := LoadHeaders(cfg.HeadersPath, opts.Passphrase)
		if err != nil {
			return nil, err
		}
		return NewHTTPRemote(cfg.Name, cfg.Endpoint, headers, cfg.TimeoutSeconds), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 remote requires s3_bucket to be set")
		}
		return NewS3Remote(ctx, cfg)
	case "filesystem":
		if cfg.FSLibraryRoot == "" {
			return nil, fmt.Errorf("filesystem remote requires fs_library_root to be set")
		}
		return NewFileSystemRemote(cfg.Name, cfg.FSLibraryRoot)
	default:
		return nil, fmt.Errorf("unknown remote type: %s", cfg.Type)
	}
}
