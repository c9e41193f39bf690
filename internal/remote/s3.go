package remote

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"mls-go/internal/config"
	"mls-go/internal/mls"
)

// S3Remote uploads media files to an S3 bucket (or any S3-compatible store
// via a custom endpoint with path-style addressing). Object keys are the
// configured prefix plus the file's scan-relative path.
type S3Remote struct {
	name     string
	bucket   string
	prefix   string
	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3Remote creates an S3 remote from configuration. Credentials come
// from the default chain unless static keys are configured.
func NewS3Remote(ctx context.Context, cfg config.RemoteConfig) (*S3Remote, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKey != "" || cfg.S3SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			// Bucket-in-host addressing breaks most S3-compatible stores.
			o.UsePathStyle = true
		}
	})

	return &S3Remote{
		name:     cfg.Name,
		bucket:   cfg.S3Bucket,
		prefix:   cfg.S3Prefix,
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

// Upload streams the file to the bucket with the managed multipart uploader
// and returns the object location as s3://bucket/key.
func (r *S3Remote) Upload(ctx context.Context, file mls.MediaFile) (string, error) {
	src, err := os.Open(file.Path)
	if err != nil {
		return "", fmt.Errorf("opening source: %w", err)
	}
	defer src.Close()

	key := r.objectKey(file)
	_, err = r.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        src,
		ContentType: aws.String(contentType(file.Path)),
	})
	if err != nil {
		return "", fmt.Errorf("uploading to s3: %w", err)
	}

	return fmt.Sprintf("s3://%s/%s", r.bucket, key), nil
}

// ValidateSetup verifies the bucket is reachable with the configured
// credentials.
func (r *S3Remote) ValidateSetup(ctx context.Context) error {
	_, err := r.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(r.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", r.bucket, err)
	}
	return nil
}

// objectKey joins prefix and relative path with forward slashes regardless
// of the local path separator.
func (r *S3Remote) objectKey(file mls.MediaFile) string {
	return path.Join(r.prefix, filepath.ToSlash(file.RelPath))
}

// contentType guesses a MIME type from the file extension, falling back to
// a generic binary type.
func contentType(p string) string {
	if ct := mime.TypeByExtension(filepath.Ext(p)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Compile-time check that S3Remote implements the mls.Remote interface
var _ mls.Remote = (*S3Remote)(nil)
