package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mls-go/internal/mls"
)

// defaultUploadTimeout bounds one file's transfer. Large lossless files on
// slow uplinks take a while.
const defaultUploadTimeout = 10 * time.Minute

// HTTPRemote uploads to a music-library service endpoint: one POST per
// file, multipart/form-data, with the request headers from the user's
// headers file attached verbatim. The headers are the service's
// authentication surface and are opaque to mls.
//
// The service is expected to answer 2xx with a JSON body carrying the
// identifier it assigned, e.g. {"id": "..."}. A 2xx response without an id
// is treated as a failure: without the identifier there is no proof the
// file was accepted.
type HTTPRemote struct {
	name     string
	endpoint string
	headers  map[string]string
	client   *http.Client
}

// NewHTTPRemote creates an HTTP remote for the given endpoint.
// timeoutSeconds bounds a single upload; zero or negative selects the
// default.
func NewHTTPRemote(name, endpoint string, headers map[string]string, timeoutSeconds int) *HTTPRemote {
	timeout := defaultUploadTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &HTTPRemote{
		name:     name,
		endpoint: endpoint,
		headers:  headers,
		client:   &http.Client{Timeout: timeout},
	}
}

// Upload transfers one file and returns the identifier the service
// assigned.
func (r *HTTPRemote) Upload(ctx context.Context, file mls.MediaFile) (string, error) {
	src, err := os.Open(file.Path)
	if err != nil {
		return "", fmt.Errorf("opening source: %w", err)
	}
	defer src.Close()

	// Stream the multipart body through a pipe so large files are never
	// buffered in memory.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.ToSlash(file.RelPath))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, src); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, pr)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", file.RelPath, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("service returned %s: %s", resp.Status, snippet(body))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("service accepted %s but returned no id", file.RelPath)
	}
	return result.ID, nil
}

// ValidateSetup verifies the endpoint parses and headers were supplied.
// No request is made: the first upload is the real handshake.
func (r *HTTPRemote) ValidateSetup(context.Context) error {
	u, err := url.Parse(r.endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint must be http or https: %s", r.endpoint)
	}
	if len(r.headers) == 0 {
		return fmt.Errorf("no request headers loaded for %s", r.name)
	}
	return nil
}

// snippet trims a response body down to something fit for an error message.
func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		s = "(empty body)"
	}
	return s
}

// Compile-time check that HTTPRemote implements the mls.Remote interface
var _ mls.Remote = (*HTTPRemote)(nil)
