package testutil

import (
	"context"
	"fmt"
	"sync"

	"mls-go/internal/mls"
)

// FakeRemote is an in-memory mls.Remote for tests. Uploads are recorded in
// order, and failures can be scripted per path.
type FakeRemote struct {
	mu      sync.Mutex
	uploads []string
	fail    map[string]error
	seq     int

	// OnUpload, when set, runs at the start of every Upload call. Tests use
	// it to trigger cancellation while a transfer is in flight.
	OnUpload func(file mls.MediaFile)
}

// NewFakeRemote creates an empty FakeRemote.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{fail: make(map[string]error)}
}

// FailPath scripts Upload to fail for the given path. Pass a nil error to
// clear the script.
func (r *FakeRemote) FailPath(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.fail, path)
		return
	}
	r.fail[path] = err
}

func (r *FakeRemote) Upload(ctx context.Context, file mls.MediaFile) (string, error) {
	if r.OnUpload != nil {
		r.OnUpload(file)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[file.Path]; err != nil {
		return "", err
	}
	r.seq++
	r.uploads = append(r.uploads, file.Path)
	return fmt.Sprintf("fake-%d", r.seq), nil
}

func (r *FakeRemote) ValidateSetup(_ context.Context) error { return nil }

// Uploads returns the paths of successful uploads in order.
func (r *FakeRemote) Uploads() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.uploads))
	copy(out, r.uploads)
	return out
}

// UploadCount returns how many times path was uploaded successfully.
func (r *FakeRemote) UploadCount(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.uploads {
		if p == path {
			n++
		}
	}
	return n
}

var _ mls.Remote = (*FakeRemote)(nil)
