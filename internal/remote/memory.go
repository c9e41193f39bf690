package remote

import (
	"context"
	"fmt"
	"sync"

	"mls-go/internal/mls"
)

// MemoryRemote is an in-process implementation of the Remote interface. It
// records uploaded identities in memory, making it useful for tests and as
// a sink that exercises the whole pipeline without data leaving the machine.
// This implementation is safe for concurrent use.
type MemoryRemote struct {
	name string
	mu   sync.RWMutex
	ids  map[string]string // identity -> assigned id
	seq  int
}

// NewMemoryRemote creates a new in-memory remote with the given name.
func NewMemoryRemote(name string) *MemoryRemote {
	return &MemoryRemote{
		name: name,
		ids:  make(map[string]string),
	}
}

// Upload assigns the file a synthetic id. Uploading the same identity twice
// returns the id assigned the first time.
func (m *MemoryRemote) Upload(_ context.Context, file mls.MediaFile) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.ids[file.Path]; ok {
		return id, nil
	}
	m.seq++
	id := fmt.Sprintf("mem:%d", m.seq)
	m.ids[file.Path] = id
	return id, nil
}

// ValidateSetup always succeeds for the in-memory remote.
func (m *MemoryRemote) ValidateSetup(context.Context) error { return nil }

// Uploaded reports whether identity has been uploaded.
func (m *MemoryRemote) Uploaded(identity string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.ids[identity]
	return ok
}

// Count returns the number of uploaded files.
func (m *MemoryRemote) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.ids)
}

// Compile-time check that MemoryRemote implements the mls.Remote interface
var _ mls.Remote = (*MemoryRemote)(nil)
