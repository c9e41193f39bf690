package mls

// Status classifies the persisted outcome of an upload attempt. It is a
// closed enumeration: stores must map anything else to StatusFailed on load,
// preserving the original value in the record detail.
type Status string

const (
	StatusUploaded Status = "uploaded"
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"
)

// Valid reports whether s is a member of the enumeration.
func (s Status) Valid() bool {
	switch s {
	case StatusUploaded, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// Store is the engine's view of the upload tracker: a durable map from file
// identity to the latest recorded outcome. A single run has a single
// mutator; implementations are not required to be safe for concurrent use.
type Store interface {
	// IsUploaded reports whether identity has a record with
	// StatusUploaded. This is the engine's sole duplicate-prevention
	// check; failed records return false so the file is retried.
	IsUploaded(identity string) bool

	// Record upserts the outcome for identity in memory. Last write wins.
	// It does not persist; call Save.
	Record(identity string, status Status, detail string)

	// Save atomically persists the full database. A reader must never
	// observe a truncated file at the database path.
	Save() error
}
