package storage

import (
	"github.com/cloudtun/cloudtun/pkg/types"
)

// Store persists the Managed State Record between runs. Only the
// reconciler writes to it; the presentation layer reads it for display.
type Store interface {
	// Load returns the current record. A missing record is not an error:
	// it loads as an empty record, since the reconciler can rebuild it
	// from the provider.
	Load() (*types.StateRecord, error)

	// Save atomically replaces the record.
	Save(record *types.StateRecord) error

	Close() error
}
