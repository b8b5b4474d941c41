// Package storage persists the Managed State Record between runs, backed by
// BoltDB. The record is advisory: losing the database is recoverable because
// the reconciler rebuilds it from the provider using the deterministic
// instance name.
package storage
