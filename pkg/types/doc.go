// Package types defines the shared configuration, connection contracts,
// column metadata and error taxonomy of the records module.
//
// The record core (package record) and the SQLite connection manager
// (internal/sqlite) both depend on this package; neither depends on the other.
package types
