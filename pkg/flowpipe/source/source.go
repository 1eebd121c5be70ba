// Package source provides raw flow definition storage for the loader.
//
// A Source hands out definition documents by (mode, name); the loader
// parses and validates them. Two implementations are provided: FSSource
// reads YAML/JSON files from a directory tree (or an embed.FS), and
// SQLiteStore keeps definitions in a SQLite table so deployments can
// manage flows without shipping files.
package source

import "errors"

// Ref identifies one flow definition within a source.
type Ref struct {
	// Mode groups related flow variants (e.g. a device or quality tier).
	Mode string
	// Name is the flow name within the mode.
	Name string
}

// Source supplies raw flow definition documents.
// Implementations must be safe for concurrent use.
type Source interface {
	// Read returns the raw definition for (mode, name).
	// Returns ErrNotFound if no such definition exists.
	Read(mode, name string) ([]byte, error)

	// List returns every definition reference the source knows about.
	List() ([]Ref, error)
}

// Sentinel errors for definition sources.
var (
	// ErrNotFound indicates no definition exists for the requested key.
	ErrNotFound = errors.New("flow definition not found")

	// ErrStoreClosed indicates the backing store has been closed.
	ErrStoreClosed = errors.New("definition store closed")
)
