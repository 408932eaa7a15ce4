// Package storage defines the local vault storage surface used by the
// sync engine, plus a plain filesystem implementation of it. The engine
// only ever talks to the Adapter interface so hosts can substitute
// their own store.
package storage

// Adapter is the set of vault primitives the sync engine needs.
// Paths are slash-separated and relative to the vault root.
type Adapter interface {
	// Exists reports whether a file exists at path
	Exists(path string) bool

	// Read returns the full content of the file at path
	Read(path string) ([]byte, error)

	// Write stores data at path, creating parent directories as needed
	// and replacing any existing file
	Write(path string, data []byte) error

	// Delete removes the file at path. The boolean reports whether a
	// file was actually removed; deleting an absent path is a no-op
	// returning false and no error.
	Delete(path string) (bool, error)

	// MkdirAll ensures the directory at path exists
	MkdirAll(path string) error
}
