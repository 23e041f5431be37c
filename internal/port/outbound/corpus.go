// Package outbound defines the outbound ports (interfaces) the application layer
// depends on.
package outbound

import "context"

// CorpusView is a read-only view of the game script corpus. Paths are slash separated and
// rooted at the "scripts/" namespace; atlas files found next to the game install live under
// "images/".
type CorpusView interface {
	// Files returns every path in sorted order.
	Files() []string

	// Read returns the raw bytes of path. Paths with or without the "scripts/" prefix are
	// accepted.
	Read(path string) ([]byte, bool)

	// ReadString is Read returning a string.
	ReadString(path string) (string, bool)

	// Glob returns the sorted paths matching a gobwas glob pattern with '/' as separator.
	Glob(pattern string) ([]string, error)

	// SHA256_12 is the first 12 hex characters of the content hash of the scripts.
	SHA256_12() string

	// Sources describes where the corpus was loaded from, for artifact meta.
	Sources() map[string]string
}

// ArtifactStore writes and peeks index artifacts under one directory.
type ArtifactStore interface {
	// Path returns the absolute path of a named artifact.
	Path(name string) string

	// WriteJSON atomically writes doc as stable JSON.
	WriteJSON(ctx context.Context, name string, doc interface{}) error

	// PeekMeta returns the provenance stamp of an existing artifact.
	PeekMeta(name string) (MetaStamp, bool)
}

// MetaStamp is the part of an artifact's meta block that decides whether it is stale.
type MetaStamp struct {
	Generated string
	SHA256_12 string
	// Inputs is the signature of the non-script inputs, empty for artifacts without one.
	Inputs string
}
