// Package author derives author identity from library paths.
//
// The library has no author table. Author names are reconstructed from the
// conventional Calibre-style directory layout on every request, and each
// derived name maps to a stable id by hashing the name itself. Two books
// filed under the same author folder therefore always group under the same
// id, with nothing persisted between requests.
package author

import (
	"crypto/sha256"
	"strings"

	"github.com/google/uuid"
)

// DefaultSegment is the zero-based path segment holding the author folder in
// the conventional layout, e.g. /data/media/books/fiction/Author Name/Title/file.epub
// (the leading slash contributes an empty first segment).
const DefaultSegment = 5

// Extractor derives an author name from a book's library path.
//
// Implementations are heuristics: a path that does not match the expected
// layout yields ok=false and the book is silently left out of author-based
// listings. Alternate layouts or metadata-backed sources can be substituted
// without touching feed assembly.
type Extractor interface {
	Extract(path string) (name string, ok bool)
}

// FolderExtractor extracts the author from a fixed path segment.
//
// Folder names like "Jane Mary Smith" are reordered to "Smith, Jane Mary"
// so listings sort by surname. Single-token names pass through unchanged.
type FolderExtractor struct {
	// Segment is the zero-based index of the author folder when the path is
	// split on "/". Zero means DefaultSegment.
	Segment int
}

// Extract implements Extractor.
func (e FolderExtractor) Extract(path string) (string, bool) {
	segment := e.Segment
	if segment == 0 {
		segment = DefaultSegment
	}

	parts := strings.Split(path, "/")
	if len(parts) <= segment {
		return "", false
	}

	folder := parts[segment]
	if folder == "" {
		return "", false
	}

	tokens := strings.Split(folder, " ")
	if len(tokens) == 1 {
		return folder, true
	}

	surname := tokens[len(tokens)-1]
	given := strings.Join(tokens[:len(tokens)-1], " ")
	return surname + ", " + given, true
}

// StableID maps an author display name to a deterministic 128-bit id.
//
// The id is the first 16 bytes of the SHA-256 digest of the exact name
// string, so identical names always hash to byte-identical ids and distinct
// names collide only at the truncated hash's birthday bound. The id doubles
// as a URL path segment, which is why it is a UUID rather than raw bytes.
func StableID(name string) uuid.UUID {
	digest := sha256.Sum256([]byte(name))

	var id uuid.UUID
	copy(id[:], digest[:16])
	return id
}
