// Package mediatype resolves media types from library file paths.
//
// Resolution is extension-based because catalog links are built from stored
// paths without touching the files. Ebook formats the stdlib mime package
// does not know about are mapped explicitly; everything else falls back to
// mime.TypeByExtension.
package mediatype

import (
	"mime"
	"path"
	"strings"
)

// Ebook and comic formats the standard mime tables miss.
var ebookTypes = map[string]string{
	".epub": "application/epub+zip",
	".mobi": "application/x-mobipocket-ebook",
	".azw":  "application/vnd.amazon.ebook",
	".azw3": "application/vnd.amazon.ebook",
	".fb2":  "text/fb2+xml",
	".cbz":  "application/vnd.comicbook+zip",
	".cbr":  "application/vnd.comicbook-rar",
	".pdf":  "application/pdf",
	".djvu": "image/vnd.djvu",
}

// ForPath returns the media type for the given path, keyed on its extension.
// Returns ok=false when the extension is unknown, in which case the caller
// omits the corresponding catalog link rather than erroring.
func ForPath(p string) (string, bool) {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return "", false
	}

	if mt, ok := ebookTypes[ext]; ok {
		return mt, true
	}

	mt := mime.TypeByExtension(ext)
	if mt == "" {
		return "", false
	}
	return mt, true
}

// IsEbook reports whether the path looks like an ebook the scanner should
// pick up.
func IsEbook(p string) bool {
	_, ok := ebookTypes[strings.ToLower(path.Ext(p))]
	return ok
}

// Extension returns the lowercased extension without the leading dot.
func Extension(p string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
}
