// Package domain contains the core business entities for the Shelfmark ebook catalog.
package domain

// Book represents a single ebook file discovered in the library.
//
// Path is always forward-slash delimited, even on Windows, because author
// derivation and the path index both key on "/" separators. The scanner
// normalizes paths before books are stored.
type Book struct {
	Syncable
	Title       string `json:"title"`
	Path        string `json:"path"`
	RootFolder  string `json:"root_folder,omitempty"` // first path segment under the library root, used for access scoping
	Description string `json:"description,omitempty"`
	Format      string `json:"format,omitempty"` // file extension without the dot, e.g. "epub"
	CoverPath   string `json:"cover_path,omitempty"`
	FolderID    string `json:"folder_id,omitempty"` // parent container, attribution source for catalog entries
	Size        int64  `json:"size"`
	ModTime     int64  `json:"mod_time"` // unix milliseconds
}

// HasCover reports whether a cover image was found next to the book file.
func (b *Book) HasCover() bool {
	return b.CoverPath != ""
}

// Folder represents a book's parent directory in the library.
//
// Folders exist so catalog entries can attribute a book to the container it
// was found in without re-walking the filesystem. They carry no hierarchy;
// each book points at exactly one folder.
type Folder struct {
	Syncable
	Name string `json:"name"`
	Path string `json:"path"`
}
