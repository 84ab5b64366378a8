package domain

// User represents a catalog user.
//
// Users carry no credentials; they exist to scope catalog visibility and to
// hold per-user favorites. Feed requests pass a user id as a query parameter
// and an unknown or empty id silently falls back to the unscoped catalog.
type User struct {
	Syncable
	Name string `json:"name"`

	// LibraryAccess lists the top-level library folders this user may see.
	// Empty means unrestricted.
	LibraryAccess []string `json:"library_access,omitempty"`

	// Favorites holds book ids the user has marked as favorites.
	Favorites []string `json:"favorites,omitempty"`
}

// CanSee reports whether the user may see books under the given root folder.
func (u *User) CanSee(rootFolder string) bool {
	if len(u.LibraryAccess) == 0 {
		return true
	}
	for _, allowed := range u.LibraryAccess {
		if allowed == rootFolder {
			return true
		}
	}
	return false
}

// IsFavorite reports whether the given book id is in the user's favorites.
func (u *User) IsFavorite(bookID string) bool {
	for _, id := range u.Favorites {
		if id == bookID {
			return true
		}
	}
	return false
}

// AddFavorite adds a book id to the user's favorites.
// Returns false if it was already present.
func (u *User) AddFavorite(bookID string) bool {
	if u.IsFavorite(bookID) {
		return false
	}
	u.Favorites = append(u.Favorites, bookID)
	return true
}

// RemoveFavorite removes a book id from the user's favorites.
// Returns false if it was not present.
func (u *User) RemoveFavorite(bookID string) bool {
	for i, id := range u.Favorites {
		if id == bookID {
			u.Favorites = append(u.Favorites[:i], u.Favorites[i+1:]...)
			return true
		}
	}
	return false
}
