package store

import (
	"librarium/pkg/domain"
)

// SearchQuery narrows a book listing. Text matches title, author, and
// description case-insensitively; OwnerID restricts to books added by that
// user; Year filters on publication year when non-zero.
type SearchQuery struct {
	Text    string
	OwnerID string
	Year    int
	Limit   int
	Offset  int
}

// Store defines persistence operations for users, books, authors,
// libraries, and librarians.
type Store interface {
	// users
	SaveUser(domain.User) error
	GetUserByID(id string) (domain.User, bool, error)
	GetUserByUsername(username string) (domain.User, bool, error)
	HasUserEmail(email string) (bool, error)
	HasUsername(username string) (bool, error)
	ListUsers() ([]domain.User, error)
	UserCount() (int, error)

	// books
	SaveBook(domain.Book) error
	GetBook(id string) (domain.Book, bool, error)
	GetBookByISBN(isbn string) (domain.Book, bool, error)
	DeleteBook(id string) error
	ListBooks(q SearchQuery) ([]domain.Book, error)
	CountBooks(q SearchQuery) (int, error)
	ListBooksByAuthor(authorName string) ([]domain.Book, error)

	// authors
	GetOrCreateAuthor(name string) (domain.Author, error)
	ListAuthors() ([]domain.Author, error)

	// libraries
	SaveLibrary(domain.Library) error
	GetLibrary(id string) (domain.Library, bool, error)
	ListLibraries() ([]domain.Library, error)
	SetLibraryBooks(libraryID string, bookIDs []string) error

	// librarians
	SaveLibrarian(domain.Librarian) error
	GetLibrarianByLibrary(libraryID string) (domain.Librarian, bool, error)
}

// SessionStore issues and validates session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	UserIDFromToken(token string) (string, bool, error)
	DeleteSession(token string) error
}
