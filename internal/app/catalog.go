package app

import (
	"fmt"
	"strings"

	"librarium/pkg/domain"
)

// BooksByAuthor lists books written by the named author.
func (a *App) BooksByAuthor(authorName string) ([]domain.Book, error) {
	authorName = strings.TrimSpace(authorName)
	if authorName == "" {
		return []domain.Book{}, nil
	}
	books, err := a.store.ListBooksByAuthor(authorName)
	if err != nil {
		return nil, fmt.Errorf("books by author: %w", err)
	}
	return books, nil
}

// Authors lists all known authors.
func (a *App) Authors() ([]domain.Author, error) {
	authors, err := a.store.ListAuthors()
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	return authors, nil
}

// Libraries lists all libraries without their book sets.
func (a *App) Libraries() ([]domain.Library, error) {
	libraries, err := a.store.ListLibraries()
	if err != nil {
		return nil, fmt.Errorf("list libraries: %w", err)
	}
	return libraries, nil
}

// LibraryDetail returns a library with its books.
func (a *App) LibraryDetail(id string) (domain.Library, error) {
	library, ok, err := a.store.GetLibrary(id)
	if err != nil {
		return domain.Library{}, fmt.Errorf("get library: %w", err)
	}
	if !ok {
		return domain.Library{}, ErrNotFound
	}
	return library, nil
}

// LibrarianForLibrary returns the librarian assigned to a library.
func (a *App) LibrarianForLibrary(libraryID string) (domain.Librarian, error) {
	if _, ok, err := a.store.GetLibrary(libraryID); err != nil {
		return domain.Librarian{}, fmt.Errorf("get library: %w", err)
	} else if !ok {
		return domain.Librarian{}, ErrNotFound
	}
	librarian, ok, err := a.store.GetLibrarianByLibrary(libraryID)
	if err != nil {
		return domain.Librarian{}, fmt.Errorf("get librarian: %w", err)
	}
	if !ok {
		return domain.Librarian{}, ErrNotFound
	}
	return librarian, nil
}
