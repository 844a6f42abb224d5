package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"librarium/pkg/domain"
	"librarium/pkg/events"
	"librarium/pkg/store"
)

// SearchResultLimit caps rows returned by the JSON search endpoint.
const SearchResultLimit = 10

// BookInput is the mutable part of a book.
type BookInput struct {
	Title           string
	Author          string
	PublicationYear int
	ISBN            string
	Description     string
}

// BookPage is one page of a book listing.
type BookPage struct {
	Books []domain.Book
	Total int
}

// validateBookInput checks the input and returns it with the title trimmed
// and the ISBN normalized to digits only.
func validateBookInput(in BookInput) (BookInput, error) {
	verr := newValidationError()

	in.Title = strings.TrimSpace(in.Title)
	if len(in.Title) < 2 {
		verr.add("title", "title must be at least 2 characters long")
	} else if len(in.Title) > 200 {
		verr.add("title", "title must be at most 200 characters long")
	}

	in.Author = strings.TrimSpace(in.Author)
	if in.Author == "" {
		verr.add("author", "author is required")
	} else if len(in.Author) > 100 {
		verr.add("author", "author must be at most 100 characters long")
	}

	maxYear := time.Now().Year() + 1
	if in.PublicationYear < 1000 || in.PublicationYear > maxYear {
		verr.add("publicationYear", fmt.Sprintf("publication year must be between 1000 and %d", maxYear))
	}

	if isbn := strings.TrimSpace(in.ISBN); isbn != "" {
		normalized := normalizeISBN(isbn)
		if normalized == "" {
			verr.add("isbn", "ISBN must be 10 or 13 digits")
		} else {
			in.ISBN = normalized
		}
	} else {
		in.ISBN = ""
	}

	if err := verr.orNil(); err != nil {
		return in, err
	}
	return in, nil
}

// normalizeISBN strips hyphens and spaces; returns "" when the remainder is
// not a 10- or 13-digit number.
func normalizeISBN(isbn string) string {
	var b strings.Builder
	for _, r := range isbn {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == ' ':
			// separator, dropped
		default:
			return ""
		}
	}
	digits := b.String()
	if len(digits) != 10 && len(digits) != 13 {
		return ""
	}
	return digits
}

func canSee(actor domain.User, book domain.Book) bool {
	return actor.HasPermission(domain.PermViewBooks) || book.AddedByID == actor.ID
}

// CreateBook validates the input and stores a new book owned by the actor.
func (a *App) CreateBook(actor domain.User, in BookInput) (domain.Book, error) {
	if !actor.HasPermission(domain.PermCreateBooks) {
		return domain.Book{}, ErrPermissionDenied
	}
	in, err := validateBookInput(in)
	if err != nil {
		return domain.Book{}, err
	}
	if in.ISBN != "" {
		if _, exists, err := a.store.GetBookByISBN(in.ISBN); err != nil {
			return domain.Book{}, fmt.Errorf("check isbn: %w", err)
		} else if exists {
			return domain.Book{}, ErrISBNTaken
		}
	}
	if _, err := a.store.GetOrCreateAuthor(in.Author); err != nil {
		return domain.Book{}, fmt.Errorf("ensure author: %w", err)
	}

	now := time.Now().UTC()
	book := domain.Book{
		ID:              uuid.NewString(),
		Title:           in.Title,
		Author:          in.Author,
		PublicationYear: in.PublicationYear,
		ISBN:            in.ISBN,
		Description:     in.Description,
		AddedByID:       actor.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := a.store.SaveBook(book); err != nil {
		return domain.Book{}, fmt.Errorf("save book: %w", err)
	}
	a.publish(events.Event{Type: events.TypeBookCreated, ActorID: actor.ID, SubjectID: book.ID, Detail: book.Title})
	return book, nil
}

// UpdateBook applies new field values to an existing book. Owners may edit
// their own books; everyone else needs the edit permission.
func (a *App) UpdateBook(actor domain.User, id string, in BookInput) (domain.Book, error) {
	book, ok, err := a.store.GetBook(id)
	if err != nil {
		return domain.Book{}, fmt.Errorf("get book: %w", err)
	}
	if !ok || !canSee(actor, book) {
		return domain.Book{}, ErrNotFound
	}
	if !actor.HasPermission(domain.PermEditBooks) && book.AddedByID != actor.ID {
		return domain.Book{}, ErrPermissionDenied
	}
	in, err = validateBookInput(in)
	if err != nil {
		return domain.Book{}, err
	}
	if in.ISBN != "" && in.ISBN != book.ISBN {
		if _, exists, err := a.store.GetBookByISBN(in.ISBN); err != nil {
			return domain.Book{}, fmt.Errorf("check isbn: %w", err)
		} else if exists {
			return domain.Book{}, ErrISBNTaken
		}
	}
	if _, err := a.store.GetOrCreateAuthor(in.Author); err != nil {
		return domain.Book{}, fmt.Errorf("ensure author: %w", err)
	}

	book.Title = in.Title
	book.Author = in.Author
	book.PublicationYear = in.PublicationYear
	book.ISBN = in.ISBN
	book.Description = in.Description
	book.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveBook(book); err != nil {
		return domain.Book{}, fmt.Errorf("save book: %w", err)
	}
	a.publish(events.Event{Type: events.TypeBookUpdated, ActorID: actor.ID, SubjectID: book.ID, Detail: book.Title})
	return book, nil
}

// DeleteBook removes a book. Owners may delete their own books; everyone
// else needs the delete permission.
func (a *App) DeleteBook(actor domain.User, id string) error {
	book, ok, err := a.store.GetBook(id)
	if err != nil {
		return fmt.Errorf("get book: %w", err)
	}
	if !ok || !canSee(actor, book) {
		return ErrNotFound
	}
	if !actor.HasPermission(domain.PermDeleteBooks) && book.AddedByID != actor.ID {
		return ErrPermissionDenied
	}
	if err := a.store.DeleteBook(id); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	a.publish(events.Event{Type: events.TypeBookDeleted, ActorID: actor.ID, SubjectID: book.ID, Detail: book.Title})
	return nil
}

// GetBook returns a book the actor is allowed to see. Books outside the
// actor's visibility report not-found rather than forbidden.
func (a *App) GetBook(actor domain.User, id string) (domain.Book, error) {
	book, ok, err := a.store.GetBook(id)
	if err != nil {
		return domain.Book{}, fmt.Errorf("get book: %w", err)
	}
	if !ok || !canSee(actor, book) {
		return domain.Book{}, ErrNotFound
	}
	return book, nil
}

// ListBooks returns a page of books visible to the actor. Without the view
// permission the listing collapses to the actor's own books.
func (a *App) ListBooks(actor domain.User, q store.SearchQuery) (BookPage, error) {
	if !actor.HasPermission(domain.PermViewBooks) {
		q.OwnerID = actor.ID
	}
	total, err := a.store.CountBooks(q)
	if err != nil {
		return BookPage{}, fmt.Errorf("count books: %w", err)
	}
	books, err := a.store.ListBooks(q)
	if err != nil {
		return BookPage{}, fmt.Errorf("list books: %w", err)
	}
	return BookPage{Books: books, Total: total}, nil
}

// SearchBooks serves the JSON search endpoint: view permission required,
// at least two characters of query, at most ten rows.
func (a *App) SearchBooks(actor domain.User, query string) ([]domain.Book, error) {
	if !actor.HasPermission(domain.PermViewBooks) {
		return nil, ErrPermissionDenied
	}
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		verr := newValidationError()
		verr.add("q", "search query must be at least 2 characters")
		return nil, verr
	}
	books, err := a.store.ListBooks(store.SearchQuery{Text: query, Limit: SearchResultLimit})
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return books, nil
}
