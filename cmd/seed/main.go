package main

import (
	"log"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"librarium/internal/config"
	"librarium/internal/util"
	"librarium/pkg/auth"
	"librarium/pkg/domain"
	"librarium/pkg/store"
)

// Seeds a demo catalog: three authors, four books, one library with its
// librarian, and an account per role. Safe to run repeatedly.
func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	util.InitLogger(cfg.LogLevel, cfg.Debug)

	dataStore, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}

	seedUser(dataStore, "admin", "admin@example.com", "AdminPass#12345", domain.RoleAdmin)
	librarian := seedUser(dataStore, "librarian", "librarian@example.com", "LibrarianPass#12345", domain.RoleLibrarian)
	seedUser(dataStore, "member", "member@example.com", "MemberPass#12345", domain.RoleMember)

	books := []domain.Book{
		{Title: "Harry Potter and the Philosopher's Stone", Author: "J.K. Rowling", PublicationYear: 1997, ISBN: "9780747532699"},
		{Title: "1984", Author: "George Orwell", PublicationYear: 1949, ISBN: "9780451524935"},
		{Title: "Animal Farm", Author: "George Orwell", PublicationYear: 1945, ISBN: "9780451526342"},
		{Title: "Pride and Prejudice", Author: "Jane Austen", PublicationYear: 1813, ISBN: "9780141439518"},
	}
	bookIDs := make([]string, 0, len(books))
	for _, book := range books {
		bookIDs = append(bookIDs, seedBook(dataStore, book, librarian.ID))
	}

	libraryID := seedLibrary(dataStore, "Central Library", bookIDs)
	seedLibrarian(dataStore, "John Smith", libraryID)

	slog.Info("seed complete", "books", len(books))
}

func seedUser(s store.Store, username, email, password string, role domain.Role) domain.User {
	existing, ok, err := s.GetUserByUsername(username)
	if err != nil {
		log.Fatalf("lookup user %s: %v", username, err)
	}
	if ok {
		slog.Info("user exists, skipping", "username", username)
		return existing
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password for %s: %v", username, err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.SaveUser(user); err != nil {
		log.Fatalf("save user %s: %v", username, err)
	}
	slog.Info("user created", "username", username, "role", role)
	return user
}

func seedBook(s store.Store, book domain.Book, ownerID string) string {
	existing, ok, err := s.GetBookByISBN(book.ISBN)
	if err != nil {
		log.Fatalf("lookup book %s: %v", book.ISBN, err)
	}
	if ok {
		slog.Info("book exists, skipping", "title", book.Title)
		return existing.ID
	}
	if _, err := s.GetOrCreateAuthor(book.Author); err != nil {
		log.Fatalf("create author %s: %v", book.Author, err)
	}
	now := time.Now().UTC()
	book.ID = uuid.NewString()
	book.AddedByID = ownerID
	book.CreatedAt = now
	book.UpdatedAt = now
	if err := s.SaveBook(book); err != nil {
		log.Fatalf("save book %s: %v", book.Title, err)
	}
	slog.Info("book created", "title", book.Title)
	return book.ID
}

func seedLibrary(s store.Store, name string, bookIDs []string) string {
	libraries, err := s.ListLibraries()
	if err != nil {
		log.Fatalf("list libraries: %v", err)
	}
	for _, library := range libraries {
		if library.Name == name {
			slog.Info("library exists, skipping", "name", name)
			return library.ID
		}
	}
	library := domain.Library{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.SaveLibrary(library); err != nil {
		log.Fatalf("save library %s: %v", name, err)
	}
	if err := s.SetLibraryBooks(library.ID, bookIDs); err != nil {
		log.Fatalf("set library books: %v", err)
	}
	slog.Info("library created", "name", name, "books", len(bookIDs))
	return library.ID
}

func seedLibrarian(s store.Store, name, libraryID string) {
	if _, ok, err := s.GetLibrarianByLibrary(libraryID); err != nil {
		log.Fatalf("lookup librarian: %v", err)
	} else if ok {
		slog.Info("librarian exists, skipping", "library", libraryID)
		return
	}
	librarian := domain.Librarian{
		ID:        uuid.NewString(),
		Name:      name,
		LibraryID: libraryID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.SaveLibrarian(librarian); err != nil {
		log.Fatalf("save librarian %s: %v", name, err)
	}
	slog.Info("librarian created", "name", name)
}
