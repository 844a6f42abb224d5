package app

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"librarium/pkg/domain"
	"librarium/pkg/events"
	"librarium/pkg/store"
)

func validBook() BookInput {
	return BookInput{
		Title:           "Pride and Prejudice",
		Author:          "Jane Austen",
		PublicationYear: 1813,
		ISBN:            "978-0-14-143951-8",
	}
}

func grantLibrarian(t *testing.T, env *testEnv, user domain.User) domain.User {
	t.Helper()
	user.Role = domain.RoleLibrarian
	if err := env.store.SaveUser(user); err != nil {
		t.Fatalf("save user: %v", err)
	}
	return user
}

func TestCreateBookRequiresPermission(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "admin")
	member := env.register(t, "member")

	if _, err := env.app.CreateBook(member, validBook()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied for member, got %v", err)
	}

	librarian := grantLibrarian(t, env, env.register(t, "lib"))
	book, err := env.app.CreateBook(librarian, validBook())
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	if book.AddedByID != librarian.ID {
		t.Fatalf("expected owner stamp, got %q", book.AddedByID)
	}
}

func TestCreateBookNormalizesISBN(t *testing.T) {
	env := newTestEnv(t)
	admin := env.register(t, "admin")

	book, err := env.app.CreateBook(admin, validBook())
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	if book.ISBN != "9780141439518" {
		t.Fatalf("expected digits-only ISBN, got %q", book.ISBN)
	}

	// Same ISBN with different separators collides.
	in := validBook()
	in.Title = "Another Edition"
	in.ISBN = "978 0 14 143951 8"
	if _, err := env.app.CreateBook(admin, in); !errors.Is(err, ErrISBNTaken) {
		t.Fatalf("expected ISBN conflict, got %v", err)
	}
}

func TestCreateBookValidation(t *testing.T) {
	env := newTestEnv(t)
	admin := env.register(t, "admin")

	in := validBook()
	in.Title = " x "
	in.PublicationYear = time.Now().Year() + 2
	in.ISBN = "12-34"
	_, err := env.app.CreateBook(admin, in)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"title", "publicationYear", "isbn"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Fatalf("expected %s field error, got %v", field, verr.Fields)
		}
	}
}

func TestMemberSeesOnlyOwnBooks(t *testing.T) {
	env := newTestEnv(t)
	admin := env.register(t, "admin")
	member := env.register(t, "member")

	adminBook, err := env.app.CreateBook(admin, validBook())
	if err != nil {
		t.Fatalf("create admin book: %v", err)
	}
	ownBook := domain.Book{ID: "own", Title: "Mine", Author: "Me", PublicationYear: 2000, AddedByID: member.ID}
	if err := env.store.SaveBook(ownBook); err != nil {
		t.Fatalf("save book: %v", err)
	}

	page, err := env.app.ListBooks(member, store.SearchQuery{})
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if page.Total != 1 || len(page.Books) != 1 || page.Books[0].ID != "own" {
		t.Fatalf("expected owner-scoped listing, got %+v", page)
	}

	if _, err := env.app.GetBook(member, adminBook.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for invisible book, got %v", err)
	}
	if _, err := env.app.GetBook(member, "own"); err != nil {
		t.Fatalf("expected member to see own book: %v", err)
	}

	adminPage, err := env.app.ListBooks(admin, store.SearchQuery{})
	if err != nil {
		t.Fatalf("admin list books: %v", err)
	}
	if adminPage.Total != 2 {
		t.Fatalf("expected admin to see all books, got %d", adminPage.Total)
	}
}

func TestUpdateAndDeletePermissions(t *testing.T) {
	env := newTestEnv(t)
	admin := env.register(t, "admin")
	member := env.register(t, "member")

	ownBook := domain.Book{ID: "own", Title: "Mine", Author: "Me", PublicationYear: 2000, AddedByID: member.ID}
	if err := env.store.SaveBook(ownBook); err != nil {
		t.Fatalf("save book: %v", err)
	}
	adminBook, err := env.app.CreateBook(admin, validBook())
	if err != nil {
		t.Fatalf("create book: %v", err)
	}

	// Members may edit and delete their own books.
	in := BookInput{Title: "Mine Revised", Author: "Me", PublicationYear: 2001}
	updated, err := env.app.UpdateBook(member, "own", in)
	if err != nil {
		t.Fatalf("update own book: %v", err)
	}
	if updated.Title != "Mine Revised" {
		t.Fatalf("unexpected title %q", updated.Title)
	}

	// Books outside their visibility report not-found.
	if _, err := env.app.UpdateBook(member, adminBook.ID, in); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := env.app.DeleteBook(member, adminBook.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := env.app.DeleteBook(member, "own"); err != nil {
		t.Fatalf("delete own book: %v", err)
	}
	if err := env.app.DeleteBook(admin, adminBook.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
}

func TestSearchBooks(t *testing.T) {
	env := newTestEnv(t)
	admin := env.register(t, "admin")
	member := env.register(t, "member")

	for i := 0; i < 15; i++ {
		in := validBook()
		in.Title = fmt.Sprintf("Searchable Volume %02d", i)
		in.ISBN = fmt.Sprintf("97801414395%02d", i)
		if _, err := env.app.CreateBook(admin, in); err != nil {
			t.Fatalf("create book %d: %v", i, err)
		}
	}

	if _, err := env.app.SearchBooks(member, "searchable"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied for member search, got %v", err)
	}

	var verr *ValidationError
	if _, err := env.app.SearchBooks(admin, "a"); !errors.As(err, &verr) {
		t.Fatalf("expected short-query validation error, got %v", err)
	}

	results, err := env.app.SearchBooks(admin, "searchable")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != SearchResultLimit {
		t.Fatalf("expected results capped at %d, got %d", SearchResultLimit, len(results))
	}
}

func TestBookEventsPublished(t *testing.T) {
	env := newTestEnv(t)
	admin := env.register(t, "admin")

	book, err := env.app.CreateBook(admin, validBook())
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	if err := env.app.DeleteBook(admin, book.ID); err != nil {
		t.Fatalf("delete book: %v", err)
	}

	var types []string
	for _, e := range env.events.Events() {
		types = append(types, e.Type)
	}
	want := map[string]bool{events.TypeBookCreated: false, events.TypeBookDeleted: false}
	for _, typ := range types {
		if _, ok := want[typ]; ok {
			want[typ] = true
		}
	}
	for typ, seen := range want {
		if !seen {
			t.Fatalf("expected %s event, got %v", typ, types)
		}
	}
}
