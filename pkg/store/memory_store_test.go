package store

import (
	"testing"

	"github.com/stretchr/testify/require"
	"librarium/pkg/domain"
)

func seedBooks(t *testing.T, s *MemoryStore) {
	t.Helper()
	books := []domain.Book{
		{ID: "b1", Title: "Pride and Prejudice", Author: "Jane Austen", PublicationYear: 1813, AddedByID: "u1"},
		{ID: "b2", Title: "1984", Author: "George Orwell", PublicationYear: 1949, Description: "dystopia", AddedByID: "u2"},
		{ID: "b3", Title: "Animal Farm", Author: "George Orwell", PublicationYear: 1945, AddedByID: "u2"},
	}
	for _, b := range books {
		require.NoError(t, s.SaveBook(b))
	}
}

func TestMemoryStoreListBooksOrdersByTitle(t *testing.T) {
	s := NewMemoryStore()
	seedBooks(t, s)

	books, err := s.ListBooks(SearchQuery{})
	require.NoError(t, err)
	require.Len(t, books, 3)
	require.Equal(t, "1984", books[0].Title)
	require.Equal(t, "Animal Farm", books[1].Title)
	require.Equal(t, "Pride and Prejudice", books[2].Title)
}

func TestMemoryStoreSearchFilters(t *testing.T) {
	s := NewMemoryStore()
	seedBooks(t, s)

	byText, err := s.ListBooks(SearchQuery{Text: "orwell"})
	require.NoError(t, err)
	require.Len(t, byText, 2)

	byDescription, err := s.ListBooks(SearchQuery{Text: "dystopia"})
	require.NoError(t, err)
	require.Len(t, byDescription, 1)
	require.Equal(t, "1984", byDescription[0].Title)

	byOwner, err := s.ListBooks(SearchQuery{OwnerID: "u1"})
	require.NoError(t, err)
	require.Len(t, byOwner, 1)
	require.Equal(t, "Pride and Prejudice", byOwner[0].Title)

	byYear, err := s.ListBooks(SearchQuery{Year: 1945})
	require.NoError(t, err)
	require.Len(t, byYear, 1)

	limited, err := s.ListBooks(SearchQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)

	count, err := s.CountBooks(SearchQuery{Text: "orwell"})
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestMemoryStoreLibraryRelations(t *testing.T) {
	s := NewMemoryStore()
	seedBooks(t, s)

	require.NoError(t, s.SaveLibrary(domain.Library{ID: "lib1", Name: "Central Library"}))
	require.NoError(t, s.SetLibraryBooks("lib1", []string{"b1", "b2"}))
	require.NoError(t, s.SaveLibrarian(domain.Librarian{ID: "ln1", Name: "John Smith", LibraryID: "lib1"}))

	lib, ok, err := s.GetLibrary("lib1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, lib.Books, 2)
	require.Equal(t, "1984", lib.Books[0].Title)

	librarian, ok, err := s.GetLibrarianByLibrary("lib1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "John Smith", librarian.Name)

	// Deleting a book removes it from library sets.
	require.NoError(t, s.DeleteBook("b2"))
	lib, _, err = s.GetLibrary("lib1")
	require.NoError(t, err)
	require.Len(t, lib.Books, 1)
}

func TestMemoryStoreAuthors(t *testing.T) {
	s := NewMemoryStore()
	first, err := s.GetOrCreateAuthor("Jane Austen")
	require.NoError(t, err)
	again, err := s.GetOrCreateAuthor("Jane Austen")
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)

	_, err = s.GetOrCreateAuthor("George Orwell")
	require.NoError(t, err)
	authors, err := s.ListAuthors()
	require.NoError(t, err)
	require.Len(t, authors, 2)
	require.Equal(t, "George Orwell", authors[0].Name)
}
