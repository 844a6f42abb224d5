package store

import (
	"sort"
	"strings"
	"sync"

	"librarium/pkg/domain"
)

// MemoryStore keeps all records in-process. It backs unit tests and mirrors
// the Postgres store's ordering and filtering semantics.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	books      map[string]domain.Book
	authors    map[string]domain.Author // name -> author
	libraries  map[string]domain.Library
	libBooks   map[string][]string // library ID -> book IDs
	librarians map[string]domain.Librarian
	userOrder  []string
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]domain.User),
		books:      make(map[string]domain.Book),
		authors:    make(map[string]domain.Author),
		libraries:  make(map[string]domain.Library),
		libBooks:   make(map[string][]string),
		librarians: make(map[string]domain.Librarian),
	}
}

func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[u.ID]; !exists {
		m.userOrder = append(m.userOrder, u.ID)
	}
	m.users[u.ID] = u
	return nil
}

func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) GetUserByUsername(username string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) HasUsername(username string) (bool, error) {
	_, ok, err := m.GetUserByUsername(username)
	return ok, err
}

func (m *MemoryStore) ListUsers() ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.User, 0, len(m.userOrder))
	for _, id := range m.userOrder {
		if u, ok := m.users[id]; ok {
			res = append(res, u)
		}
	}
	return res, nil
}

func (m *MemoryStore) UserCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

func (m *MemoryStore) SaveBook(b domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[b.ID] = b
	return nil
}

func (m *MemoryStore) GetBook(id string) (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[id]
	return b, ok, nil
}

func (m *MemoryStore) GetBookByISBN(isbn string) (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.books {
		if b.ISBN != "" && b.ISBN == isbn {
			return b, true, nil
		}
	}
	return domain.Book{}, false, nil
}

func (m *MemoryStore) DeleteBook(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.books, id)
	for libID, ids := range m.libBooks {
		kept := ids[:0]
		for _, bookID := range ids {
			if bookID != id {
				kept = append(kept, bookID)
			}
		}
		m.libBooks[libID] = kept
	}
	return nil
}

func (m *MemoryStore) ListBooks(q SearchQuery) ([]domain.Book, error) {
	m.mu.RLock()
	matched := m.matchBooks(q)
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].Title < matched[j].Title })
	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return []domain.Book{}, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (m *MemoryStore) CountBooks(q SearchQuery) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.matchBooks(q)), nil
}

func (m *MemoryStore) matchBooks(q SearchQuery) []domain.Book {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	res := make([]domain.Book, 0, len(m.books))
	for _, b := range m.books {
		if q.OwnerID != "" && b.AddedByID != q.OwnerID {
			continue
		}
		if q.Year != 0 && b.PublicationYear != q.Year {
			continue
		}
		if text != "" {
			haystack := strings.ToLower(b.Title + "\x00" + b.Author + "\x00" + b.Description)
			if !strings.Contains(haystack, text) {
				continue
			}
		}
		res = append(res, b)
	}
	return res
}

func (m *MemoryStore) ListBooksByAuthor(authorName string) ([]domain.Book, error) {
	m.mu.RLock()
	res := make([]domain.Book, 0)
	for _, b := range m.books {
		if b.Author == authorName {
			res = append(res, b)
		}
	}
	m.mu.RUnlock()
	sort.Slice(res, func(i, j int) bool { return res[i].Title < res[j].Title })
	return res, nil
}

func (m *MemoryStore) GetOrCreateAuthor(name string) (domain.Author, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.authors[name]; ok {
		return a, nil
	}
	a := domain.Author{ID: NewID(), Name: name}
	m.authors[name] = a
	return a, nil
}

func (m *MemoryStore) ListAuthors() ([]domain.Author, error) {
	m.mu.RLock()
	res := make([]domain.Author, 0, len(m.authors))
	for _, a := range m.authors {
		res = append(res, a)
	}
	m.mu.RUnlock()
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func (m *MemoryStore) SaveLibrary(l domain.Library) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.Books = nil
	m.libraries[l.ID] = l
	return nil
}

func (m *MemoryStore) GetLibrary(id string) (domain.Library, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.libraries[id]
	if !ok {
		return domain.Library{}, false, nil
	}
	books := make([]domain.Book, 0, len(m.libBooks[id]))
	for _, bookID := range m.libBooks[id] {
		if b, exists := m.books[bookID]; exists {
			books = append(books, b)
		}
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })
	l.Books = books
	return l, true, nil
}

func (m *MemoryStore) ListLibraries() ([]domain.Library, error) {
	m.mu.RLock()
	res := make([]domain.Library, 0, len(m.libraries))
	for _, l := range m.libraries {
		l.Books = nil
		res = append(res, l)
	}
	m.mu.RUnlock()
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func (m *MemoryStore) SetLibraryBooks(libraryID string, bookIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := make([]string, 0, len(bookIDs))
	for _, id := range bookIDs {
		if _, ok := m.books[id]; ok {
			kept = append(kept, id)
		}
	}
	m.libBooks[libraryID] = kept
	return nil
}

func (m *MemoryStore) SaveLibrarian(l domain.Librarian) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.librarians[l.ID] = l
	return nil
}

func (m *MemoryStore) GetLibrarianByLibrary(libraryID string) (domain.Librarian, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, l := range m.librarians {
		if l.LibraryID == libraryID {
			return l, true, nil
		}
	}
	return domain.Librarian{}, false, nil
}
