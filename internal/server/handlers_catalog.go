package server

import (
	"net/http"
	"net/url"
	"strings"

	"librarium/pkg/domain"
	"librarium/pkg/store"
)

func (s *Server) handleAuthors(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	authors, err := s.app.Authors()
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": authors, "count": len(authors)})
}

// GET /authors/{name}/books lists books through the author relation.
func (s *Server) handleAuthorBooks(w http.ResponseWriter, r *http.Request, _ domain.User) {
	rest := strings.TrimPrefix(r.URL.Path, "/authors/")
	name, ok := strings.CutSuffix(rest, "/books")
	if !ok || name == "" || strings.Contains(name, "/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	unescaped, err := url.PathUnescape(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid author name")
		return
	}
	books, err := s.app.BooksByAuthor(unescaped)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": books, "count": len(books)})
}

func (s *Server) handleLibraries(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	libraries, err := s.app.Libraries()
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": libraries, "count": len(libraries)})
}

// GET /libraries/{id} and /libraries/{id}/librarian.
func (s *Server) handleLibraryByID(w http.ResponseWriter, r *http.Request, _ domain.User) {
	rest := strings.TrimPrefix(r.URL.Path, "/libraries/")
	id, wantLibrarian := strings.CutSuffix(rest, "/librarian")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if wantLibrarian {
		librarian, err := s.app.LibrarianForLibrary(id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, librarian)
		return
	}
	library, err := s.app.LibraryDetail(id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, library)
}

// role dashboards
func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	users, books, err := s.app.Stats()
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"role":       user.Role,
		"username":   user.Username,
		"totalUsers": users,
		"totalBooks": books,
	})
}

func (s *Server) handleLibrarianDashboard(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	page, err := s.app.ListBooks(user, store.SearchQuery{Limit: 1})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"role":       user.Role,
		"username":   user.Username,
		"totalBooks": page.Total,
	})
}

func (s *Server) handleMemberDashboard(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	page, err := s.app.ListBooks(user, store.SearchQuery{Limit: 1})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"role":     user.Role,
		"username": user.Username,
		"myBooks":  page.Total,
	})
}
