package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"librarium/internal/app"
	"librarium/pkg/domain"
)

type bookRequest struct {
	Title           string `json:"title"`
	Author          string `json:"author"`
	PublicationYear int    `json:"publicationYear"`
	ISBN            string `json:"isbn"`
	Description     string `json:"description"`
}

func (req bookRequest) input() app.BookInput {
	return app.BookInput{
		Title:           req.Title,
		Author:          req.Author,
		PublicationYear: req.PublicationYear,
		ISBN:            req.ISBN,
		Description:     req.Description,
	}
}

type bookPageResponse struct {
	Items []domain.Book `json:"items"`
	Count int           `json:"count"`
	Total int           `json:"total"`
}

// searchResult is the compact row shape of the search endpoint.
type searchResult struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   int    `json:"year"`
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		q, err := parseListQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		page, err := s.app.ListBooks(user, q)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, bookPageResponse{
			Items: page.Books,
			Count: len(page.Books),
			Total: page.Total,
		})
	case http.MethodPost:
		var req bookRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		book, err := s.app.CreateBook(user, req.input())
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, book)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleBookByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	id, ok := pathID(r, "/books/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		book, err := s.app.GetBook(user, id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, book)
	case http.MethodPut:
		var req bookRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		book, err := s.app.UpdateBook(user, id, req.input())
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, book)
	case http.MethodDelete:
		if err := s.app.DeleteBook(user, id); err != nil {
			writeAppError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	books, err := s.app.SearchBooks(user, query)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	results := make([]searchResult, 0, len(books))
	for _, book := range books {
		results = append(results, searchResult{
			ID:     book.ID,
			Title:  book.Title,
			Author: book.Author,
			Year:   book.PublicationYear,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
