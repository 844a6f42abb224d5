package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"librarium/internal/app"
	"librarium/internal/util"
	"librarium/pkg/domain"
	"librarium/pkg/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Limiter gates a request by key; a nil Limiter admits everything.
type Limiter interface {
	Allow(key string) bool
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App

	// Optional per-route rate limits, keyed by client IP.
	RegisterLimit Limiter
	LoginLimit    Limiter
	PasswordLimit Limiter

	// TrustedProxies controls which Forwarded-For hops are believed when
	// resolving the client IP for rate limiting.
	TrustedProxies *util.TrustedProxies
}

// Server exposes the HTTP endpoints of the library service.
type Server struct {
	app     *app.App
	mux     *http.ServeMux
	proxies *util.TrustedProxies

	registerLimit Limiter
	loginLimit    Limiter
	passwordLimit Limiter
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:           cfg.App,
		mux:           http.NewServeMux(),
		proxies:       cfg.TrustedProxies,
		registerLimit: cfg.RegisterLimit,
		loginLimit:    cfg.LoginLimit,
		passwordLimit: cfg.PasswordLimit,
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// accounts
	s.mux.Handle("/auth/register", s.limited(s.registerLimit, http.HandlerFunc(s.handleRegister)))
	s.mux.Handle("/auth/login", s.limited(s.loginLimit, http.HandlerFunc(s.handleLogin)))
	s.mux.HandleFunc("/auth/logout", s.handleLogout)
	s.mux.Handle("/auth/me", s.authenticated(s.handleMe))
	s.mux.Handle("/auth/me/password", s.limited(s.passwordLimit, s.authenticated(s.handleChangePassword)))
	s.mux.Handle("/auth/me/photo", s.authenticated(s.handleProfilePhoto))

	// books
	s.mux.Handle("/books", s.authenticated(s.handleBooks))
	s.mux.Handle("/books/", s.authenticated(s.handleBookByID))
	s.mux.Handle("/api/books/search", s.authenticated(s.handleSearch))

	// catalog relations
	s.mux.Handle("/authors", s.authenticated(s.handleAuthors))
	s.mux.Handle("/authors/", s.authenticated(s.handleAuthorBooks))
	s.mux.Handle("/libraries", s.authenticated(s.handleLibraries))
	s.mux.Handle("/libraries/", s.authenticated(s.handleLibraryByID))

	// role dashboards
	s.mux.Handle("/dashboard/admin", s.roleOnly(domain.RoleAdmin, s.handleAdminDashboard))
	s.mux.Handle("/dashboard/librarian", s.roleOnly(domain.RoleLibrarian, s.handleLibrarianDashboard))
	s.mux.Handle("/dashboard/member", s.roleOnly(domain.RoleMember, s.handleMemberDashboard))

	// admin
	s.mux.Handle("/admin/users", s.adminOnly(s.handleAdminUsers))
	s.mux.Handle("/admin/users/", s.adminOnly(s.handleAdminUserByID))
	s.mux.Handle("/admin/books", s.adminOnly(s.handleAdminBooks))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) adminOnly(next authHandler) http.Handler {
	return s.roleOnly(domain.RoleAdmin, next)
}

func (s *Server) roleOnly(role domain.Role, next authHandler) http.Handler {
	return s.authenticated(func(w http.ResponseWriter, r *http.Request, user domain.User) {
		if user.Role != role {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) limited(limit Limiter, next http.Handler) http.Handler {
	if limit == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limit.Allow(util.ClientIP(r, s.proxies)) {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorize(r *http.Request) (domain.User, bool) {
	token, ok := bearerToken(r)
	if !ok {
		return domain.User{}, false
	}
	return s.app.UserFromToken(token)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

// parseDate reads a YYYY-MM-DD value; empty means "not set".
func parseDate(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, errors.New("date must be in YYYY-MM-DD format")
	}
	return &t, nil
}

// parseListQuery reads q, year, page, and pageSize into a store query.
func parseListQuery(r *http.Request) (store.SearchQuery, error) {
	q := store.SearchQuery{Text: strings.TrimSpace(r.URL.Query().Get("q"))}
	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return q, errors.New("year must be an integer")
		}
		q.Year = year
	}
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return q, errors.New("page must be a positive integer")
		}
		page = parsed
	}
	size := defaultPageSize
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return q, errors.New("pageSize must be a positive integer")
		}
		size = min(parsed, maxPageSize)
	}
	q.Limit = size
	q.Offset = (page - 1) * size
	return q, nil
}

func pathID(r *http.Request, prefix string) (string, bool) {
	id := strings.TrimPrefix(r.URL.Path, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError maps application errors onto HTTP statuses. Field-level
// validation failures carry their messages back in a fields object.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, app.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrAccountDisabled):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrUsernameTaken),
		errors.Is(err, app.ErrEmailTaken),
		errors.Is(err, app.ErrISBNTaken),
		errors.Is(err, app.ErrSelfDemotion):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		util.LoggerFromContext(r.Context()).Error("request failed",
			"method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
