package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"librarium/internal/app"
	"librarium/pkg/domain"
)

type adminUserUpdateRequest struct {
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	Permissions *[]string `json:"permissions"`
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	users, err := s.app.ListUsers()
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": users,
		"count": len(users),
	})
}

func (s *Server) handleAdminUserByID(w http.ResponseWriter, r *http.Request, actor domain.User) {
	id, ok := pathID(r, "/admin/users/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPatch {
		methodNotAllowed(w)
		return
	}
	var req adminUserUpdateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	var update app.UserUpdate
	if req.Role != "" {
		role, ok := parseRole(req.Role)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid role")
			return
		}
		update.Role = &role
	}
	if req.Status != "" {
		status, ok := parseStatus(req.Status)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		update.Status = &status
	}
	if req.Permissions != nil {
		perms := make([]domain.Permission, 0, len(*req.Permissions))
		for _, raw := range *req.Permissions {
			perm, ok := parsePermission(raw)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid permission: "+raw)
				return
			}
			perms = append(perms, perm)
		}
		update.Perms = &perms
	}
	if update.Role == nil && update.Status == nil && update.Perms == nil {
		writeError(w, http.StatusBadRequest, "role, status, or permissions is required")
		return
	}
	updated, err := s.app.AdminUpdateUser(actor, id, update)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleAdminBooks(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := s.app.AdminListBooks(q)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookPageResponse{
		Items: page.Books,
		Count: len(page.Books),
		Total: page.Total,
	})
}

func parseRole(role string) (domain.Role, bool) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case string(domain.RoleAdmin):
		return domain.RoleAdmin, true
	case string(domain.RoleLibrarian):
		return domain.RoleLibrarian, true
	case string(domain.RoleMember):
		return domain.RoleMember, true
	default:
		return "", false
	}
}

func parseStatus(status string) (domain.UserStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case string(domain.StatusActive):
		return domain.StatusActive, true
	case string(domain.StatusDisabled):
		return domain.StatusDisabled, true
	default:
		return "", false
	}
}

func parsePermission(raw string) (domain.Permission, bool) {
	candidate := domain.Permission(strings.ToLower(strings.TrimSpace(raw)))
	for _, perm := range domain.AllPermissions {
		if perm == candidate {
			return perm, true
		}
	}
	return "", false
}
