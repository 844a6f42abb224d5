package app

import (
	"fmt"
	"time"

	"librarium/pkg/domain"
	"librarium/pkg/events"
	"librarium/pkg/store"
)

// UserUpdate is a partial admin edit of an account; nil fields are untouched.
type UserUpdate struct {
	Role   *domain.Role
	Status *domain.UserStatus
	Perms  *[]domain.Permission
}

// ListUsers returns every account in registration order.
func (a *App) ListUsers() ([]domain.User, error) {
	users, err := a.store.ListUsers()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// AdminUpdateUser changes role, status, or permission grants on an account.
// Admins cannot demote or disable themselves.
func (a *App) AdminUpdateUser(actor domain.User, id string, update UserUpdate) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(id)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrNotFound
	}
	if actor.ID == user.ID {
		if update.Role != nil && *update.Role != domain.RoleAdmin {
			return domain.User{}, ErrSelfDemotion
		}
		if update.Status != nil && *update.Status != domain.StatusActive {
			return domain.User{}, ErrSelfDemotion
		}
	}
	if update.Role != nil {
		user.Role = *update.Role
	}
	if update.Status != nil {
		user.Status = *update.Status
	}
	if update.Perms != nil {
		user.Perms = *update.Perms
	}
	user.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	a.publish(events.Event{Type: events.TypeUserUpdated, ActorID: actor.ID, SubjectID: user.ID})
	return user, nil
}

// Stats returns account and catalog totals for the admin dashboard.
func (a *App) Stats() (users int, books int, err error) {
	users, err = a.store.UserCount()
	if err != nil {
		return 0, 0, fmt.Errorf("count users: %w", err)
	}
	books, err = a.store.CountBooks(store.SearchQuery{})
	if err != nil {
		return 0, 0, fmt.Errorf("count books: %w", err)
	}
	return users, books, nil
}

// AdminListBooks returns a page of all books matching the query regardless
// of ownership.
func (a *App) AdminListBooks(q store.SearchQuery) (BookPage, error) {
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
