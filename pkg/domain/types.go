package domain

import "time"

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleLibrarian Role = "librarian"
	RoleMember    Role = "member"
)

type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusDisabled UserStatus = "disabled"
)

// Permission is a book-level access flag checked before an operation runs.
type Permission string

const (
	PermViewBooks   Permission = "can_view"
	PermCreateBooks Permission = "can_create"
	PermEditBooks   Permission = "can_edit"
	PermDeleteBooks Permission = "can_delete"
)

// AllPermissions lists every known permission in a stable order.
var AllPermissions = []Permission{PermViewBooks, PermCreateBooks, PermEditBooks, PermDeleteBooks}

// rolePermissions are the defaults implied by a role. Explicit per-user
// grants union with these; members rely on owner-scoped visibility only.
var rolePermissions = map[Role][]Permission{
	RoleAdmin:     {PermViewBooks, PermCreateBooks, PermEditBooks, PermDeleteBooks},
	RoleLibrarian: {PermViewBooks, PermCreateBooks, PermEditBooks},
	RoleMember:    {},
}

type User struct {
	ID              string       `json:"id"`
	Username        string       `json:"username"`
	Email           string       `json:"email"`
	DateOfBirth     *time.Time   `json:"dateOfBirth,omitempty"`
	ProfilePhotoKey string       `json:"-"`
	PasswordHash    string       `json:"-"`
	Role            Role         `json:"role"`
	Status          UserStatus   `json:"status"`
	Perms           []Permission `json:"permissions"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// HasPermission reports whether the user holds the permission either through
// an explicit grant or through their role defaults.
func (u User) HasPermission(p Permission) bool {
	for _, granted := range u.Perms {
		if granted == p {
			return true
		}
	}
	for _, implied := range rolePermissions[u.Role] {
		if implied == p {
			return true
		}
	}
	return false
}

// Active reports whether the account may authenticate.
func (u User) Active() bool {
	return u.Status == StatusActive
}

type Book struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	PublicationYear int       `json:"publicationYear"`
	ISBN            string    `json:"isbn,omitempty"`
	Description     string    `json:"description,omitempty"`
	AddedByID       string    `json:"addedById,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type Author struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Library groups books; the book set is many-to-many.
type Library struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Books     []Book    `json:"books,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Librarian is assigned to exactly one library.
type Librarian struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	LibraryID string    `json:"libraryId"`
	CreatedAt time.Time `json:"createdAt"`
}
