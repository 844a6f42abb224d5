package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"librarium/internal/mailer"
	"librarium/pkg/auth"
	"librarium/pkg/domain"
	"librarium/pkg/events"
	"librarium/pkg/storage"
	"librarium/pkg/store"
)

// MaxProfilePhotoBytes caps profile photo uploads.
const MaxProfilePhotoBytes = 5 << 20

const photoURLExpiry = 15 * time.Minute

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL   string
	SecretKey     string
	SessionTTL    time.Duration
	RedisAddr     string
	RedisPassword string

	// Optional pre-built dependencies; production wiring happens in main,
	// tests inject in-memory implementations.
	Store    store.Store
	Sessions store.SessionStore
	Photos   storage.ObjectStore
	Mailer   mailer.Mailer
	Events   events.Publisher
}

// App is the core application service wiring storage, sessions, object
// storage, mail, and audit events together.
type App struct {
	store    store.Store
	sessions store.SessionStore
	photos   storage.ObjectStore
	mailer   mailer.Mailer
	events   events.Publisher
}

// New constructs the application. Absent dependencies fall back to
// database-backed or in-memory defaults.
func New(cfg Config) (*App, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = time.Hour
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	sessions := cfg.Sessions
	if sessions == nil {
		var revoker store.TokenRevoker
		if strings.TrimSpace(cfg.RedisAddr) != "" {
			revoker = store.NewRedisTokenRevoker(cfg.RedisAddr, cfg.RedisPassword)
		} else {
			revoker = store.NewMemoryTokenRevoker()
		}
		var err error
		sessions, err = store.NewJWTSessionStore(cfg.SecretKey, cfg.SessionTTL, revoker)
		if err != nil {
			return nil, fmt.Errorf("init session store: %w", err)
		}
	}

	photos := cfg.Photos
	if photos == nil {
		photos = storage.NewMemoryObjectStore()
	}
	mail := cfg.Mailer
	if mail == nil {
		mail = mailer.NewMemoryMailer()
	}
	publisher := cfg.Events
	if publisher == nil {
		publisher = events.NewMemoryPublisher()
	}

	return &App{
		store:    dataStore,
		sessions: sessions,
		photos:   photos,
		mailer:   mail,
		events:   publisher,
	}, nil
}

// Register creates a new account and opens a session. The first account
// becomes the admin; everyone after that starts as a member.
func (a *App) Register(username, email, password string, dateOfBirth *time.Time) (domain.User, string, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))

	verr := newValidationError()
	if err := auth.ValidateUsername(username); err != nil {
		verr.add("username", err.Error())
	}
	if email == "" || !strings.Contains(email, "@") {
		verr.add("email", "a valid email address is required")
	}
	if err := auth.ValidatePassword(password); err != nil {
		verr.add("password", err.Error())
	}
	if dateOfBirth != nil && dateOfBirth.After(time.Now()) {
		verr.add("dateOfBirth", "date of birth cannot be in the future")
	}
	if err := verr.orNil(); err != nil {
		return domain.User{}, "", err
	}

	if taken, err := a.store.HasUsername(username); err != nil {
		return domain.User{}, "", fmt.Errorf("check username: %w", err)
	} else if taken {
		return domain.User{}, "", ErrUsernameTaken
	}
	if taken, err := a.store.HasUserEmail(email); err != nil {
		return domain.User{}, "", fmt.Errorf("check email: %w", err)
	} else if taken {
		return domain.User{}, "", ErrEmailTaken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	count, err := a.store.UserCount()
	if err != nil {
		return domain.User{}, "", fmt.Errorf("count users: %w", err)
	}
	role := domain.RoleMember
	if count == 0 {
		role = domain.RoleAdmin
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		DateOfBirth:  dateOfBirth,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, "", fmt.Errorf("save user: %w", err)
	}

	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("create session: %w", err)
	}

	a.publish(events.Event{Type: events.TypeUserRegistered, ActorID: user.ID, SubjectID: user.ID})
	a.sendMail(user.Email, "Welcome to the library",
		fmt.Sprintf("Hi %s, your library account has been created.", user.Username))
	return user, token, nil
}

// Login verifies credentials and opens a session.
func (a *App) Login(username, password string) (domain.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.User{}, "", ErrInvalidCredentials
	}
	user, ok, err := a.store.GetUserByUsername(username)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("lookup user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if !user.Active() {
		return domain.User{}, "", ErrAccountDisabled
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("create session: %w", err)
	}
	return user, token, nil
}

// Logout revokes the session token.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// UserFromToken resolves a session token to its active user.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	userID, ok, err := a.sessions.UserIDFromToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil || !ok || !user.Active() {
		return domain.User{}, false
	}
	return user, true
}

// ChangePassword rotates the password after verifying the current one and
// notifies the account email.
func (a *App) ChangePassword(userID, currentPassword, newPassword string) error {
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	if !auth.CheckPassword(currentPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	if err := auth.ValidatePassword(newPassword); err != nil {
		verr := newValidationError()
		verr.add("newPassword", err.Error())
		return verr
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveUser(user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	a.sendMail(user.Email, "Your password was changed",
		fmt.Sprintf("Hi %s, the password on your library account was just changed.", user.Username))
	return nil
}

// UpdateProfile changes email and date of birth on the caller's account.
func (a *App) UpdateProfile(user domain.User, email string, dateOfBirth *time.Time) (domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	verr := newValidationError()
	if email == "" || !strings.Contains(email, "@") {
		verr.add("email", "a valid email address is required")
	}
	if dateOfBirth != nil && dateOfBirth.After(time.Now()) {
		verr.add("dateOfBirth", "date of birth cannot be in the future")
	}
	if err := verr.orNil(); err != nil {
		return domain.User{}, err
	}
	if email != user.Email {
		taken, err := a.store.HasUserEmail(email)
		if err != nil {
			return domain.User{}, fmt.Errorf("check email: %w", err)
		}
		if taken {
			return domain.User{}, ErrEmailTaken
		}
	}
	user.Email = email
	user.DateOfBirth = dateOfBirth
	user.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// UploadProfilePhoto stores the photo and records its object key on the user.
func (a *App) UploadProfilePhoto(ctx context.Context, user domain.User, filename, contentType string, r io.Reader, size int64) (domain.User, error) {
	verr := newValidationError()
	if !strings.HasPrefix(contentType, "image/") {
		verr.add("photo", "profile photo must be an image")
	}
	if size <= 0 || size > MaxProfilePhotoBytes {
		verr.add("photo", "profile photo must be between 1 byte and 5 MB")
	}
	if err := verr.orNil(); err != nil {
		return domain.User{}, err
	}
	ext := strings.ToLower(path.Ext(filename))
	key := "profile_photos/" + user.ID + ext
	if err := a.photos.Put(ctx, key, r, size, contentType); err != nil {
		return domain.User{}, fmt.Errorf("store photo: %w", err)
	}
	user.ProfilePhotoKey = key
	user.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// ProfilePhotoURL returns a short-lived download URL for the user's photo.
func (a *App) ProfilePhotoURL(ctx context.Context, user domain.User) (string, error) {
	if user.ProfilePhotoKey == "" {
		return "", ErrNotFound
	}
	url, err := a.photos.PresignGet(ctx, user.ProfilePhotoKey, photoURLExpiry)
	if err != nil {
		return "", fmt.Errorf("presign photo: %w", err)
	}
	return url, nil
}

func (a *App) publish(e events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := a.events.Publish(ctx, e); err != nil {
		slog.Warn("publish audit event failed", "type", e.Type, "err", err)
	}
}

func (a *App) sendMail(to, subject, body string) {
	if err := a.mailer.Send(to, subject, body); err != nil {
		slog.Warn("send notification mail failed", "to", to, "err", err)
	}
}
