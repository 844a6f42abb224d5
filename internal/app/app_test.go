package app

import (
	"errors"
	"strings"
	"testing"
	"time"

	"librarium/internal/mailer"
	"librarium/pkg/domain"
	"librarium/pkg/events"
	"librarium/pkg/store"
)

const testPassword = "Str0ng#Password!"

type testEnv struct {
	app    *App
	store  *store.MemoryStore
	events *events.MemoryPublisher
	mail   *mailer.MemoryMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	memStore := store.NewMemoryStore()
	sessions, err := store.NewJWTSessionStore("test-secret", time.Minute, store.NewMemoryTokenRevoker())
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	publisher := events.NewMemoryPublisher()
	mail := mailer.NewMemoryMailer()
	core, err := New(Config{
		Store:    memStore,
		Sessions: sessions,
		Events:   publisher,
		Mailer:   mail,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return &testEnv{app: core, store: memStore, events: publisher, mail: mail}
}

func (e *testEnv) register(t *testing.T, username string) domain.User {
	t.Helper()
	user, _, err := e.app.Register(username, username+"@example.com", testPassword, nil)
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return user
}

func TestRegisterFirstUserBecomesAdmin(t *testing.T) {
	env := newTestEnv(t)
	first := env.register(t, "alice")
	if first.Role != domain.RoleAdmin {
		t.Fatalf("expected first user to be admin, got %s", first.Role)
	}
	second := env.register(t, "bob")
	if second.Role != domain.RoleMember {
		t.Fatalf("expected second user to be member, got %s", second.Role)
	}
	if len(env.mail.Messages()) != 2 {
		t.Fatalf("expected welcome mail per registration, got %d", len(env.mail.Messages()))
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	if _, _, err := env.app.Register("alice", "other@example.com", testPassword, nil); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected username taken, got %v", err)
	}
	if _, _, err := env.app.Register("alice2", "alice@example.com", testPassword, nil); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.app.Register("x", "not-an-email", "weak", nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"username", "email", "password"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Fatalf("expected %s field error, got %v", field, verr.Fields)
		}
	}
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	user, token, err := env.app.Login("alice", testPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" || user.Username != "alice" {
		t.Fatalf("unexpected login result: %+v token=%q", user, token)
	}

	if _, _, err := env.app.Login("alice", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}

	resolved, ok := env.app.UserFromToken(token)
	if !ok || resolved.ID != user.ID {
		t.Fatalf("expected token to resolve to alice")
	}

	if err := env.app.Logout(token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := env.app.UserFromToken(token); ok {
		t.Fatalf("expected revoked token to stop resolving")
	}
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	env := newTestEnv(t)
	admin := env.register(t, "alice")
	target := env.register(t, "bob")

	disabled := domain.StatusDisabled
	if _, err := env.app.AdminUpdateUser(admin, target.ID, UserUpdate{Status: &disabled}); err != nil {
		t.Fatalf("disable user: %v", err)
	}
	if _, _, err := env.app.Login("bob", testPassword); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected account disabled, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "alice")

	if err := env.app.ChangePassword(user.ID, "wrong", "Other#Passw0rd!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}

	var verr *ValidationError
	if err := env.app.ChangePassword(user.ID, testPassword, "weak"); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if err := env.app.ChangePassword(user.ID, testPassword, "Other#Passw0rd!"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, _, err := env.app.Login("alice", "Other#Passw0rd!"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	msgs := env.mail.Messages()
	last := msgs[len(msgs)-1]
	if !strings.Contains(last.Subject, "password") {
		t.Fatalf("expected password-change notification, got %q", last.Subject)
	}
}

func TestUploadProfilePhoto(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "alice")

	var verr *ValidationError
	_, err := env.app.UploadProfilePhoto(t.Context(), user, "cv.pdf", "application/pdf", strings.NewReader("nope"), 4)
	if !errors.As(err, &verr) {
		t.Fatalf("expected content-type validation error, got %v", err)
	}
	_, err = env.app.UploadProfilePhoto(t.Context(), user, "big.png", "image/png", strings.NewReader("x"), MaxProfilePhotoBytes+1)
	if !errors.As(err, &verr) {
		t.Fatalf("expected size validation error, got %v", err)
	}

	updated, err := env.app.UploadProfilePhoto(t.Context(), user, "me.png", "image/png", strings.NewReader("png-bytes"), 9)
	if err != nil {
		t.Fatalf("upload photo: %v", err)
	}
	if updated.ProfilePhotoKey == "" {
		t.Fatalf("expected photo key on user")
	}
	url, err := env.app.ProfilePhotoURL(t.Context(), updated)
	if err != nil || url == "" {
		t.Fatalf("photo url: %q err=%v", url, err)
	}
}
