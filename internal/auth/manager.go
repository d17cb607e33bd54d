// Package auth manages the signed-in identity on the client: logging in and out,
// caching who is signed in, and keeping the session cookie between runs.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"spendly/internal/models"
	"spendly/internal/prefs"
)

const MinPasswordLength = 6

var (
	ErrValidation  = errors.New("validation failed")
	ErrNotSignedIn = errors.New("not signed in")
)

// Authenticator is the user half of the API. *apiclient.Client implements it.
type Authenticator interface {
	Register(ctx context.Context, in models.Register) (string, error)
	Login(ctx context.Context, in models.Login) (models.PublicUser, error)
	Logout(ctx context.Context) error
	ChangePassword(ctx context.Context, in models.PasswordChange) error
}

// cookieHolder is implemented by clients whose session cookie can be saved and
// put back.
type cookieHolder interface {
	Cookies() []*http.Cookie
	SetCookies([]*http.Cookie)
}

// IdentityObserver is told whenever the identity changes; nil means signed out.
type IdentityObserver interface {
	SetIdentity(ctx context.Context, identity *models.Identity) error
}

type Manager struct {
	client   Authenticator
	repo     *prefs.Repository
	observer IdentityObserver

	mu      sync.Mutex
	current *models.Identity
}

func NewManager(client Authenticator, repo *prefs.Repository, observer IdentityObserver) *Manager {
	return &Manager{client: client, repo: repo, observer: observer}
}

func (m *Manager) Current() *models.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	id := *m.current
	return &id
}

func (m *Manager) setCurrent(id *models.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = id
}

// Restore puts back the cached identity and session cookie from a previous run.
// It returns nil when nobody was signed in. An error from loading the identity's
// data is returned alongside the identity.
func (m *Manager) Restore(ctx context.Context) (*models.Identity, error) {
	if holder, ok := m.client.(cookieHolder); ok {
		stored, err := m.repo.LoadCookies(ctx)
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}
		cookies := make([]*http.Cookie, 0, len(stored))
		for _, c := range stored {
			cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: c.Path, Expires: c.Expires})
		}
		holder.SetCookies(cookies)
	}

	id, err := m.repo.LoadIdentity(ctx)
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	if id == nil {
		return nil, nil
	}
	m.setCurrent(id)
	if m.observer != nil {
		if err := m.observer.SetIdentity(ctx, id); err != nil {
			return id, err
		}
	}
	return id, nil
}

func (m *Manager) Login(ctx context.Context, email, password string) (models.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.Identity{}, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := m.client.Login(ctx, models.Login{Email: email, Password: password})
	if err != nil {
		return models.Identity{}, fmt.Errorf("login: %w", err)
	}

	id := models.Identity{ID: user.ID, Email: user.Email, Name: user.Fullname}
	if err := m.repo.SaveIdentity(ctx, id); err != nil {
		return models.Identity{}, fmt.Errorf("save identity: %w", err)
	}
	m.saveCookies(ctx)
	m.setCurrent(&id)
	log.Info().Str("user_id", id.ID).Msg("Signed in")

	if m.observer != nil {
		if err := m.observer.SetIdentity(ctx, &id); err != nil {
			log.Warn().Err(err).Str("user_id", id.ID).Msg("Signed in but expenses could not be loaded")
		}
	}
	return id, nil
}

// Signup registers the account and then signs in with it.
func (m *Manager) Signup(ctx context.Context, fullname, email, password string) (models.Identity, error) {
	fullname = strings.TrimSpace(fullname)
	email = strings.TrimSpace(email)
	if fullname == "" || email == "" || password == "" {
		return models.Identity{}, fmt.Errorf("%w: name, email and password are required", ErrValidation)
	}
	if len(password) < MinPasswordLength {
		return models.Identity{}, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	}

	if _, err := m.client.Register(ctx, models.Register{Fullname: fullname, Email: email, Password: password}); err != nil {
		return models.Identity{}, fmt.Errorf("register: %w", err)
	}
	return m.Login(ctx, email, password)
}

// Logout ends the session. A failed remote logout is logged and otherwise ignored;
// local state is cleared either way.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.client.Logout(ctx); err != nil {
		log.Warn().Err(err).Msg("Remote logout failed")
	}

	var errs []error
	if err := m.repo.ClearIdentity(ctx); err != nil {
		errs = append(errs, fmt.Errorf("clear identity: %w", err))
	}
	if err := m.repo.ClearCookies(ctx); err != nil {
		errs = append(errs, fmt.Errorf("clear session: %w", err))
	}
	if holder, ok := m.client.(cookieHolder); ok {
		expired := make([]*http.Cookie, 0)
		for _, c := range holder.Cookies() {
			expired = append(expired, &http.Cookie{Name: c.Name, Value: "", Path: "/", MaxAge: -1})
		}
		holder.SetCookies(expired)
	}
	m.setCurrent(nil)

	if m.observer != nil {
		if err := m.observer.SetIdentity(ctx, nil); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Rename changes the display name kept for the signed-in identity. It is local only.
func (m *Manager) Rename(ctx context.Context, name string) (models.Identity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Identity{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	cur := m.Current()
	if cur == nil {
		return models.Identity{}, ErrNotSignedIn
	}
	cur.Name = name
	if err := m.repo.SaveIdentity(ctx, *cur); err != nil {
		return models.Identity{}, fmt.Errorf("save identity: %w", err)
	}
	m.setCurrent(cur)
	return *cur, nil
}

// ChangePassword checks the form locally before asking the API to change it.
func (m *Manager) ChangePassword(ctx context.Context, current, next, confirm string) error {
	if current == "" || next == "" || confirm == "" {
		return fmt.Errorf("%w: all password fields are required", ErrValidation)
	}
	if next != confirm {
		return fmt.Errorf("%w: new passwords do not match", ErrValidation)
	}
	if len(next) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	}
	if m.Current() == nil {
		return ErrNotSignedIn
	}

	if err := m.client.ChangePassword(ctx, models.PasswordChange{CurrentPassword: current, NewPassword: next}); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

func (m *Manager) saveCookies(ctx context.Context) {
	holder, ok := m.client.(cookieHolder)
	if !ok {
		return
	}
	stored := make([]prefs.SessionCookie, 0)
	for _, c := range holder.Cookies() {
		stored = append(stored, prefs.SessionCookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	if err := m.repo.SaveCookies(ctx, stored); err != nil {
		log.Warn().Err(err).Msg("Failed to persist session cookie")
	}
}
