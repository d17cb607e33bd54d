package services

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/rs/zerolog/log"

	"spendly/internal/utils"
)

const (
	SessionName = "spendly_session"
	SessionTTL  = 24 * time.Hour

	tokenKey = "token"
)

var ErrNoSession = errors.New("no active session")

// AuthService issues and checks the session cookie. The cookie is a signed
// gorilla session holding a JWT with the user id.
type AuthService interface {
	StartSession(w http.ResponseWriter, r *http.Request, userID string) error
	EndSession(w http.ResponseWriter, r *http.Request) error
	Authenticate(r *http.Request) (string, error)
}

type authService struct {
	store     sessions.Store
	jwtSecret []byte
	ttl       time.Duration
}

// NewCookieStore builds the session store. secure should be true whenever the API
// is served over HTTPS; it also switches SameSite to None so browsers on another
// origin still send the cookie.
func NewCookieStore(sessionKey []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(sessionKey)
	store.MaxAge(int(SessionTTL.Seconds()))

	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}
	return store
}

func NewAuthService(store sessions.Store, jwtSecret []byte) AuthService {
	return &authService{store: store, jwtSecret: jwtSecret, ttl: SessionTTL}
}

func (s *authService) StartSession(w http.ResponseWriter, r *http.Request, userID string) error {
	token, err := utils.GenerateJWT(userID, s.jwtSecret, s.ttl)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Could not generate token for user")
		return fmt.Errorf("could not generate token")
	}

	// A stale or foreign cookie fails to decode; a fresh session is still returned.
	session, _ := s.store.Get(r, SessionName)
	session.Values[tokenKey] = token
	if err := session.Save(r, w); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to save session")
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *authService) EndSession(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, SessionName)
	delete(session.Values, tokenKey)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		log.Error().Err(err).Msg("Failed to clear session")
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Authenticate returns the user id carried by the request's session cookie.
func (s *authService) Authenticate(r *http.Request) (string, error) {
	session, err := s.store.Get(r, SessionName)
	if err != nil {
		return "", ErrNoSession
	}
	token, ok := session.Values[tokenKey].(string)
	if !ok || token == "" {
		return "", ErrNoSession
	}
	userID, err := utils.ParseJWT(token, s.jwtSecret)
	if err != nil {
		log.Debug().Err(err).Msg("Rejected session token")
		return "", err
	}
	return userID, nil
}
