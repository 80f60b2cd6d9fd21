// Package session holds the gateway credential for the lifetime of a console
// session. It replaces ambient global credential state with an explicit
// object that the HTTP layer is given.
package session

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// ErrEmptyCredentials is returned by Login when user or password is blank.
var ErrEmptyCredentials = errors.New("user and password are required")

// Store persists the credential token between runs.
type Store interface {
	Load() (string, error)
	Save(token string) error
	Delete() error
}

// Session is the credential holder. It is safe for concurrent use.
type Session struct {
	mu        sync.RWMutex
	token     string
	store     Store
	onExpired []func()
}

// New creates a session and loads any stored token.
func New(store Store) (*Session, error) {
	s := &Session{store: store}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the token from the store.
func (s *Session) Reload() error {
	token, err := s.store.Load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// Token returns the current credential token, empty when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// LoggedIn reports whether a credential is held.
func (s *Session) LoggedIn() bool {
	return s.Token() != ""
}

// Login stores Basic credentials for user and password.
func (s *Session) Login(user, password string) error {
	if strings.TrimSpace(user) == "" || password == "" {
		return ErrEmptyCredentials
	}
	return s.SetToken(EncodeBasic(user, password))
}

// SetToken replaces the token and persists it.
func (s *Session) SetToken(token string) error {
	if err := s.store.Save(token); err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// Logout clears the token and removes it from the store.
func (s *Session) Logout() error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return s.store.Delete()
}

// OnExpired registers fn to run when the gateway rejects the credential.
func (s *Session) OnExpired(fn func()) {
	s.mu.Lock()
	s.onExpired = append(s.onExpired, fn)
	s.mu.Unlock()
}

// Authorize sets the Authorization header on req when logged in.
func (s *Session) Authorize(req *http.Request) {
	if token := s.Token(); token != "" {
		req.Header.Set("Authorization", "Basic "+token)
	}
}

// Expire drops a rejected credential. Hooks run only when a token was held,
// so a burst of 401s expires the session once.
func (s *Session) Expire() {
	s.mu.Lock()
	had := s.token != ""
	s.token = ""
	hooks := append([]func(){}, s.onExpired...)
	s.mu.Unlock()

	if !had {
		return
	}
	if err := s.store.Delete(); err != nil {
		log.Warn("unable to delete expired credential", "error", err)
	}
	for _, fn := range hooks {
		fn()
	}
}

// EncodeBasic returns the Basic auth token for user and password.
func EncodeBasic(user, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + password))
}
