// internal/session/session.go
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ErrNoCredentials is returned by a credential source that has nothing to
// offer.
var ErrNoCredentials = errors.New("no credentials available")

// LoginFunc performs a full login and returns the new session id.
type LoginFunc func(ctx context.Context) (string, error)

// Manager holds the single session id shared by every request of a process.
// Renewals are serialized: concurrent callers that saw the same expired id
// wait on one login.
type Manager struct {
	mu    sync.RWMutex
	token string
	group singleflight.Group
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Get() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *Manager) Set(token string) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
}

func (m *Manager) Clear() {
	m.Set("")
}

// Renew replaces stale with a fresh session id. If the held id already
// differs from stale, another caller renewed it and that id is returned
// without logging in again.
func (m *Manager) Renew(ctx context.Context, stale string, login LoginFunc) (string, error) {
	if current := m.Get(); current != "" && current != stale {
		return current, nil
	}

	v, err, shared := m.group.Do("login", func() (any, error) {
		if current := m.Get(); current != "" && current != stale {
			return current, nil
		}
		m.Clear()
		token, err := login(ctx)
		if err != nil {
			return "", err
		}
		m.Set(token)
		logrus.Info("Session renewed")
		return token, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		logrus.Debug("Joined in-flight session renewal")
	}
	return v.(string), nil
}

// Credentials supplies a user name and password for login.
type Credentials interface {
	Credentials(ctx context.Context) (user, password string, err error)
}

// StaticCredentials replays fixed credentials from configuration.
type StaticCredentials struct {
	User     string
	Password string
}

func (c StaticCredentials) Credentials(context.Context) (string, string, error) {
	if c.User == "" {
		return "", "", ErrNoCredentials
	}
	return c.User, c.Password, nil
}

// CredentialsFunc adapts a function, such as an interactive prompt.
type CredentialsFunc func(ctx context.Context) (string, string, error)

func (f CredentialsFunc) Credentials(ctx context.Context) (string, string, error) {
	return f(ctx)
}
