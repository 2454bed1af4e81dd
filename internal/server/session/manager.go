package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/gorilla/securecookie"
)

// Manager ties a Store to the session cookie. The cookie carries the session
// id encoded by securecookie (HMAC-SHA256 plus timestamp); cookies that fail
// to decode or are older than ttl are treated as absent.
type Manager struct {
	store Store
	codec *securecookie.SecureCookie
	ttl   time.Duration
}

// NewManager builds a Manager. Sessions expire ttl after their last write.
func NewManager(store Store, secret []byte, ttl time.Duration) *Manager {
	codec := securecookie.New(secret, nil)
	codec.MaxAge(int(ttl.Seconds()))
	return &Manager{store: store, codec: codec, ttl: ttl}
}

// Get returns the value stored under key in the request's session.
func (m *Manager) Get(ctx context.Context, r *http.Request, key string) (string, bool, error) {
	id, ok := m.sessionID(r)
	if !ok {
		return "", false, nil
	}
	data, err := m.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	v, ok := data[key]
	return v, ok, nil
}

// Put stores key=value in the request's session, creating the session (and
// its cookie) if the request has none.
func (m *Manager) Put(ctx context.Context, w http.ResponseWriter, r *http.Request, key, value string) error {
	id, ok := m.sessionID(r)
	data := map[string]string{}
	if ok {
		existing, err := m.store.Get(ctx, id)
		switch {
		case err == nil:
			data = existing
		case errors.Is(err, common.ErrorNotFound):
			ok = false
		default:
			return err
		}
	}
	if !ok {
		return m.start(ctx, w, map[string]string{key: value})
	}

	data[key] = value
	if err := m.store.Set(ctx, id, data, m.ttl); err != nil {
		return err
	}
	return m.setCookie(w, id)
}

// Renew drops the request's session, if any, and starts a new one holding
// only key=value. Used at login so a planted session id never gains
// credentials.
func (m *Manager) Renew(ctx context.Context, w http.ResponseWriter, r *http.Request, key, value string) error {
	if id, ok := m.sessionID(r); ok {
		if err := m.store.Delete(ctx, id); err != nil {
			return err
		}
	}
	return m.start(ctx, w, map[string]string{key: value})
}

// Destroy deletes the request's session and expires its cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if id, ok := m.sessionID(r); ok {
		if err := m.store.Delete(ctx, id); err != nil {
			return err
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *Manager) start(ctx context.Context, w http.ResponseWriter, data map[string]string) error {
	id, err := common.MakeRandHexString(32)
	if err != nil {
		return err
	}
	if err := m.store.Set(ctx, id, data, m.ttl); err != nil {
		return err
	}
	return m.setCookie(w, id)
}

func (m *Manager) setCookie(w http.ResponseWriter, id string) error {
	value, err := m.codec.Encode(common.SessionCookieName, id)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *Manager) sessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(common.SessionCookieName)
	if err != nil {
		return "", false
	}
	var id string
	if err := m.codec.Decode(common.SessionCookieName, c.Value, &id); err != nil || id == "" {
		return "", false
	}
	return id, true
}
