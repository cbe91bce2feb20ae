// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package sessionstate implements OpenID Connect session management
// (front-channel session_state values and the browser-state cookie).
package sessionstate

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/stacklok/trustengine/pkg/authserver/storage"
)

// DefaultCookieName is the name of the browser-state cookie.
const DefaultCookieName = "trustd_session_state"

// DefaultLifespan is how long an idle session is kept on the server.
const DefaultLifespan = 24 * time.Hour

// sessionIDSuffix names the HttpOnly cookie carrying the server session ID,
// next to the browser-state cookie.
const sessionIDSuffix = "_id"

const randomBytes = 16

// Record is the browser-state value held in the server session.
type Record struct {
	Value string `json:"value"`
	Salt  string `json:"salt"`
}

// Session is the server-side session the record lives in.
type Session interface {
	StateRecord() *Record
	SetStateRecord(*Record)
}

// MemorySession is a Session held in process memory.
type MemorySession struct {
	mu  sync.Mutex
	rec *Record
}

// StateRecord implements Session.
func (s *MemorySession) StateRecord() *Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec
}

// SetStateRecord implements Session.
func (s *MemorySession) SetStateRecord(rec *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = rec
}

// ServerSession is a Session whose record is persisted in a
// storage.SessionStore under an opaque ID.
type ServerSession struct {
	MemorySession
	id    string
	isNew bool
}

// ID returns the session ID.
func (s *ServerSession) ID() string { return s.id }

// IsNew reports whether the session has not been saved yet.
func (s *ServerSession) IsNew() bool { return s.isNew }

// Helper writes the browser-state cookie, computes session_state values and
// keeps the authoritative record of each browser session in a store.
type Helper struct {
	store      storage.SessionStore
	cookieName string
	cookiePath string
	secure     bool
	lifespan   time.Duration
	now        func() time.Time
}

// Option configures a Helper.
type Option func(*Helper)

// WithLifespan sets how long an idle session is kept on the server.
func WithLifespan(d time.Duration) Option {
	return func(h *Helper) {
		if d > 0 {
			h.lifespan = d
		}
	}
}

// NewHelper creates a Helper whose cookies are scoped to the path of issuer
// and whose session records live in store. An unparseable issuer scopes the
// cookies to "/".
func NewHelper(issuer, cookieName string, store storage.SessionStore, opts ...Option) *Helper {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	h := &Helper{
		store:      store,
		cookieName: cookieName,
		cookiePath: "/",
		lifespan:   DefaultLifespan,
		now:        time.Now,
	}
	if u, err := url.Parse(issuer); err == nil && u.Scheme != "" {
		if u.Path != "" {
			h.cookiePath = u.Path
		}
		h.secure = u.Scheme == "https"
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// CookieName returns the browser-state cookie name.
func (h *Helper) CookieName() string { return h.cookieName }

// CookiePath returns the browser-state cookie path.
func (h *Helper) CookiePath() string { return h.cookiePath }

// SessionCookieName returns the name of the HttpOnly session ID cookie.
func (h *Helper) SessionCookieName() string { return h.cookieName + sessionIDSuffix }

// WriteCookie sets the browser-state cookie for session. A nil session
// clears the cookie. The value is generated once and reused until the
// session's record changes.
func (h *Helper) WriteCookie(w http.ResponseWriter, session Session) error {
	if session == nil {
		http.SetCookie(w, h.cookie("", -1))
		return nil
	}
	rec, err := ensureRecord(session)
	if err != nil {
		return err
	}
	http.SetCookie(w, h.cookie(rec.Value, 0))
	return nil
}

// ensureRecord returns the session's record, creating it on first use.
func ensureRecord(session Session) (*Record, error) {
	if rec := session.StateRecord(); rec != nil && rec.Value != "" {
		return rec, nil
	}
	value, err := random()
	if err != nil {
		return nil, err
	}
	salt, err := random()
	if err != nil {
		return nil, err
	}
	rec := &Record{Value: value, Salt: salt}
	session.SetStateRecord(rec)
	return rec, nil
}

func (h *Helper) cookie(value string, maxAge int) *http.Cookie {
	// session management iframes read this cookie, so it is not HttpOnly
	c := &http.Cookie{
		Name:     h.cookieName,
		Value:    value,
		Path:     h.cookiePath,
		MaxAge:   maxAge,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if h.secure {
		c.SameSite = http.SameSiteNoneMode
	}
	return c
}

// Load returns the stored session of the browser behind r. A browser with
// no session ID cookie, or whose session is unknown or expired, gets a new
// unsaved session.
func (h *Helper) Load(ctx context.Context, r *http.Request) (*ServerSession, error) {
	if c, err := r.Cookie(h.SessionCookieName()); err == nil && c.Value != "" {
		stored, err := h.store.GetSession(ctx, c.Value)
		switch {
		case err == nil:
			session := &ServerSession{id: stored.ID}
			if stored.StateValue != "" {
				session.SetStateRecord(&Record{Value: stored.StateValue, Salt: stored.StateSalt})
			}
			return session, nil
		case !errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
	}
	id, err := random()
	if err != nil {
		return nil, err
	}
	return &ServerSession{id: id, isNew: true}, nil
}

// Save persists session, extending its lifetime, and sets the session ID
// cookie the first time a session is saved.
func (h *Helper) Save(ctx context.Context, w http.ResponseWriter, session *ServerSession) error {
	stored := &storage.BrowserSession{
		ID:        session.id,
		ExpiresAt: h.now().Add(h.lifespan),
	}
	if rec := session.StateRecord(); rec != nil {
		stored.StateValue = rec.Value
		stored.StateSalt = rec.Salt
	}
	if err := h.store.StoreSession(ctx, stored); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	if session.isNew {
		http.SetCookie(w, h.sessionCookie(session.id, 0))
		session.isNew = false
	}
	return nil
}

// End deletes the stored session of the browser behind r and clears both
// the session ID and the browser-state cookies.
func (h *Helper) End(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if c, err := r.Cookie(h.SessionCookieName()); err == nil && c.Value != "" {
		if err := h.store.DeleteSession(ctx, c.Value); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
	}
	http.SetCookie(w, h.sessionCookie("", -1))
	return h.WriteCookie(w, nil)
}

func (h *Helper) sessionCookie(value string, maxAge int) *http.Cookie {
	c := h.cookie(value, maxAge)
	c.Name = h.SessionCookieName()
	c.HttpOnly = true
	return c
}

// HasChanged reports whether the browser-state cookie on r disagrees with
// the record in session. One side being absent while the other is present
// counts as a change.
func (h *Helper) HasChanged(r *http.Request, session Session) bool {
	var fromCookie string
	if c, err := r.Cookie(h.cookieName); err == nil {
		fromCookie = c.Value
	}
	var fromSession string
	if session != nil {
		if rec := session.StateRecord(); rec != nil {
			fromSession = rec.Value
		}
	}
	return fromCookie != fromSession
}

// SessionState returns the session_state for an authorization response to
// clientID at redirectURI, creating the session's record if needed.
func (h *Helper) SessionState(clientID, redirectURI string, session Session) (string, error) {
	rec, err := ensureRecord(session)
	if err != nil {
		return "", err
	}
	return Compute(clientID, redirectURI, rec.Value, rec.Salt)
}

// Compute returns base64url(SHA256(clientID origin sessionValue salt)) "."
// salt, where origin is the scheme, host and port of redirectURI.
func Compute(clientID, redirectURI, sessionValue, salt string) (string, error) {
	origin, err := Origin(redirectURI)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(clientID + " " + origin + " " + sessionValue + " " + salt))
	return base64.RawURLEncoding.EncodeToString(sum[:]) + "." + salt, nil
}

// Validate reports whether state is the session_state of sessionValue for
// clientID at redirectURI.
func Validate(state, clientID, redirectURI, sessionValue string) bool {
	i := strings.LastIndex(state, ".")
	if i < 0 {
		return false
	}
	want, err := Compute(clientID, redirectURI, sessionValue, state[i+1:])
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(state)) == 1
}

// Origin returns scheme://host[:port] of rawURL.
func Origin(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URI: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("redirect URI %q is not absolute", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

func random() (string, error) {
	b := make([]byte, randomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
