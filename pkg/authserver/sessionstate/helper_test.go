// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package sessionstate

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/trustengine/pkg/authserver/storage"
)

func TestCompute_Deterministic(t *testing.T) {
	t.Parallel()

	const salt = "s4lt"
	sum := sha256.Sum256([]byte("54321 http://localhost 12345 " + salt))
	want := base64.RawURLEncoding.EncodeToString(sum[:]) + "." + salt

	got, err := Compute("54321", "http://localhost/cb?x=1#frag", "12345", salt)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	again, err := Compute("54321", "http://localhost/other", "12345", salt)
	require.NoError(t, err)
	assert.Equal(t, got, again, "only the origin of the redirect URI counts")

	changed, err := Compute("54321", "http://localhost", "67890", salt)
	require.NoError(t, err)
	assert.NotEqual(t, got, changed)
}

func TestOrigin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "http://localhost", want: "http://localhost"},
		{in: "https://rp.example.com:8443/cb?code=1", want: "https://rp.example.com:8443"},
		{in: "/relative", wantErr: true},
		{in: "://bad", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := Origin(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	state, err := Compute("client", "https://rp.example.com/cb", "session-1", "salt")
	require.NoError(t, err)

	assert.True(t, Validate(state, "client", "https://rp.example.com/other", "session-1"))
	assert.False(t, Validate(state, "client", "https://rp.example.com/cb", "session-2"))
	assert.False(t, Validate(state, "other", "https://rp.example.com/cb", "session-1"))
	assert.False(t, Validate("no-salt", "client", "https://rp.example.com/cb", "session-1"))
}

func TestHelper_CookiePath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/tenant/a", NewHelper("https://auth.example.com/tenant/a", "", nil).CookiePath())
	assert.Equal(t, "/", NewHelper("https://auth.example.com", "", nil).CookiePath())
	assert.Equal(t, "/", NewHelper("%%%", "", nil).CookiePath())
	assert.Equal(t, DefaultCookieName, NewHelper("https://auth.example.com", "", nil).CookieName())
}

func TestHelper_WriteCookie(t *testing.T) {
	t.Parallel()

	h := NewHelper("https://auth.example.com/op", "op_browser_state", nil)

	t.Run("no session clears the cookie", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		require.NoError(t, h.WriteCookie(rec, nil))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "op_browser_state", cookies[0].Name)
		assert.Empty(t, cookies[0].Value)
		assert.Equal(t, -1, cookies[0].MaxAge)
	})

	t.Run("value is stable until the session changes", func(t *testing.T) {
		t.Parallel()
		session := &MemorySession{}

		first := httptest.NewRecorder()
		require.NoError(t, h.WriteCookie(first, session))
		second := httptest.NewRecorder()
		require.NoError(t, h.WriteCookie(second, session))

		c1 := first.Result().Cookies()[0]
		c2 := second.Result().Cookies()[0]
		assert.NotEmpty(t, c1.Value)
		assert.Equal(t, c1.Value, c2.Value)
		assert.Equal(t, "/op", c1.Path)
		assert.True(t, c1.Secure)
		assert.False(t, c1.HttpOnly)

		session.SetStateRecord(&Record{Value: "rotated", Salt: "x"})
		third := httptest.NewRecorder()
		require.NoError(t, h.WriteCookie(third, session))
		assert.Equal(t, "rotated", third.Result().Cookies()[0].Value)
	})
}

func TestHelper_HasChanged(t *testing.T) {
	t.Parallel()

	h := NewHelper("https://auth.example.com", "", nil)
	withCookie := func(value string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if value != "" {
			r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: value})
		}
		return r
	}
	session := &MemorySession{}
	session.SetStateRecord(&Record{Value: "v1", Salt: "s"})

	assert.False(t, h.HasChanged(withCookie("v1"), session))
	assert.True(t, h.HasChanged(withCookie("v2"), session))
	assert.True(t, h.HasChanged(withCookie(""), session), "missing cookie counts as changed")
	assert.True(t, h.HasChanged(withCookie("v1"), &MemorySession{}), "missing record counts as changed")
	assert.True(t, h.HasChanged(withCookie("v1"), nil))
	assert.False(t, h.HasChanged(withCookie(""), nil))
}

func TestHelper_SessionState(t *testing.T) {
	t.Parallel()

	h := NewHelper("https://auth.example.com", "", nil)
	session := &MemorySession{}

	state, err := h.SessionState("client", "https://rp.example.com/cb", session)
	require.NoError(t, err)
	rec := session.StateRecord()
	require.NotNil(t, rec)
	assert.True(t, Validate(state, "client", "https://rp.example.com/cb", rec.Value))

	again, err := h.SessionState("client", "https://rp.example.com/cb", session)
	require.NoError(t, err)
	assert.Equal(t, state, again)
}

func newStore(t *testing.T) *storage.MemoryStorage {
	t.Helper()
	store := storage.NewMemoryStorage()
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestHelper_LoadAndSave(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newStore(t)
	h := NewHelper("https://auth.example.com/op", "", store, WithLifespan(time.Hour))

	fresh, err := h.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.True(t, fresh.IsNew())
	assert.NotEmpty(t, fresh.ID())
	assert.Nil(t, fresh.StateRecord())

	state, err := h.SessionState("client", "https://rp.example.com/cb", fresh)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	require.NoError(t, h.Save(ctx, w, fresh))
	assert.False(t, fresh.IsNew())

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	idCookie := cookies[0]
	assert.Equal(t, h.SessionCookieName(), idCookie.Name)
	assert.Equal(t, fresh.ID(), idCookie.Value)
	assert.True(t, idCookie.HttpOnly)
	assert.Equal(t, "/op", idCookie.Path)

	stored, err := store.GetSession(ctx, fresh.ID())
	require.NoError(t, err)
	assert.Equal(t, fresh.StateRecord().Value, stored.StateValue)
	assert.WithinDuration(t, time.Now().Add(time.Hour), stored.ExpiresAt, time.Minute)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(idCookie)
	loaded, err := h.Load(ctx, r)
	require.NoError(t, err)
	assert.False(t, loaded.IsNew())
	assert.Equal(t, fresh.ID(), loaded.ID())
	again, err := h.SessionState("client", "https://rp.example.com/cb", loaded)
	require.NoError(t, err)
	assert.Equal(t, state, again, "value and salt are reused for the session")

	w = httptest.NewRecorder()
	require.NoError(t, h.Save(ctx, w, loaded))
	assert.Empty(t, w.Result().Cookies(), "the ID cookie is set once")
}

func TestHelper_HasChangedAgainstServerRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newStore(t)
	h := NewHelper("https://auth.example.com", "", store)

	require.NoError(t, store.StoreSession(ctx, &storage.BrowserSession{
		ID:         "sess-1",
		StateValue: "server-value",
		StateSalt:  "salt",
		ExpiresAt:  time.Now().Add(time.Hour),
	}))

	tests := []struct {
		name    string
		id      string
		browser string
		want    bool
	}{
		{name: "matching cookie", id: "sess-1", browser: "server-value", want: false},
		{name: "forged or stale cookie", id: "sess-1", browser: "attacker-or-stale-value", want: true},
		{name: "state cookie without session", browser: "server-value", want: true},
		{name: "unknown session", id: "missing", browser: "server-value", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.id != "" {
				r.AddCookie(&http.Cookie{Name: h.SessionCookieName(), Value: tt.id})
			}
			r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: tt.browser})

			session, err := h.Load(ctx, r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.HasChanged(r, session))
		})
	}
}

func TestHelper_End(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newStore(t)
	h := NewHelper("https://auth.example.com", "", store)

	require.NoError(t, store.StoreSession(ctx, &storage.BrowserSession{
		ID:         "sess-1",
		StateValue: "server-value",
		StateSalt:  "salt",
		ExpiresAt:  time.Now().Add(time.Hour),
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: h.SessionCookieName(), Value: "sess-1"})
	r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "server-value"})
	w := httptest.NewRecorder()
	require.NoError(t, h.End(ctx, w, r))

	_, err := store.GetSession(ctx, "sess-1")
	require.ErrorIs(t, err, storage.ErrNotFound)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.Empty(t, c.Value, c.Name)
		assert.Equal(t, -1, c.MaxAge, c.Name)
	}

	session, err := h.Load(ctx, r)
	require.NoError(t, err)
	assert.True(t, session.IsNew())
	assert.True(t, h.HasChanged(r, session))

	require.NoError(t, h.End(ctx, httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)),
		"ending without a session is not an error")
}
