package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authkeel/oidcrp/rp"
)

type staticPrincipal struct {
	subject string
	active  bool
}

func (p *staticPrincipal) Subject() string { return p.subject }
func (p *staticPrincipal) Active() bool    { return p.active }

// staticVerifier replies with a canned result for every callback.
type staticVerifier struct {
	verified *rp.Verified
	err      error
}

func (v *staticVerifier) Authenticate(context.Context, string, rp.CallbackParams) (*rp.Verified, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.verified, nil
}

func testHandlers(t *testing.T, v rp.Verifier, session rp.SessionStore, flowOpts []rp.Option, opt ...Option) *Handlers {
	t.Helper()
	require := require.New(t)
	c, err := rp.NewConfig(
		"test-rp",
		"https://op.example.com/authorize",
		"/success",
		"/fail",
		flowOpts...,
	)
	require.NoError(err)
	f, err := rp.NewFlow(c, v)
	require.NoError(err)
	h, err := New(f, func(*http.Request) (rp.SessionStore, error) { return session, nil }, opt...)
	require.NoError(err)
	return h
}

func TestNew(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	c, err := rp.NewConfig("test-rp", "https://op.example.com/authorize", "/success", "/fail")
	require.NoError(err)
	f, err := rp.NewFlow(c, &staticVerifier{})
	require.NoError(err)
	sessionFor := func(*http.Request) (rp.SessionStore, error) { return rp.NewMemoryStore(), nil }

	h, err := New(f, sessionFor)
	require.NoError(err)
	require.NotNil(h)

	_, err = New(nil, sessionFor)
	assert.True(errors.Is(err, rp.ErrNilParameter))

	_, err = New(f, nil)
	assert.True(errors.Is(err, rp.ErrNilParameter))
}

func TestHandlers_AuthRequest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("redirects-to-provider", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		session := rp.NewMemoryStore()
		h := testHandlers(t, &staticVerifier{}, session, nil)

		req := httptest.NewRequest("GET", "http://rp.example.com/oidc/auth", nil)
		w := httptest.NewRecorder()
		h.AuthRequest().ServeHTTP(w, req)

		require.Equal(http.StatusFound, w.Code)
		u, err := url.Parse(w.Header().Get("Location"))
		require.NoError(err)
		assert.Equal("op.example.com", u.Host)
		assert.Equal("/authorize", u.Path)

		q := u.Query()
		assert.Equal("test-rp", q.Get("client_id"))
		assert.Equal("http://rp.example.com/oidc/callback", q.Get("redirect_uri"))

		state, err := session.Get(ctx, rp.SessionKeyState)
		require.NoError(err)
		assert.Equal(state, q.Get("state"))
	})

	t.Run("custom-callback-path", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		h := testHandlers(t, &staticVerifier{}, rp.NewMemoryStore(), nil, WithCallbackPath("/auth/done"))

		req := httptest.NewRequest("GET", "http://rp.example.com/oidc/auth", nil)
		w := httptest.NewRecorder()
		h.AuthRequest().ServeHTTP(w, req)

		require.Equal(http.StatusFound, w.Code)
		u, err := url.Parse(w.Header().Get("Location"))
		require.NoError(err)
		assert.Equal("http://rp.example.com/auth/done", u.Query().Get("redirect_uri"))
	})

	t.Run("session-error-is-500", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		c, err := rp.NewConfig("test-rp", "https://op.example.com/authorize", "/success", "/fail")
		require.NoError(err)
		f, err := rp.NewFlow(c, &staticVerifier{})
		require.NoError(err)
		h, err := New(f, func(*http.Request) (rp.SessionStore, error) {
			return nil, errors.New("cookie jar broke")
		})
		require.NoError(err)

		w := httptest.NewRecorder()
		h.AuthRequest().ServeHTTP(w, httptest.NewRequest("GET", "http://rp.example.com/oidc/auth", nil))
		assert.Equal(http.StatusInternalServerError, w.Code)
	})
}

func TestHandlers_Callback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	seed := func(t *testing.T, session rp.SessionStore) {
		t.Helper()
		require.NoError(t, session.Set(ctx, rp.SessionKeyState, "abc123"))
		require.NoError(t, session.Set(ctx, rp.SessionKeyNonce, "n1"))
	}

	callbackReq := func(state string) *http.Request {
		target := "http://rp.example.com/oidc/callback?code=XYZ"
		if state != "" {
			target += "&state=" + url.QueryEscape(state)
		}
		return httptest.NewRequest("GET", target, nil)
	}

	t.Run("success-redirect", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		session := rp.NewMemoryStore()
		seed(t, session)
		v := &staticVerifier{verified: &rp.Verified{
			Principal: &staticPrincipal{subject: "alice", active: true},
			IdToken:   "raw-id-token",
		}}
		h := testHandlers(t, v, session, nil)

		w := httptest.NewRecorder()
		h.Callback().ServeHTTP(w, callbackReq("abc123"))

		require.Equal(http.StatusFound, w.Code)
		assert.Equal("/success", w.Header().Get("Location"))

		subject, err := session.Get(ctx, rp.SessionKeySubject)
		require.NoError(err)
		assert.Equal("alice", subject)
	})

	t.Run("failure-redirect", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		session := rp.NewMemoryStore()
		seed(t, session)
		v := &staticVerifier{err: fmt.Errorf("bad code: %w", rp.ErrLoginFailed)}
		h := testHandlers(t, v, session, nil)

		w := httptest.NewRecorder()
		h.Callback().ServeHTTP(w, callbackReq("abc123"))

		require.Equal(http.StatusFound, w.Code)
		assert.Equal("/fail", w.Header().Get("Location"))
	})

	t.Run("state-mismatch-is-400", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		session := rp.NewMemoryStore()
		seed(t, session)
		h := testHandlers(t, &staticVerifier{}, session, nil)

		w := httptest.NewRecorder()
		h.Callback().ServeHTTP(w, callbackReq("TAMPERED"))

		require.Equal(http.StatusBadRequest, w.Code)
		assert.Contains(w.Body.String(), "invalid callback state")
		assert.Empty(w.Header().Get("Location"))
	})

	t.Run("infrastructure-failure-is-500", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		session := rp.NewMemoryStore()
		seed(t, session)
		v := &staticVerifier{err: errors.New("token endpoint unreachable")}
		h := testHandlers(t, v, session, nil)

		w := httptest.NewRecorder()
		h.Callback().ServeHTTP(w, callbackReq("abc123"))
		assert.Equal(http.StatusInternalServerError, w.Code)
	})
}

func TestHandlers_EndSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("redirects-to-end-session-endpoint", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		session := rp.NewMemoryStore()
		require.NoError(session.Set(ctx, rp.SessionKeySubject, "alice"))
		require.NoError(session.Set(ctx, rp.SessionKeyIdToken, "raw-id-token"))
		h := testHandlers(t, &staticVerifier{}, session, []rp.Option{
			rp.WithEndSessionEndpoint("https://op.example.com/end-session"),
		})

		req := httptest.NewRequest("GET", "http://rp.example.com/oidc/logout", nil)
		w := httptest.NewRecorder()
		h.EndSession().ServeHTTP(w, req)

		require.Equal(http.StatusFound, w.Code)
		u, err := url.Parse(w.Header().Get("Location"))
		require.NoError(err)
		assert.Equal("op.example.com", u.Host)
		assert.Equal("/end-session", u.Path)
		q := u.Query()
		// The relative post-logout target is absolutized against the
		// inbound request before it is handed to the provider.
		assert.Equal("http://rp.example.com/", q.Get("post_logout_redirect_uri"))
		assert.Equal("raw-id-token", q.Get("id_token_hint"))

		subject, err := session.Get(ctx, rp.SessionKeySubject)
		require.NoError(err)
		assert.Empty(subject)
	})

	t.Run("no-end-session-endpoint", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		h := testHandlers(t, &staticVerifier{}, rp.NewMemoryStore(), []rp.Option{
			rp.WithPostLogoutRedirectURI("/bye"),
		})

		req := httptest.NewRequest("GET", "http://rp.example.com/oidc/logout", nil)
		w := httptest.NewRecorder()
		h.EndSession().ServeHTTP(w, req)

		require.Equal(http.StatusFound, w.Code)
		assert.Equal("http://rp.example.com/bye", w.Header().Get("Location"))
	})
}
