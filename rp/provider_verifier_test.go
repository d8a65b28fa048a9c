package rp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProviderVerifier(t *testing.T, tp *TestProvider, opts ...func(*ProviderVerifierConfig)) *ProviderVerifier {
	t.Helper()
	tp.SetClientCreds("test-rp", "test-secret")
	c := ProviderVerifierConfig{
		Issuer:               tp.Addr(),
		ClientID:             "test-rp",
		ClientSecret:         "test-secret",
		RedirectURI:          "https://rp.example.com/oidc/callback",
		SupportedSigningAlgs: []string{"ES256"},
		ProviderCA:           tp.CACert(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	v, err := NewProviderVerifier(context.Background(), c)
	require.NoError(t, err)
	return v
}

func TestNewProviderVerifier(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tp := StartTestProvider(t)

	t.Run("valid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		v := testProviderVerifier(t, tp)
		require.NotNil(v)
		assert.Equal(tp.Addr()+"/auth", v.AuthorizationEndpoint())
		assert.Equal(tp.Addr()+"/end-session", v.EndSessionEndpoint())
	})

	t.Run("empty-issuer", func(t *testing.T) {
		assert := assert.New(t)
		_, err := NewProviderVerifier(ctx, ProviderVerifierConfig{
			ClientID:    "test-rp",
			RedirectURI: "https://rp.example.com/oidc/callback",
		})
		assert.True(errors.Is(err, ErrInvalidParameter))
	})

	t.Run("empty-client-id", func(t *testing.T) {
		assert := assert.New(t)
		_, err := NewProviderVerifier(ctx, ProviderVerifierConfig{
			Issuer:      tp.Addr(),
			RedirectURI: "https://rp.example.com/oidc/callback",
		})
		assert.True(errors.Is(err, ErrInvalidParameter))
	})

	t.Run("empty-redirect-uri", func(t *testing.T) {
		assert := assert.New(t)
		_, err := NewProviderVerifier(ctx, ProviderVerifierConfig{
			Issuer:   tp.Addr(),
			ClientID: "test-rp",
		})
		assert.True(errors.Is(err, ErrInvalidParameter))
	})

	t.Run("bad-ca-pem", func(t *testing.T) {
		assert := assert.New(t)
		_, err := NewProviderVerifier(ctx, ProviderVerifierConfig{
			Issuer:      tp.Addr(),
			ClientID:    "test-rp",
			RedirectURI: "https://rp.example.com/oidc/callback",
			ProviderCA:  "not a pem block",
		})
		assert.True(errors.Is(err, ErrInvalidCACert))
	})

	t.Run("unreachable-issuer", func(t *testing.T) {
		require := require.New(t)
		_, err := NewProviderVerifier(ctx, ProviderVerifierConfig{
			Issuer:      "https://127.0.0.1:1",
			ClientID:    "test-rp",
			RedirectURI: "https://rp.example.com/oidc/callback",
		})
		require.Error(err)
	})
}

func TestProviderVerifier_Authenticate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("valid-id-token", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		tp.SetExpectedAuthCode("valid-code")
		tp.SetExpectedAuthNonce("n1")
		tp.SetReplySubject("alice@example.com")
		tp.SetCustomClaims(map[string]interface{}{
			"email":          "alice@example.com",
			"email_verified": true,
			"name":           "Alice Example",
		})
		v := testProviderVerifier(t, tp)

		verified, err := v.Authenticate(ctx, "n1", CallbackParams{Code: "valid-code"})
		require.NoError(err)
		require.NotNil(verified)
		assert.NotEmpty(verified.IdToken)

		principal, ok := verified.Principal.(*TokenPrincipal)
		require.True(ok)
		assert.Equal("alice@example.com", principal.Subject())
		assert.True(principal.Active())
		claims := principal.Claims()
		assert.Equal("alice@example.com", claims.Email)
		assert.True(claims.EmailVerified)
		assert.Equal("Alice Example", claims.Name)
		assert.Equal("n1", claims.Nonce)
	})

	t.Run("no-nonce-verification", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		tp.SetExpectedAuthCode("valid-code")
		v := testProviderVerifier(t, tp)

		verified, err := v.Authenticate(ctx, "", CallbackParams{Code: "valid-code"})
		require.NoError(err)
		assert.Equal("alice@example.com", verified.Principal.Subject())
	})

	t.Run("wrong-code", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		tp.SetExpectedAuthCode("valid-code")
		v := testProviderVerifier(t, tp)

		_, err := v.Authenticate(ctx, "", CallbackParams{Code: "stolen-code"})
		require.Error(err)
		assert.True(errors.Is(err, ErrLoginFailed))
	})

	t.Run("empty-code", func(t *testing.T) {
		assert := assert.New(t)
		tp := StartTestProvider(t)
		v := testProviderVerifier(t, tp)

		_, err := v.Authenticate(ctx, "", CallbackParams{})
		assert.True(errors.Is(err, ErrLoginFailed))
	})

	t.Run("nonce-mismatch", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		tp.SetExpectedAuthCode("valid-code")
		tp.SetExpectedAuthNonce("issued-nonce")
		v := testProviderVerifier(t, tp)

		_, err := v.Authenticate(ctx, "session-nonce", CallbackParams{Code: "valid-code"})
		require.Error(err)
		assert.True(errors.Is(err, ErrLoginFailed))
	})

	t.Run("missing-id-token", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		tp.SetExpectedAuthCode("valid-code")
		tp.OmitIDToken()
		v := testProviderVerifier(t, tp)

		_, err := v.Authenticate(ctx, "", CallbackParams{Code: "valid-code"})
		require.Error(err)
		assert.True(errors.Is(err, ErrLoginFailed))
	})

	t.Run("wrong-audience", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		tp.SetExpectedAuthCode("valid-code")
		v := testProviderVerifier(t, tp, func(c *ProviderVerifierConfig) {
			c.ClientID = "some-other-rp"
		})
		tp.SetClientCreds("test-rp", "test-secret")

		_, err := v.Authenticate(ctx, "", CallbackParams{Code: "valid-code"})
		require.Error(err)
		assert.True(errors.Is(err, ErrLoginFailed))
	})

	t.Run("inactive-principal", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		tp.SetExpectedAuthCode("valid-code")
		v := testProviderVerifier(t, tp, func(c *ProviderVerifierConfig) {
			c.ActiveFunc = func(claims IdClaims) bool { return claims.EmailVerified }
		})

		verified, err := v.Authenticate(ctx, "", CallbackParams{Code: "valid-code"})
		require.NoError(err)
		assert.False(verified.Principal.Active())
	})

	t.Run("end-to-end-with-flow", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		tp.SetExpectedAuthCode("valid-code")
		tp.SetExpectedAuthNonce("n1")
		v := testProviderVerifier(t, tp)

		config, err := NewConfig("test-rp", tp.Addr()+"/auth", "/success", "/fail")
		require.NoError(err)
		f, err := NewFlow(config, v)
		require.NoError(err)

		session := NewMemoryStore()
		seedSession(t, session, "abc123", "n1")

		outcome, err := f.CompleteLogin(ctx, session, CallbackParams{Code: "valid-code", State: "abc123"})
		require.NoError(err)
		assert.True(outcome.Success)
		assert.Equal("alice@example.com", outcome.Principal.Subject())

		subject, err := session.Get(ctx, SessionKeySubject)
		require.NoError(err)
		assert.Equal("alice@example.com", subject)
	})
}
