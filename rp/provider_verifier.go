package rp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/authkeel/oidcrp/rp/internal/httpclient"
)

// IdClaims are the id_token claims surfaced on principals produced by
// ProviderVerifier.
type IdClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Nonce         string `json:"nonce"`
}

// TokenPrincipal is the Principal produced by ProviderVerifier.
type TokenPrincipal struct {
	claims IdClaims
	active bool
}

var _ Principal = (*TokenPrincipal)(nil)

func (p *TokenPrincipal) Subject() string { return p.claims.Subject }
func (p *TokenPrincipal) Active() bool    { return p.active }

// Claims returns the id_token claims the principal was built from.
func (p *TokenPrincipal) Claims() IdClaims { return p.claims }

// ProviderVerifierConfig configures a ProviderVerifier.
type ProviderVerifierConfig struct {
	// Issuer is the provider's issuer URL; discovery runs against it.
	Issuer string

	// ClientID is the relying party identifier.
	ClientID string

	// ClientSecret authenticates the token exchange.
	ClientSecret string

	// RedirectURI must equal the redirect_uri of the authentication request
	// being completed.
	RedirectURI string

	// Scopes defaults to DefaultScopes when empty.
	Scopes []string

	// SupportedSigningAlgs restricts accepted id_token signing algorithms.
	// Defaults to RS256.
	SupportedSigningAlgs []string

	// ProviderCA is an optional CA PEM used for provider requests.
	ProviderCA string

	// ActiveFunc optionally gates the Active predicate of produced
	// principals. When nil, every verified principal is active.
	ActiveFunc func(IdClaims) bool
}

// ProviderVerifier is the default Verifier. It exchanges the authorization
// code with the provider's token endpoint, verifies the returned id_token
// (signature, issuer, audience, expiry) and matches its nonce claim.
//
// Construction performs provider discovery, so the issuer must be reachable
// at startup.
type ProviderVerifier struct {
	config             ProviderVerifierConfig
	provider           *oidc.Provider
	verifier           *oidc.IDTokenVerifier
	client             *http.Client
	endSessionEndpoint string
}

var _ Verifier = (*ProviderVerifier)(nil)

// NewProviderVerifier creates a ProviderVerifier, running discovery against
// the configured issuer.
func NewProviderVerifier(ctx context.Context, c ProviderVerifierConfig) (*ProviderVerifier, error) {
	const op = "rp.NewProviderVerifier"
	switch {
	case c.Issuer == "":
		return nil, fmt.Errorf("%s: issuer is empty: %w", op, ErrInvalidParameter)
	case c.ClientID == "":
		return nil, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter)
	case c.RedirectURI == "":
		return nil, fmt.Errorf("%s: redirect URI is empty: %w", op, ErrInvalidParameter)
	}

	client, err := httpclient.New(c.ProviderCA)
	if err != nil {
		if errors.Is(err, httpclient.ErrInvalidCertificatePem) {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, client), c.Issuer)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create provider: %w", op, err)
	}

	algs := c.SupportedSigningAlgs
	if len(algs) == 0 {
		algs = []string{oidc.RS256}
	}

	// end_session_endpoint is optional discovery metadata.
	var discovered struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	_ = provider.Claims(&discovered)

	return &ProviderVerifier{
		config:   c,
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{
			ClientID:             c.ClientID,
			SupportedSigningAlgs: algs,
		}),
		client:             client,
		endSessionEndpoint: discovered.EndSessionEndpoint,
	}, nil
}

// AuthorizationEndpoint returns the authorization endpoint found during
// discovery.
func (v *ProviderVerifier) AuthorizationEndpoint() string {
	return v.provider.Endpoint().AuthURL
}

// EndSessionEndpoint returns the end_session_endpoint found during
// discovery, or the empty string when the provider does not advertise one.
func (v *ProviderVerifier) EndSessionEndpoint() string {
	return v.endSessionEndpoint
}

// Authenticate implements the Verifier interface. Rejections wrap
// ErrLoginFailed; see Verifier.
func (v *ProviderVerifier) Authenticate(ctx context.Context, nonce string, params CallbackParams) (*Verified, error) {
	const op = "ProviderVerifier.Authenticate"
	if params.Code == "" {
		return nil, fmt.Errorf("%s: authorization code is empty: %w", op, ErrLoginFailed)
	}
	oidcCtx := oidc.ClientContext(ctx, v.client)

	token, err := v.oauthConfig().Exchange(oidcCtx, params.Code)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to exchange authorization code: %v: %w", op, err, ErrLoginFailed)
	}

	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("%s: id_token is missing from the token response: %w", op, ErrLoginFailed)
	}
	idToken, err := v.verifier.Verify(oidcCtx, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: id_token failed verification: %v: %w", op, err, ErrLoginFailed)
	}

	var claims IdClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%s: unable to parse id_token claims: %v: %w", op, err, ErrLoginFailed)
	}
	if nonce != "" && idToken.Nonce != nonce {
		return nil, fmt.Errorf("%s: id_token nonce does not match: %w", op, ErrLoginFailed)
	}

	active := true
	if v.config.ActiveFunc != nil {
		active = v.config.ActiveFunc(claims)
	}
	return &Verified{
		Principal: &TokenPrincipal{claims: claims, active: active},
		IdToken:   raw,
	}, nil
}

func (v *ProviderVerifier) oauthConfig() *oauth2.Config {
	scopes := v.config.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes()
	}
	return &oauth2.Config{
		ClientID:     v.config.ClientID,
		ClientSecret: v.config.ClientSecret,
		RedirectURL:  v.config.RedirectURI,
		Endpoint:     v.provider.Endpoint(),
		Scopes:       scopes,
	}
}
