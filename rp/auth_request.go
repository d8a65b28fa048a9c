package rp

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// BeginLogin starts an authentication flow. It generates the anti-forgery
// artifacts, stores them in the browser session, and returns the provider
// authorization URL the browser should be redirected to.
//
// redirectURI is the absolute URL of the callback endpoint and is embedded
// verbatim as the redirect_uri parameter; it must match a redirect URI
// registered with the provider.
func (f *Flow) BeginLogin(ctx context.Context, session SessionStore, redirectURI string) (string, error) {
	const op = "Flow.BeginLogin"
	if session == nil {
		return "", fmt.Errorf("%s: session store is nil: %w", op, ErrNilParameter)
	}
	if redirectURI == "" {
		return "", fmt.Errorf("%s: redirect URI is empty: %w", op, ErrInvalidParameter)
	}

	params := url.Values{}
	params.Set("scope", strings.Join(f.config.Scopes, " "))
	params.Set("response_type", "code")
	params.Set("client_id", f.config.ClientID)
	params.Set("redirect_uri", redirectURI)

	if f.config.UseNonce {
		nonce, err := NewToken(f.config.NonceLength)
		if err != nil {
			return "", fmt.Errorf("%s: unable to generate nonce: %w", op, err)
		}
		params.Set("nonce", nonce)
		if err := session.Set(ctx, SessionKeyNonce, nonce); err != nil {
			return "", fmt.Errorf("%s: unable to store nonce: %w", op, err)
		}
	}

	// The state must be stored so the callback can be matched against the
	// request that produced it.
	if f.config.UseState {
		state, err := NewToken(f.config.StateLength)
		if err != nil {
			return "", fmt.Errorf("%s: unable to generate state: %w", op, err)
		}
		params.Set("state", state)
		if err := session.Set(ctx, SessionKeyState, state); err != nil {
			return "", fmt.Errorf("%s: unable to store state: %w", op, err)
		}
	}

	return f.config.AuthorizationEndpoint + "?" + params.Encode(), nil
}
