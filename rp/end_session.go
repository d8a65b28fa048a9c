package rp

import (
	"context"
	"fmt"
	"net/url"
)

// Logout ends the local authentication session and returns the URL the
// browser should be redirected to. When the provider exposes an end-session
// endpoint, the URL points there with post_logout_redirect_uri and, if an
// id_token was retained at login, an id_token_hint; otherwise it is the
// post-logout target itself.
//
// postLogoutRedirectURI overrides the configured PostLogoutRedirectURI when
// non-empty; callers behind an end-session endpoint should pass an absolute
// URL, since the provider redirects the browser back to it.
//
// Logout is safe to call for anonymous sessions: it clears nothing and
// still produces a redirect.
func (f *Flow) Logout(ctx context.Context, session SessionStore, postLogoutRedirectURI string) (string, error) {
	const op = "Flow.Logout"
	if session == nil {
		return "", fmt.Errorf("%s: session store is nil: %w", op, ErrNilParameter)
	}
	if postLogoutRedirectURI == "" {
		postLogoutRedirectURI = f.config.PostLogoutRedirectURI
	}

	idToken, err := session.Pop(ctx, SessionKeyIdToken)
	if err != nil {
		return "", fmt.Errorf("%s: unable to read id token hint: %w", op, err)
	}
	for _, key := range []string{SessionKeySubject, SessionKeyState, SessionKeyNonce, SessionKeySessionState} {
		if _, err := session.Pop(ctx, key); err != nil {
			return "", fmt.Errorf("%s: unable to clear session key %q: %w", op, key, err)
		}
	}

	if f.config.EndSessionEndpoint == "" {
		return postLogoutRedirectURI, nil
	}

	params := url.Values{}
	params.Set("post_logout_redirect_uri", postLogoutRedirectURI)
	if idToken != "" {
		params.Set("id_token_hint", idToken)
	}
	return f.config.EndSessionEndpoint + "?" + params.Encode(), nil
}
