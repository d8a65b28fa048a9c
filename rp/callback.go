package rp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// CallbackParams are the query parameters the provider sends to the
// callback endpoint. An empty field means the parameter was absent.
type CallbackParams struct {
	// Code is the authorization code to exchange for tokens.
	Code string

	// State must equal the state stored when the flow began.
	State string

	// SessionState is the provider's optional session_state value, retained
	// in the session on success for later session management.
	SessionState string

	// Error is set when the provider reports an authentication error
	// (for example login_required) instead of a code.
	Error string

	// ErrorDescription is the provider's optional human-readable detail for
	// Error.
	ErrorDescription string
}

// CallbackParamsFromValues extracts the callback parameters from a parsed
// query string.
func CallbackParamsFromValues(v url.Values) CallbackParams {
	return CallbackParams{
		Code:             v.Get("code"),
		State:            v.Get("state"),
		SessionState:     v.Get("session_state"),
		Error:            v.Get("error"),
		ErrorDescription: v.Get("error_description"),
	}
}

// FailureReason classifies a routine authentication failure for
// observability. It never carries provider secrets.
type FailureReason string

const (
	// ReasonProviderError: the provider reported an error instead of an
	// authorization code.
	ReasonProviderError FailureReason = "provider_error"

	// ReasonMissingNonce: nonce verification is enabled but no nonce was
	// retrievable from the session (expired or already consumed).
	ReasonMissingNonce FailureReason = "missing_nonce"

	// ReasonIncompleteCallback: the callback lacked a required parameter.
	ReasonIncompleteCallback FailureReason = "incomplete_callback"

	// ReasonMissingState: no state was retrievable from the session.
	ReasonMissingState FailureReason = "missing_state"

	// ReasonLoginFailed: the verifier rejected the authentication.
	ReasonLoginFailed FailureReason = "login_failed"

	// ReasonInactivePrincipal: the verifier returned no usable principal or
	// an inactive one.
	ReasonInactivePrincipal FailureReason = "inactive_principal"
)

// Outcome is the terminal result of CompleteLogin. Success and routine
// failure both end in a redirect; the state-mismatch security violation is
// reported as a *SuspiciousOperationError instead, so hosts cannot mistake
// it for a routine failure.
type Outcome struct {
	// Success reports whether a local session was established.
	Success bool

	// RedirectURL is where the browser should be sent next.
	RedirectURL string

	// Reason classifies the failure; empty on success.
	Reason FailureReason

	// Principal is the authenticated principal on success, nil otherwise.
	Principal Principal
}

// CompleteLogin validates a provider callback against the artifacts stored
// by BeginLogin, drives the verifier, and establishes the local session on
// success.
//
// The returned error is non-nil only for a state-mismatch security
// violation (*SuspiciousOperationError) or an infrastructure fault (session
// store or verifier breakage); every routine failure is reported through the
// Outcome so it ends in a redirect without leaking detail to the browser.
//
// The session nonce is removed as soon as it is read, even when a later
// check fails, so a replayed callback can never pass the nonce presence
// check twice.
func (f *Flow) CompleteLogin(ctx context.Context, session SessionStore, params CallbackParams) (*Outcome, error) {
	const op = "Flow.CompleteLogin"
	if session == nil {
		return nil, fmt.Errorf("%s: session store is nil: %w", op, ErrNilParameter)
	}

	// The provider reported an authentication error. Drop any authenticated
	// session and bail out before touching the flow artifacts.
	if params.Error != "" {
		if _, err := session.Pop(ctx, SessionKeySubject); err != nil {
			return nil, fmt.Errorf("%s: unable to clear session subject: %w", op, err)
		}
		return f.failure(ReasonProviderError), nil
	}

	state, err := f.readState(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read session state: %w", op, err)
	}
	nonce, err := session.Pop(ctx, SessionKeyNonce)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read session nonce: %w", op, err)
	}

	switch {
	case f.config.UseNonce && nonce == "":
		return f.failure(ReasonMissingNonce), nil
	case params.Code == "" || (f.config.UseState && params.State == ""):
		return f.failure(ReasonIncompleteCallback), nil
	case f.config.UseState && state == "":
		return f.failure(ReasonMissingState), nil
	}

	// A state that is present but different from the stored one is a forged
	// or tampered request, not a routine failure.
	if f.config.UseState && params.State != state {
		return nil, &SuspiciousOperationError{
			Op:            op,
			ReceivedState: params.State,
			ExpectedState: state,
		}
	}

	verified, err := f.verifier.Authenticate(ctx, nonce, params)
	if err != nil {
		if errors.Is(err, ErrLoginFailed) {
			return f.failure(ReasonLoginFailed), nil
		}
		return nil, fmt.Errorf("%s: verifier failed: %w", op, err)
	}
	if verified == nil || verified.Principal == nil || !verified.Principal.Active() {
		return f.failure(ReasonInactivePrincipal), nil
	}

	if err := f.establishSession(ctx, session, verified, params); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redirect := f.config.SuccessRedirectURI
	next, err := session.Pop(ctx, SessionKeyNextURL)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read next URL: %w", op, err)
	}
	if next != "" {
		redirect = next
	}

	return &Outcome{
		Success:     true,
		RedirectURL: redirect,
		Principal:   verified.Principal,
	}, nil
}

// readState reads the session state, removing it when the flow is
// configured for single-use states.
func (f *Flow) readState(ctx context.Context, session SessionStore) (string, error) {
	if f.config.SingleUseState {
		return session.Pop(ctx, SessionKeyState)
	}
	return session.Get(ctx, SessionKeyState)
}

// establishSession binds the verified principal to the browser session.
func (f *Flow) establishSession(ctx context.Context, session SessionStore, verified *Verified, params CallbackParams) error {
	if err := session.Set(ctx, SessionKeySubject, verified.Principal.Subject()); err != nil {
		return fmt.Errorf("unable to store session subject: %w", err)
	}
	if verified.IdToken != "" {
		if err := session.Set(ctx, SessionKeyIdToken, verified.IdToken); err != nil {
			return fmt.Errorf("unable to store id token: %w", err)
		}
	}
	if params.SessionState != "" {
		if err := session.Set(ctx, SessionKeySessionState, params.SessionState); err != nil {
			return fmt.Errorf("unable to store provider session state: %w", err)
		}
	}
	return nil
}

func (f *Flow) failure(reason FailureReason) *Outcome {
	return &Outcome{
		RedirectURL: f.config.FailureRedirectURI,
		Reason:      reason,
	}
}
