package rp

import "context"

// Principal is the local authenticated identity produced by a Verifier from
// a verified provider response. The flow only cares about its existence and
// its Active predicate; everything else is host domain.
type Principal interface {
	// Subject is the stable identifier of the principal.
	Subject() string

	// Active reports whether the principal may establish a session. An
	// inactive principal (disabled account, etc) is a routine
	// authentication failure.
	Active() bool
}

// Verified is a successful Verifier result.
type Verified struct {
	// Principal is the authenticated local principal.
	Principal Principal

	// IdToken is the raw, already-verified id_token. The flow retains it in
	// the session so it can be sent as an id_token_hint when the session
	// ends. It may be empty.
	IdToken string
}

// Verifier completes the back-channel half of the flow. Implementations
// exchange the callback's authorization code for tokens, validate the
// id_token (signature, issuer, audience, expiry), match its nonce claim
// against the supplied nonce, and resolve the result to a local principal.
//
// Rejections (failed exchange, invalid token, claim mismatch, unknown user)
// must be reported as an error wrapping ErrLoginFailed so the flow routes
// them to the failure redirect. Any other error is treated as an
// infrastructure fault and propagates to the caller unchanged.
type Verifier interface {
	Authenticate(ctx context.Context, nonce string, params CallbackParams) (*Verified, error)
}
