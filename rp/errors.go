package rp

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrNilParameter      = errors.New("nil parameter")
	ErrInvalidCACert     = errors.New("invalid CA certificate")
	ErrIdGeneratorFailed = errors.New("id generation failed")
	ErrMissingIdToken    = errors.New("id_token is missing")
	ErrInvalidNonce      = errors.New("invalid nonce")
	ErrLoginFailed       = errors.New("login failed")
	ErrStateMismatch     = errors.New("callback state mismatch")
)

// SuspiciousOperationError reports a callback whose state parameter does not
// match the state previously stored in the browser session. It indicates a
// forged or tampered request, so it is kept distinct from the routine
// authentication failures that end in a failure redirect. It unwraps to
// ErrStateMismatch.
type SuspiciousOperationError struct {
	// Op identifies the operation that detected the mismatch.
	Op string

	// ReceivedState is the state value the callback presented.
	ReceivedState string

	// ExpectedState is the state value stored in the session.
	ExpectedState string
}

func (e *SuspiciousOperationError) Error() string {
	return fmt.Sprintf("%s: invalid callback state value: %s", e.Op, ErrStateMismatch)
}

func (e *SuspiciousOperationError) Unwrap() error { return ErrStateMismatch }
