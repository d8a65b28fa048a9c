package rp

import (
	"fmt"
	"net/url"

	"github.com/hashicorp/go-multierror"
)

const (
	// DefaultStateLength is the length of generated state tokens when no
	// WithStateLength option is provided.
	DefaultStateLength = 32

	// DefaultNonceLength is the length of generated nonce tokens when no
	// WithNonceLength option is provided.
	DefaultNonceLength = 32
)

// DefaultScopes returns the scopes requested when no WithScopes option is
// provided. The "openid" scope is required for oidc flows.
func DefaultScopes() []string {
	return []string{"openid", "email"}
}

// Config is the process-wide configuration for a Flow. It is constructed
// once at startup and treated as immutable afterwards.
type Config struct {
	// ClientID is the relying party identifier registered with the provider.
	ClientID string

	// Scopes is the list of scopes embedded in authentication requests. It
	// must include "openid".
	Scopes []string

	// AuthorizationEndpoint is the provider's authorization endpoint URL.
	AuthorizationEndpoint string

	// EndSessionEndpoint is the provider's end-session endpoint URL. When
	// empty, Logout redirects straight to the post-logout target.
	EndSessionEndpoint string

	// SuccessRedirectURI is where the browser is sent after a successful
	// callback, unless a next URL was stored in the session.
	SuccessRedirectURI string

	// FailureRedirectURI is where the browser is sent after a routine
	// authentication failure.
	FailureRedirectURI string

	// PostLogoutRedirectURI is the default post-logout target.
	PostLogoutRedirectURI string

	// UseState embeds and verifies a state parameter. Disabling it removes
	// the CSRF protection the state provides.
	UseState bool

	// UseNonce embeds a nonce parameter and requires it to round-trip
	// through the id_token.
	UseNonce bool

	// StateLength is the character length of generated state tokens.
	StateLength int

	// NonceLength is the character length of generated nonce tokens.
	NonceLength int

	// SingleUseState removes the session state on first callback use, so a
	// replayed callback fails the state presence check instead of reaching
	// the verifier a second time.
	SingleUseState bool
}

// NewConfig composes and validates a Config.
// Supported options: WithScopes, WithEndSessionEndpoint,
// WithPostLogoutRedirectURI, WithStateLength, WithNonceLength, WithoutState,
// WithoutNonce, WithSingleUseState
func NewConfig(clientID string, authorizationEndpoint string, successRedirectURI string, failureRedirectURI string, opt ...Option) (*Config, error) {
	const op = "rp.NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		ClientID:              clientID,
		AuthorizationEndpoint: authorizationEndpoint,
		SuccessRedirectURI:    successRedirectURI,
		FailureRedirectURI:    failureRedirectURI,
		EndSessionEndpoint:    opts.withEndSessionEndpoint,
		PostLogoutRedirectURI: opts.withPostLogoutRedirectURI,
		Scopes:                opts.withScopes,
		UseState:              !opts.withoutState,
		UseNonce:              !opts.withoutNonce,
		StateLength:           opts.withStateLength,
		NonceLength:           opts.withNonceLength,
		SingleUseState:        opts.withSingleUseState,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid configuration: %w", op, err)
	}
	return c, nil
}

// Validate the configuration, reporting every problem found rather than just
// the first one.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: configuration is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter))
	}
	if err := validateEndpoint(op, "authorization endpoint", c.AuthorizationEndpoint, true); err != nil {
		result = multierror.Append(result, err)
	}
	if err := validateEndpoint(op, "end-session endpoint", c.EndSessionEndpoint, false); err != nil {
		result = multierror.Append(result, err)
	}
	if c.SuccessRedirectURI == "" {
		result = multierror.Append(result, fmt.Errorf("%s: success redirect URI is empty: %w", op, ErrInvalidParameter))
	}
	if c.FailureRedirectURI == "" {
		result = multierror.Append(result, fmt.Errorf("%s: failure redirect URI is empty: %w", op, ErrInvalidParameter))
	}
	if len(c.Scopes) == 0 {
		result = multierror.Append(result, fmt.Errorf("%s: scopes are empty: %w", op, ErrInvalidParameter))
	}
	if len(c.Scopes) > 0 && !containsScope(c.Scopes, "openid") {
		result = multierror.Append(result, fmt.Errorf("%s: scopes do not include openid: %w", op, ErrInvalidParameter))
	}
	if c.UseState && c.StateLength <= 0 {
		result = multierror.Append(result, fmt.Errorf("%s: state length not greater than zero: %w", op, ErrInvalidParameter))
	}
	if c.UseNonce && c.NonceLength <= 0 {
		result = multierror.Append(result, fmt.Errorf("%s: nonce length not greater than zero: %w", op, ErrInvalidParameter))
	}
	return result.ErrorOrNil()
}

func validateEndpoint(op string, name string, endpoint string, required bool) error {
	if endpoint == "" {
		if required {
			return fmt.Errorf("%s: %s is empty: %w", op, name, ErrInvalidParameter)
		}
		return nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%s: %s %q is invalid: %w", op, name, endpoint, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("%s: %s %q scheme is not http or https: %w", op, name, endpoint, ErrInvalidParameter)
	}
	return nil
}

func containsScope(scopes []string, want string) bool {
	for _, s := range scopes {
		if s == want {
			return true
		}
	}
	return false
}

// configOptions is the set of available options for NewConfig
type configOptions struct {
	withScopes                []string
	withEndSessionEndpoint    string
	withPostLogoutRedirectURI string
	withStateLength           int
	withNonceLength           int
	withoutState              bool
	withoutNonce              bool
	withSingleUseState        bool
}

// configDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func configDefaults() configOptions {
	return configOptions{
		withScopes:                DefaultScopes(),
		withPostLogoutRedirectURI: "/",
		withStateLength:           DefaultStateLength,
		withNonceLength:           DefaultNonceLength,
	}
}

// getConfigOpts gets the config defaults and applies the opt overrides
// passed in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithScopes provides the list of scopes to request from the provider. The
// list must include "openid".
func WithScopes(scopes []string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withScopes = scopes
		}
	}
}

// WithEndSessionEndpoint provides the provider's end-session endpoint URL.
func WithEndSessionEndpoint(endpoint string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withEndSessionEndpoint = endpoint
		}
	}
}

// WithPostLogoutRedirectURI provides the default post-logout target.
func WithPostLogoutRedirectURI(uri string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withPostLogoutRedirectURI = uri
		}
	}
}

// WithStateLength provides the character length of generated state tokens.
func WithStateLength(length int) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withStateLength = length
		}
	}
}

// WithNonceLength provides the character length of generated nonce tokens.
func WithNonceLength(length int) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withNonceLength = length
		}
	}
}

// WithoutState disables the state parameter entirely. Authentication
// requests carry no state and callbacks skip the state checks. This removes
// the flow's CSRF protection and exists for providers that cannot round-trip
// a state value.
func WithoutState() Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withoutState = true
		}
	}
}

// WithoutNonce disables nonce generation and verification.
func WithoutNonce() Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withoutNonce = true
		}
	}
}

// WithSingleUseState makes the session state single-use: it is removed when
// a callback first reads it, so a replayed callback cannot reach the
// verifier again. The default leaves the state in place and relies on the
// provider's one-time authorization codes for replay protection.
func WithSingleUseState() Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withSingleUseState = true
		}
	}
}
