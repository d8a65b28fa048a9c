package rp

import "fmt"

// Flow drives the relying-party side of the OIDC authorization code flow.
// Each of its operations is request-scoped: the only state shared across
// requests lives in the SessionStore passed to each call, so a single Flow
// is safe for concurrent use.
type Flow struct {
	config   *Config
	verifier Verifier
}

// NewFlow creates a Flow from a validated Config and a Verifier.
func NewFlow(c *Config, v Verifier) (*Flow, error) {
	const op = "rp.NewFlow"
	if c == nil {
		return nil, fmt.Errorf("%s: configuration is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid configuration: %w", op, err)
	}
	if v == nil {
		return nil, fmt.Errorf("%s: verifier is nil: %w", op, ErrNilParameter)
	}
	return &Flow{config: c, verifier: v}, nil
}

// Config returns a copy of the flow's configuration.
func (f *Flow) Config() Config {
	return *f.config
}
