package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-hclog"

	"github.com/authkeel/oidcrp/rp"
)

// DefaultCallbackPath is the path of the callback endpoint used to build
// redirect URIs when no WithCallbackPath option is provided.
const DefaultCallbackPath = "/oidc/callback"

// SessionFunc returns the browser-scoped session store for a request. How
// sessions are bound to browsers (cookies, headers) is the host's concern.
type SessionFunc func(*http.Request) (rp.SessionStore, error)

// Handlers bundles the http.HandlerFunc adapters for a Flow.
type Handlers struct {
	flow         *rp.Flow
	sessionFor   SessionFunc
	callbackPath string
	logger       hclog.Logger
}

// New creates Handlers for the given flow.
// Supported options: WithLogger, WithCallbackPath
func New(f *rp.Flow, sessionFor SessionFunc, opt ...Option) (*Handlers, error) {
	const op = "handler.New"
	if f == nil {
		return nil, fmt.Errorf("%s: flow is nil: %w", op, rp.ErrNilParameter)
	}
	if sessionFor == nil {
		return nil, fmt.Errorf("%s: session func is nil: %w", op, rp.ErrNilParameter)
	}
	opts := getOpts(opt...)
	return &Handlers{
		flow:         f,
		sessionFor:   sessionFor,
		callbackPath: opts.withCallbackPath,
		logger:       opts.withLogger,
	}, nil
}

// AuthRequest returns the handler that starts an authentication flow: it
// seeds the session artifacts and redirects the browser to the provider's
// authorization endpoint. The callback redirect URI is derived from the
// inbound request's scheme and host plus the configured callback path.
func (h *Handlers) AuthRequest() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		session, err := h.sessionFor(req)
		if err != nil {
			h.internalError(w, "unable to open session", err)
			return
		}
		authURL, err := h.flow.BeginLogin(req.Context(), session, absoluteURL(req, h.callbackPath))
		if err != nil {
			h.internalError(w, "unable to begin login", err)
			return
		}
		http.Redirect(w, req, authURL, http.StatusFound)
	}
}

// Callback returns the handler that completes an authentication flow.
// Success and routine failure redirect to the configured URLs; a
// state-mismatch security violation is rejected with a 400 and logged at
// error level so hosting infrastructure can alert on it.
func (h *Handlers) Callback() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		session, err := h.sessionFor(req)
		if err != nil {
			h.internalError(w, "unable to open session", err)
			return
		}
		params := rp.CallbackParamsFromValues(req.URL.Query())
		outcome, err := h.flow.CompleteLogin(req.Context(), session, params)
		if err != nil {
			var suspicious *rp.SuspiciousOperationError
			if errors.As(err, &suspicious) {
				h.logger.Error("suspicious callback: state mismatch",
					"received_state", suspicious.ReceivedState,
					"remote_addr", req.RemoteAddr,
				)
				http.Error(w, "invalid callback state", http.StatusBadRequest)
				return
			}
			h.internalError(w, "unable to complete login", err)
			return
		}
		if !outcome.Success {
			h.logger.Debug("authentication failed", "reason", string(outcome.Reason))
		}
		http.Redirect(w, req, outcome.RedirectURL, http.StatusFound)
	}
}

// EndSession returns the handler that ends the local session and redirects
// the browser to the provider's end-session endpoint when one is
// configured, or straight to the post-logout target otherwise.
func (h *Handlers) EndSession() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		session, err := h.sessionFor(req)
		if err != nil {
			h.internalError(w, "unable to open session", err)
			return
		}
		// The provider redirects the browser back to the post-logout
		// target, so a relative target must be made absolute first.
		target := h.flow.Config().PostLogoutRedirectURI
		if u, err := url.Parse(target); err == nil && !u.IsAbs() {
			target = absoluteURL(req, u.Path)
		}
		logoutURL, err := h.flow.Logout(req.Context(), session, target)
		if err != nil {
			h.internalError(w, "unable to end session", err)
			return
		}
		http.Redirect(w, req, logoutURL, http.StatusFound)
	}
}

func (h *Handlers) internalError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, "error", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func absoluteURL(req *http.Request, path string) string {
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: req.Host, Path: path}
	return u.String()
}

// Option defines the options for this package's functions
type Option func(*options)

type options struct {
	withLogger       hclog.Logger
	withCallbackPath string
}

func getOpts(opt ...Option) options {
	opts := options{
		withLogger:       hclog.NewNullLogger(),
		withCallbackPath: DefaultCallbackPath,
	}
	for _, o := range opt {
		o(&opts)
	}
	return opts
}

// WithLogger provides a logger for the handlers; without it, nothing is
// logged.
func WithLogger(l hclog.Logger) Option {
	return func(o *options) {
		o.withLogger = l
	}
}

// WithCallbackPath provides the path of the callback endpoint, used to
// derive the redirect URI embedded in authentication requests.
func WithCallbackPath(path string) Option {
	return func(o *options) {
		o.withCallbackPath = path
	}
}
