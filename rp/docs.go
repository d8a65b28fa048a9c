/*
rp implements the relying-party side of the OpenID Connect authorization
code flow.

Primary types provided by the package

* Flow: drives the three protocol steps of the flow. BeginLogin builds an
authentication request URL and seeds the browser session with the
anti-forgery artifacts (state and, optionally, nonce). CompleteLogin
validates the provider's callback against those artifacts, invokes a
Verifier, and establishes the local session. Logout clears the local
session and produces the provider end-session redirect when one is
configured.

* Config: the process-wide, immutable configuration for a Flow (client id,
scopes, endpoints, redirect targets, artifact lengths and toggles).

* SessionStore: the browser-session-scoped key/value store the flow keeps
its cross-request state in. A MemoryStore ships in-package; the
sessionstore/redis package provides a production store.

* Verifier: the collaborator that exchanges the authorization code for
tokens and validates the id_token. ProviderVerifier is the default
implementation, built on provider discovery.

* SuspiciousOperationError: the distinguished error returned when a
callback presents a state value that does not match the one stored in the
session. Hosts should treat it as an attack signal, not a routine
authentication failure.

The rp/handler package provides http.HandlerFunc adapters for the three
flow steps.
*/
package rp
