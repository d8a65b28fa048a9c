// oidcrp provides the relying-party side of the OpenID Connect
// authorization code flow: building authentication requests, validating
// provider callbacks (state/nonce anti-forgery checks) and ending sessions.
//
// See the rp package for the flow itself and rp/handler for http.HandlerFunc
// adapters.
package oidcrp
