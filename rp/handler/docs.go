/*
handler provides http.HandlerFunc adapters for the three steps of the rp
flow: the authentication request redirect, the provider callback, and the
end-session redirect.

The host owns routing and the binding of browsers to session stores; a
SessionFunc supplies the store for each request. Routine authentication
failures become redirects to the configured failure URL, a state-mismatch
security violation becomes a 400 response logged at error level, and
infrastructure faults become 500 responses.
*/
package handler
