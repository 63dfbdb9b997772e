// Package registry maps semantic actions of the form "type:Verb" to the API
// endpoint patterns that express them, and resolves inbound (path, method)
// pairs back to the set of actions they represent.
//
// The registry is a code-defined, immutable value: it is built once at
// process start from an action table and never mutated afterwards, so it is
// safe for unsynchronized concurrent reads on the request hot path. Changing
// the table requires a redeploy; actions are deliberately not stored in the
// database so that the authorization surface is reviewable in code.
//
// Resolve returns the union of every action whose endpoint pattern matches
// the request. A path may express more than one concern (an overlapping read
// pattern plus a more specific sub-path), and the caller must require each
// resolved action to be authorized independently. An empty result is not an
// error; it means the endpoint is unmapped and the caller must deny.
package registry
