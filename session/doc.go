// Package session holds the client-side view of the signed-in account: the
// profile and identity models, the short-TTL identity cache, the optional
// cache-busting marker store, and the background liveness monitor.
//
// # Architecture boundaries
//
// This package owns local state only. It never calls the remote service
// itself; fetching, refreshing and signing out are driven by the caller
// (the authkit Client) through probes and setters.
//
// # What this package must NOT do
//
//   - Import authkit or any internal flow package (no upward imports).
//   - Treat the cache as authoritative; the remote service is the source of truth.
//   - Hold credentials other than the opaque access token carried by [Identity].
package session
