// Package jwt reads and mints the access tokens carried by an authenticated
// session.
//
// Client code only ever inspects tokens issued by the remote provider, so
// [ParseUnverified] and [ExpiresAt] skip signature checks. [Manager] signs and
// verifies tokens for in-process providers such as the memory backend.
package jwt
