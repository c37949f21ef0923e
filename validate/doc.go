// Package validate implements the field checks that run before any remote
// call: email, username and password.
//
// Every validator returns a [Result] and never panics or returns an error.
// Normalization (trim, lowercase) happens here so callers send the
// canonical value to the remote service.
package validate
