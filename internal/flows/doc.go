// Package flows contains the orchestrators behind every Client operation.
//
// Each flow function (RunLogin, RunSignup, RunLogout, ...) accepts a typed
// dependency struct of function fields and returns a profile or an error.
// Steps run strictly in order; the only work that may outlive a call is
// what the flow hands to Effects.Detach.
//
// # Architecture boundaries
//
// Flows coordinate the rate gate, validators, backend calls, identity cache,
// audit and metrics. They do NOT own any of these resources; ownership stays
// with the Client. Host-level sentinel errors are passed in through Errors
// so callers can classify results with errors.Is.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authkit (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency functions.
package flows
