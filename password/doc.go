// Package password hashes and verifies credentials with Argon2id.
//
// Hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
//
// The in-memory backend stores these instead of plaintext. Hosted backends
// hash server-side and never use this package. Password policy lives in
// the validate package.
package password
