// Package middleware guards HTTP handlers with hosted-service access tokens.
//
//   - [RequireTokenOnly] verifies the bearer token and nothing else.
//   - [RequireStrict] also loads the profile row and rejects missing or
//     inactive accounts.
//   - [RequireRole] restricts a strict route to the given roles.
//
// Rejections are JSON bodies carrying an authkit error code and a message
// localized from Accept-Language.
package middleware
