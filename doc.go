// Package authkit is a client-side session and identity layer over a hosted
// backend-as-a-service: managed auth, a users table and a few stored
// procedures.
//
// A [Client] runs login, signup, logout, password reset and update, current
// user lookup and profile updates. Every flow validates input locally and
// checks an advisory rate gate before any network call, keeps the signed-in
// profile in a short-lived cache, and reports a uniform [Result] with a
// stable [ErrorCode] and a localized message. Durable state, credential
// checks and uniqueness are owned by the backend.
//
// Build a Client with [New]:
//
//	client, err := authkit.New().
//		WithBackend(rest.New(rest.Config{URL: url, APIKey: key})).
//		WithLogger(logger).
//		Build()
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	res := client.Login(ctx, email, password)
//	if !res.Success {
//		fmt.Println(res.Message)
//	}
//
// # Architecture boundaries
//
// authkit is the public surface: [Client], [Builder], [Config], [Result]
// and the error codes. Flow orchestration, rate limiting, audit dispatch and
// background tasks live under internal/. The backend contract lives in
// package backend so adapters never import this package.
//
// # Side effects
//
// Last-login stamps, marker writes and audit forwarding are detached from
// the caller's context and bounded by their own timeout. Their failures are
// logged at warn level and never change a flow's result.
package authkit
