// Package auth implements a composable multi-step authentication and
// registration protocol: ceremonies described as trees of required and
// alternative factors, resolved step by step against pluggable providers,
// with progress carried in a signed continuation token and completion
// issuing JWT access/id/refresh tokens bound to a revocable Redis session.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build]. The Engine holds no per-request state; everything a
// request needs is in its continuation token.
//
// # Architecture boundaries
//
// auth is the public protocol surface. It exposes [Engine], [Builder],
// [Config], and the step/result value types. The ceremony algebra, provider
// contract, token codec, and session store live in their own packages and
// never import auth.
//
// # What this package must NOT do
//
//   - Persist continuation state server-side — the signed token is the only
//     carried state.
//   - Deduplicate concurrent terminal submissions of the same state; both
//     may create a session.
//   - Leak collaborator errors to callers unwrapped by the error taxonomy.
package auth
