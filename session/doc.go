// Package session provides Redis-backed session persistence for issued
// tokens.
//
// A [Record] is written when a ceremony completes and lives exactly as long
// as the longest-lived token that references it. Refresh is only honored
// while the record exists, so deleting a record revokes the session
// immediately regardless of outstanding token lifetimes.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Record] model.
// It does NOT mint or parse tokens, run ceremonies, or decide scopes —
// those responsibilities belong to the core.
//
// # What this package must NOT do
//
//   - Import auth, token, or ceremony (no upward imports).
//   - Interpret token claims beyond the session id.
//   - Store secrets or credentials in [Record] fields.
package session
