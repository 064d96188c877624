// Package rate implements the Redis-backed attempt counter behind the
// protocol handler's rate limiting.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on the first hit of a
// window. Keys are built by the caller from the operation name and the
// subject (identity id or remote address); this package only counts.
//
// # What this package must NOT do
//
//   - Decide which operations are limited or with what budget (the engine
//     config owns the policy).
//   - Be imported outside this module.
package rate
