// Package ceremony defines the composable authentication ceremony tree and
// the pure operations the resolver is built on.
//
// A ceremony is a recursive composition of three node kinds:
//
//   - [Component]: a single authentication factor, identified by id
//   - [Sequence]: all children must be satisfied, in order
//   - [Choice]: exactly one child must be satisfied
//
// # Normal form
//
// [Normalize] flattens a Sequence nested directly inside a Sequence and a
// Choice nested directly inside a Choice, and replaces a single-child Choice
// by its child. Normalization is idempotent. All other operations assume but
// do not require normal form.
//
// # What this package must NOT do
//
//   - Perform I/O or consult providers (that is the resolver's job).
//   - Mutate a tree in place; every operation returns fresh values.
package ceremony
