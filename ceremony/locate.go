package ceremony

import (
	"errors"
	"iter"
)

// ErrPathMismatch is returned by [Locate] when a path element does not match
// any branch at its position.
var ErrPathMismatch = errors.New("ceremony path mismatch")

// Step is the outcome of [Locate]: either the ceremony is exhausted (Done),
// or Next holds the components the caller may satisfy next. A single entry
// is a plain prompt, several entries form a choice.
type Step struct {
	Done bool
	Next []Component
}

// Walk lazily enumerates every root-to-leaf linear path of the tree. Each
// iteration yields a leaf component together with its ordered ancestor
// components on that path. The enumeration is finite, restartable, and free
// of side effects.
func Walk(c Ceremony) iter.Seq2[Component, []Component] {
	return func(yield func(Component, []Component) bool) {
		paths(c, nil, func(path []Component) bool {
			if len(path) == 0 {
				return true
			}
			leaf := path[len(path)-1]
			ancestors := make([]Component, len(path)-1)
			copy(ancestors, path[:len(path)-1])
			return yield(leaf, ancestors)
		})
	}
}

// paths invokes k once per complete linear traversal of c, with prefix
// extended by the components on that traversal. Continuation style keeps the
// enumeration lazy: k returning false aborts the walk.
func paths(c Ceremony, prefix []Component, k func([]Component) bool) bool {
	switch n := c.(type) {
	case Component:
		extended := make([]Component, len(prefix), len(prefix)+1)
		copy(extended, prefix)
		return k(append(extended, n))
	case Sequence:
		var rec func(i int, p []Component) bool
		rec = func(i int, p []Component) bool {
			if i == len(n.Children) {
				return k(p)
			}
			return paths(n.Children[i], p, func(p2 []Component) bool {
				return rec(i+1, p2)
			})
		}
		return rec(0, prefix)
	case Choice:
		for _, child := range n.Children {
			if !paths(child, prefix, k) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Locate resolves what must happen after the given progress path. It is the
// single source of truth for "what does the caller do next": it matches path
// against every linear traversal of the tree, returns Done when the path
// exactly exhausts one traversal, and otherwise returns the de-duplicated
// components that can follow. An element that matches no traversal yields
// [ErrPathMismatch].
func Locate(c Ceremony, path []string) (Step, error) {
	var matched bool
	var done bool
	seen := make(map[string]struct{})
	var next []Component

	for leaf, ancestors := range Walk(c) {
		linear := append(ancestors, leaf)
		if len(linear) < len(path) {
			continue
		}
		prefix := true
		for i, id := range path {
			if linear[i].ID != id {
				prefix = false
				break
			}
		}
		if !prefix {
			continue
		}
		matched = true
		if len(linear) == len(path) {
			done = true
			continue
		}
		candidate := linear[len(path)]
		if _, ok := seen[candidate.ID]; !ok {
			seen[candidate.ID] = struct{}{}
			next = append(next, candidate)
		}
	}

	if !matched {
		// An empty tree has no traversals; an empty path trivially
		// exhausts it.
		if len(path) == 0 {
			return Step{Done: true}, nil
		}
		return Step{}, ErrPathMismatch
	}
	if done {
		return Step{Done: true}, nil
	}
	return Step{Next: next}, nil
}
