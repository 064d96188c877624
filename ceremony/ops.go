package ceremony

// Normalize rewrites the tree into normal form: a Sequence never directly
// contains a Sequence, a Choice never directly contains a Choice, and a
// Choice with exactly one child becomes that child. Normalize(Normalize(t))
// equals Normalize(t).
func Normalize(c Ceremony) Ceremony {
	switch n := c.(type) {
	case Component:
		return n
	case Sequence:
		return Sequence{Children: flatten(n.Children, true)}
	case Choice:
		children := flatten(n.Children, false)
		if len(children) == 1 {
			return children[0]
		}
		return Choice{Children: children}
	default:
		return c
	}
}

func flatten(children []Ceremony, sequence bool) []Ceremony {
	out := make([]Ceremony, 0, len(children))
	for _, child := range children {
		normalized := Normalize(child)
		switch n := normalized.(type) {
		case Sequence:
			if sequence {
				out = append(out, n.Children...)
				continue
			}
		case Choice:
			if !sequence {
				out = append(out, n.Children...)
				continue
			}
		}
		out = append(out, normalized)
	}
	return out
}

// Equal reports structural equality. Components are equal when their ids
// match; composites when they have the same kind, arity, and pairwise equal
// children in order.
func Equal(a, b Ceremony) bool {
	switch an := a.(type) {
	case Component:
		bn, ok := b.(Component)
		return ok && an.ID == bn.ID
	case Sequence:
		bn, ok := b.(Sequence)
		return ok && equalChildren(an.Children, bn.Children)
	case Choice:
		bn, ok := b.(Choice)
		return ok && equalChildren(an.Children, bn.Children)
	default:
		return false
	}
}

func equalChildren(a, b []Ceremony) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Leaves returns the de-duplicated component ids reachable anywhere in the
// tree, in first-seen order.
func Leaves(c Ceremony) []string {
	seen := make(map[string]struct{})
	var out []string
	var visit func(Ceremony)
	visit = func(node Ceremony) {
		switch n := node.(type) {
		case Component:
			if _, ok := seen[n.ID]; !ok {
				seen[n.ID] = struct{}{}
				out = append(out, n.ID)
			}
		case Sequence:
			for _, child := range n.Children {
				visit(child)
			}
		case Choice:
			for _, child := range n.Children {
				visit(child)
			}
		}
	}
	visit(c)
	return out
}
