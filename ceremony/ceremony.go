package ceremony

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Ceremony is the sealed node interface. The three implementations are
// [Component], [Sequence] and [Choice].
type Ceremony interface {
	node()
}

// Component is a single authentication factor referenced by id.
type Component struct {
	ID string
}

// Sequence requires every child in order.
type Sequence struct {
	Children []Ceremony
}

// Choice requires exactly one child.
type Choice struct {
	Children []Ceremony
}

func (Component) node() {}
func (Sequence) node()  {}
func (Choice) node()    {}

// C is a shorthand [Component] constructor.
func C(id string) Component { return Component{ID: id} }

// Seq builds a normalized [Sequence] over the given children.
func Seq(children ...Ceremony) Ceremony {
	return Normalize(Sequence{Children: children})
}

// OneOf builds a normalized [Choice] over the given children.
func OneOf(children ...Ceremony) Ceremony {
	return Normalize(Choice{Children: children})
}

const (
	kindComponent = "component"
	kindSequence  = "sequence"
	kindChoice    = "choice"
)

// ErrInvalidTree is returned when decoding a ceremony document that does not
// match the wire schema.
var ErrInvalidTree = errors.New("invalid ceremony tree")

type wireNode struct {
	Kind       string            `json:"kind"`
	ID         string            `json:"id,omitempty"`
	Components []json.RawMessage `json:"components,omitempty"`
}

// MarshalJSON encodes the component as a tagged wire node.
func (c Component) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind string `json:"kind"`
		ID   string `json:"id"`
	}{Kind: kindComponent, ID: c.ID})
}

// MarshalJSON encodes the sequence as a tagged wire node.
func (s Sequence) MarshalJSON() ([]byte, error) {
	return marshalComposite(kindSequence, s.Children)
}

// MarshalJSON encodes the choice as a tagged wire node.
func (c Choice) MarshalJSON() ([]byte, error) {
	return marshalComposite(kindChoice, c.Children)
}

func marshalComposite(kind string, children []Ceremony) ([]byte, error) {
	raw := make([]json.RawMessage, 0, len(children))
	for _, child := range children {
		encoded, err := json.Marshal(child)
		if err != nil {
			return nil, err
		}
		raw = append(raw, encoded)
	}
	return json.Marshal(wireNode{Kind: kind, Components: raw})
}

// Decode parses a wire-encoded ceremony tree.
func Decode(data []byte) (Ceremony, error) {
	var node wireNode
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTree, err)
	}
	return decodeNode(node)
}

func decodeNode(node wireNode) (Ceremony, error) {
	switch node.Kind {
	case kindComponent:
		if node.ID == "" {
			return nil, fmt.Errorf("%w: component without id", ErrInvalidTree)
		}
		return Component{ID: node.ID}, nil
	case kindSequence, kindChoice:
		children := make([]Ceremony, 0, len(node.Components))
		for _, raw := range node.Components {
			var childNode wireNode
			if err := json.Unmarshal(raw, &childNode); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidTree, err)
			}
			child, err := decodeNode(childNode)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if node.Kind == kindSequence {
			return Sequence{Children: children}, nil
		}
		return Choice{Children: children}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidTree, node.Kind)
	}
}
