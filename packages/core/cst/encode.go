package cst

import "encoding/json"

type leafDoc struct {
	Kind     Kind     `json:"kind" yaml:"kind"`
	Location Location `json:"location" yaml:"location"`
	Value    string   `json:"value" yaml:"value"`
}

type branchDoc struct {
	Kind     Kind     `json:"kind" yaml:"kind"`
	Location Location `json:"location" yaml:"location"`
	Children []*Node  `json:"children" yaml:"children"`
}

func (n *Node) doc() any {
	if n.leaf {
		return leafDoc{Kind: n.kind, Location: n.loc, Value: n.value}
	}
	children := n.children
	if children == nil {
		children = []*Node{}
	}
	return branchDoc{Kind: n.kind, Location: n.loc, Children: children}
}

// MarshalJSON encodes the node as {"kind", "location", "value"} for leaves
// and {"kind", "location", "children"} for composites.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.doc())
}

// MarshalYAML implements yaml.Marshaler with the same shape as MarshalJSON.
func (n *Node) MarshalYAML() (any, error) {
	return n.doc(), nil
}
