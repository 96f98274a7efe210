package cst

import (
	"strconv"
	"strings"
)

// Location is where a node's text begins in the source. Offset is a byte
// offset; Line and Column are 1-based.
type Location struct {
	Offset int `json:"offset" yaml:"offset"`
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

func (l Location) String() string {
	return strconv.Itoa(l.Line) + ":" + strconv.Itoa(l.Column)
}

// Node is an immutable CST element. A leaf node carries a value, a composite
// node carries children; never both.
type Node struct {
	kind     Kind
	loc      Location
	value    string
	children []*Node
	leaf     bool
}

func (n *Node) Kind() Kind {
	return n.kind
}

func (n *Node) Location() Location {
	return n.loc
}

// IsLeaf reports whether n carries a value rather than children.
func (n *Node) IsLeaf() bool {
	return n.leaf
}

// Value returns the text of a leaf node, or "" for a composite node.
func (n *Node) Value() string {
	return n.value
}

// Children returns a copy of the node's children in source order.
func (n *Node) Children() []*Node {
	if len(n.children) == 0 {
		return nil
	}
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Len returns the number of children.
func (n *Node) Len() int {
	return len(n.children)
}

// At returns the i-th child.
func (n *Node) At(i int) *Node {
	return n.children[i]
}

// Child returns the first child of the given kind.
func (n *Node) Child(kind Kind) (*Node, bool) {
	for _, c := range n.children {
		if c.kind == kind {
			return c, true
		}
	}
	return nil, false
}

// Has reports whether n has a direct child of the given kind.
func (n *Node) Has(kind Kind) bool {
	_, ok := n.Child(kind)
	return ok
}

// ChildrenOf returns the direct children of the given kind.
func (n *Node) ChildrenOf(kind Kind) []*Node {
	var out []*Node
	for _, c := range n.children {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Find returns the first node of the given kind in a pre-order traversal of
// the subtree rooted at n, including n itself.
func (n *Node) Find(kind Kind) (*Node, bool) {
	var found *Node
	Inspect(n, func(c *Node) bool {
		if found != nil {
			return false
		}
		if c.kind == kind {
			found = c
			return false
		}
		return true
	})
	return found, found != nil
}

// Text concatenates the values of all leaves under n in source order,
// skipping Literal nodes when withLiterals is false.
func (n *Node) Text(withLiterals bool) string {
	var b strings.Builder
	Inspect(n, func(c *Node) bool {
		if c.leaf && (withLiterals || c.kind != KindLiteral) {
			b.WriteString(c.value)
		}
		return true
	})
	return b.String()
}

func (n *Node) String() string {
	if n.leaf {
		return n.kind.String() + "(" + strconv.Quote(n.value) + ")@" + n.loc.String()
	}
	return n.kind.String() + "[" + strconv.Itoa(len(n.children)) + "]@" + n.loc.String()
}
