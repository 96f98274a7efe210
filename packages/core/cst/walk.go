package cst

// Visitor handles nodes during Walk. Visit returns false when the visitor
// has no handler for the node's kind; Walk then descends into the node's
// children itself.
type Visitor interface {
	Visit(n *Node) bool
}

// Walk traverses the tree rooted at n in pre-order.
func Walk(v Visitor, n *Node) {
	if n == nil {
		return
	}
	if v.Visit(n) {
		return
	}
	WalkChildren(v, n)
}

// WalkChildren walks each child of n in order. Handlers that want the
// default recursion after doing their own work call it explicitly.
func WalkChildren(v Visitor, n *Node) {
	for _, c := range n.children {
		Walk(v, c)
	}
}

// Handlers is a dispatch table from kind to handler.
type Handlers map[Kind]func(n *Node)

func (h Handlers) Visit(n *Node) bool {
	fn, ok := h[n.kind]
	if !ok {
		return false
	}
	fn(n)
	return true
}

// Inspect calls fn for every node in pre-order. When fn returns false the
// node's children are skipped.
func Inspect(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.children {
		Inspect(c, fn)
	}
}
