package actions

import (
	"strings"
	"unicode/utf8"

	"github.com/abdul-hamid-achik/httpcst/packages/core/cst"
	"github.com/abdul-hamid-achik/httpcst/packages/core/peg"
)

func locationOf(c *peg.Current) cst.Location {
	return cst.Location(c.Pos)
}

// advance returns the location reached after reading text from loc.
func advance(loc cst.Location, text string) cst.Location {
	for _, r := range text {
		loc.Offset += utf8.RuneLen(r)
		if r == '\n' {
			loc.Line++
			loc.Column = 1
		} else {
			loc.Column++
		}
	}
	return loc
}

// join flattens raw into the concatenation of every string it holds. Nested
// slices are walked in order and nil entries (unmatched optionals and
// lookaheads) are skipped.
func join(action string, raw any) (string, error) {
	var b strings.Builder
	if err := joinInto(action, &b, raw); err != nil {
		return "", err
	}
	return b.String(), nil
}

func joinInto(action string, b *strings.Builder, raw any) error {
	switch v := raw.(type) {
	case nil:
	case string:
		b.WriteString(v)
	case []any:
		for _, item := range v {
			if err := joinInto(action, b, item); err != nil {
				return err
			}
		}
	default:
		return contractErr(action, raw, "expected matched characters")
	}
	return nil
}

func asSlice(action string, raw any, n int) ([]any, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, contractErr(action, raw, "expected a sequence")
	}
	if n >= 0 && len(items) != n {
		return nil, contractErr(action, raw, "expected %d parts, got %d", n, len(items))
	}
	return items, nil
}

func asNode(action string, raw any, kinds ...cst.Kind) (*cst.Node, error) {
	n, ok := raw.(*cst.Node)
	if !ok || n == nil {
		return nil, contractErr(action, raw, "expected a node")
	}
	if len(kinds) == 0 {
		return n, nil
	}
	for _, k := range kinds {
		if n.Kind() == k {
			return n, nil
		}
	}
	return nil, contractErr(action, raw, "unexpected node kind %s", n.Kind())
}

// optionalNode decodes an optional sub-match that yields a node or nil.
func optionalNode(action string, raw any, kinds ...cst.Kind) (*cst.Node, error) {
	if raw == nil {
		return nil, nil
	}
	return asNode(action, raw, kinds...)
}

// pair is a both-or-neither optional sub-match: a leading Literal node and
// the node it introduces.
type pair struct {
	present bool
	lit     *cst.Node
	node    *cst.Node
}

// nodes returns the pair's nodes, or nothing when the pair is absent.
func (p pair) nodes() []*cst.Node {
	if !p.present {
		return nil
	}
	return []*cst.Node{p.lit, p.node}
}

// optionalPair decodes an optional (literal, node) sequence. A pair whose
// second half reduced to nothing is treated as absent, so the literal never
// dangles on its own.
func optionalPair(action string, raw any, kind cst.Kind) (pair, error) {
	if raw == nil {
		return pair{}, nil
	}
	items, err := asSlice(action, raw, 2)
	if err != nil {
		return pair{}, err
	}
	lit, err := asNode(action, items[0], cst.KindLiteral)
	if err != nil {
		return pair{}, err
	}
	node, err := optionalNode(action, items[1], kind)
	if err != nil {
		return pair{}, err
	}
	if node == nil {
		return pair{}, nil
	}
	return pair{present: true, lit: lit, node: node}, nil
}

// collect walks raw depth first and returns every node of the given kind in
// order. It is used where the grammar interleaves nodes with artifacts that
// have no place in the tree (blank lines, comments, separators).
func collect(raw any, kind cst.Kind) []*cst.Node {
	var out []*cst.Node
	var walk func(any)
	walk = func(v any) {
		switch v := v.(type) {
		case *cst.Node:
			if v != nil && v.Kind() == kind {
				out = append(out, v)
			}
		case []any:
			for _, item := range v {
				walk(item)
			}
		}
	}
	walk(raw)
	return out
}

// First yields the first element of a sequence match.
func First(c *peg.Current, raw any) (any, error) {
	items, err := asSlice("first", raw, -1)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, contractErr("first", raw, "empty sequence")
	}
	return items[0], nil
}

// Literal builds a Literal node for a structural token such as "?" or "://".
func Literal(c *peg.Current, raw any) (any, error) {
	s, err := join("literal", raw)
	if err != nil {
		return nil, err
	}
	return cst.NewLiteral(locationOf(c), s), nil
}
