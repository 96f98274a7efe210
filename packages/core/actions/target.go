package actions

import (
	"github.com/abdul-hamid-achik/httpcst/packages/core/cst"
	"github.com/abdul-hamid-achik/httpcst/packages/core/peg"
)

// RequestTarget wraps whichever form matched.
func RequestTarget(c *peg.Current, raw any) (any, error) {
	form, err := asNode("requestTarget", raw, cst.KindOriginForm, cst.KindAsteriskForm, cst.KindAbsoluteForm)
	if err != nil {
		return nil, err
	}
	return cst.NewRequestTarget(locationOf(c), form), nil
}

// OriginForm expects [absolutePath, ("?", query)?, ("#", fragment)?].
func OriginForm(c *peg.Current, raw any) (any, error) {
	items, err := asSlice("originForm", raw, 3)
	if err != nil {
		return nil, err
	}
	path, err := asNode("originForm", items[0], cst.KindAbsolutePath)
	if err != nil {
		return nil, err
	}
	tail, err := queryAndFragment("originForm", items[1], items[2])
	if err != nil {
		return nil, err
	}
	return cst.NewOriginForm(locationOf(c), append([]*cst.Node{path}, tail...)...), nil
}

// AbsoluteForm expects [(scheme, "://")?, hierPart, ("?", query)?,
// ("#", fragment)?].
func AbsoluteForm(c *peg.Current, raw any) (any, error) {
	items, err := asSlice("absoluteForm", raw, 4)
	if err != nil {
		return nil, err
	}

	scheme, err := optionalPair("absoluteForm", reversePair(items[0]), cst.KindScheme)
	if err != nil {
		return nil, err
	}
	var children []*cst.Node
	if scheme.present {
		children = append(children, scheme.node, scheme.lit)
	}

	hier, err := asNode("absoluteForm", items[1], cst.KindHierPart)
	if err != nil {
		return nil, err
	}
	children = append(children, hier)

	tail, err := queryAndFragment("absoluteForm", items[2], items[3])
	if err != nil {
		return nil, err
	}
	return cst.NewAbsoluteForm(locationOf(c), append(children, tail...)...), nil
}

// reversePair turns a (node, literal) match into the (literal, node) order
// optionalPair decodes.
func reversePair(raw any) any {
	items, ok := raw.([]any)
	if !ok || len(items) != 2 {
		return raw
	}
	return []any{items[1], items[0]}
}

func queryAndFragment(action string, rawQuery, rawFragment any) ([]*cst.Node, error) {
	query, err := optionalPair(action, rawQuery, cst.KindQuery)
	if err != nil {
		return nil, err
	}
	fragment, err := optionalPair(action, rawFragment, cst.KindFragment)
	if err != nil {
		return nil, err
	}
	return append(query.nodes(), fragment.nodes()...), nil
}

func AsteriskForm(c *peg.Current, raw any) (any, error) {
	s, err := join("asteriskForm", raw)
	if err != nil {
		return nil, err
	}
	if s != "*" {
		return nil, contractErr("asteriskForm", raw, "expected \"*\", got %q", s)
	}
	return cst.NewAsteriskForm(locationOf(c), s), nil
}

func Scheme(c *peg.Current, raw any) (any, error) {
	s, err := join("scheme", raw)
	if err != nil {
		return nil, err
	}
	return cst.NewScheme(locationOf(c), s), nil
}

// HierPart expects [authority, absolutePath?]. An empty path is left out.
func HierPart(c *peg.Current, raw any) (any, error) {
	items, err := asSlice("hierPart", raw, 2)
	if err != nil {
		return nil, err
	}
	authority, err := asNode("hierPart", items[0], cst.KindAuthority)
	if err != nil {
		return nil, err
	}
	children := []*cst.Node{authority}
	path, err := optionalNode("hierPart", items[1], cst.KindAbsolutePath)
	if err != nil {
		return nil, err
	}
	if path != nil {
		children = append(children, path)
	}
	return cst.NewHierPart(locationOf(c), children...), nil
}

// AbsolutePath yields nothing for an empty path.
func AbsolutePath(c *peg.Current, raw any) (any, error) {
	return optionalLeaf("absolutePath", c, raw, cst.NewAbsolutePath)
}

// Query yields nothing for an empty query.
func Query(c *peg.Current, raw any) (any, error) {
	return optionalLeaf("query", c, raw, cst.NewQuery)
}

// Fragment yields nothing for an empty fragment.
func Fragment(c *peg.Current, raw any) (any, error) {
	return optionalLeaf("fragment", c, raw, cst.NewFragment)
}

func optionalLeaf(action string, c *peg.Current, raw any, build func(cst.Location, string) *cst.Node) (any, error) {
	s, err := join(action, raw)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	return build(locationOf(c), s), nil
}
