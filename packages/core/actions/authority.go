package actions

import (
	"github.com/abdul-hamid-achik/httpcst/packages/core/cst"
	"github.com/abdul-hamid-achik/httpcst/packages/core/peg"
)

// Authority expects [host, (":", port)?]. A colon that is not followed by
// port digits leaves the authority malformed and the rule is rejected.
func Authority(c *peg.Current, raw any) (any, error) {
	items, err := asSlice("authority", raw, 2)
	if err != nil {
		return nil, err
	}
	host, err := asNode("authority", items[0], cst.KindHost)
	if err != nil {
		return nil, err
	}
	children := []*cst.Node{host}

	if items[1] != nil {
		port, err := optionalPair("authority", items[1], cst.KindPort)
		if err != nil {
			return nil, err
		}
		if !port.present {
			return peg.Reject, nil
		}
		children = append(children, port.nodes()...)
	}
	return cst.NewAuthority(locationOf(c), children...), nil
}

// Host classifies the host sub-match by shape: three parts are a bracketed
// IPv6 literal, a node is an environment variable standing in for the whole
// host, and plain text is an IPv4 address or registered name. Neither is
// validated any further.
func Host(c *peg.Current, raw any) (any, error) {
	loc := locationOf(c)

	switch v := raw.(type) {
	case []any:
		if len(v) != 3 {
			return nil, contractErr("host", raw, "expected 3 parts for an IPv6 literal, got %d", len(v))
		}
		open, err := join("host", v[0])
		if err != nil {
			return nil, err
		}
		addr, err := join("host", v[1])
		if err != nil {
			return nil, err
		}
		closing, err := join("host", v[2])
		if err != nil {
			return nil, err
		}
		if open != "[" || closing != "]" {
			return nil, contractErr("host", raw, "IPv6 literal must be bracketed")
		}
		addrLoc := advance(loc, open)
		closeLoc := advance(addrLoc, addr)
		return cst.NewHost(loc,
			cst.NewLiteral(loc, open),
			cst.NewIPv6Address(addrLoc, addr),
			cst.NewLiteral(closeLoc, closing),
		), nil
	case string:
		return cst.NewHost(loc, cst.NewIPv4OrRegName(loc, v)), nil
	case *cst.Node:
		if v == nil || v.Kind() != cst.KindEnvVariable {
			return nil, contractErr("host", raw, "expected an environment variable node")
		}
		return cst.NewHost(loc, v), nil
	default:
		return nil, contractErr("host", raw, "unrecognised host shape")
	}
}

// Port holds digits or a single {{variable}} reference. It yields nothing
// when no digits matched.
func Port(c *peg.Current, raw any) (any, error) {
	return optionalLeaf("port", c, raw, cst.NewPort)
}
