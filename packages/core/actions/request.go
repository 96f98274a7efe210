package actions

import (
	"github.com/abdul-hamid-achik/httpcst/packages/core/cst"
	"github.com/abdul-hamid-achik/httpcst/packages/core/peg"
)

// RequestsFile keeps the Request nodes of the whole file in order. Blank
// lines, comments and separators matched between them are dropped.
func RequestsFile(c *peg.Current, raw any) (any, error) {
	if _, err := asSlice("requestsFile", raw, -1); err != nil {
		return nil, err
	}
	return cst.NewRequestsFile(locationOf(c), collect(raw, cst.KindRequest)...), nil
}

// Request expects [requestLine, headers?, messageBody?, responseHandler?,
// responseRef?]. Optional sections that matched nothing are left out.
func Request(c *peg.Current, raw any) (any, error) {
	items, err := asSlice("request", raw, 5)
	if err != nil {
		return nil, err
	}
	line, err := asNode("request", items[0], cst.KindRequestLine)
	if err != nil {
		return nil, err
	}
	children := []*cst.Node{line}

	sections := []cst.Kind{cst.KindHeaders, cst.KindMessageBody, cst.KindResponseHandler, cst.KindResponseRef}
	for i, kind := range sections {
		n, err := optionalNode("request", items[i+1], kind)
		if err != nil {
			return nil, err
		}
		if n != nil {
			children = append(children, n)
		}
	}
	return cst.NewRequest(locationOf(c), children...), nil
}

// RequestLine expects [(method, sp)?, requestTarget, (sp, httpVersion)?, ws,
// lineEnd].
func RequestLine(c *peg.Current, raw any) (any, error) {
	items, err := asSlice("requestLine", raw, 5)
	if err != nil {
		return nil, err
	}

	var children []*cst.Node
	if items[0] != nil {
		m, err := asSlice("requestLine", items[0], 2)
		if err != nil {
			return nil, err
		}
		method, err := asNode("requestLine", m[0], cst.KindMethod)
		if err != nil {
			return nil, err
		}
		children = append(children, method)
	}

	target, err := asNode("requestLine", items[1], cst.KindRequestTarget)
	if err != nil {
		return nil, err
	}
	children = append(children, target)

	if items[2] != nil {
		v, err := asSlice("requestLine", items[2], 2)
		if err != nil {
			return nil, err
		}
		version, err := asNode("requestLine", v[1], cst.KindHTTPVersion)
		if err != nil {
			return nil, err
		}
		children = append(children, version)
	}

	return cst.NewRequestLine(locationOf(c), children...), nil
}

func Method(c *peg.Current, raw any) (any, error) {
	s, err := join("method", raw)
	if err != nil {
		return nil, err
	}
	return cst.NewMethod(locationOf(c), s), nil
}

// HTTPVersion keeps the full "HTTP/x.y" text.
func HTTPVersion(c *peg.Current, raw any) (any, error) {
	s, err := join("httpVersion", raw)
	if err != nil {
		return nil, err
	}
	return cst.NewHTTPVersion(locationOf(c), s), nil
}
