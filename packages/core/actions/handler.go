package actions

import (
	"strings"

	"github.com/abdul-hamid-achik/httpcst/packages/core/cst"
	"github.com/abdul-hamid-achik/httpcst/packages/core/peg"
)

const (
	scriptOpen        = "{%"
	scriptClose       = "%}"
	requestSeparator  = "###"
	commentSeparator  = "##"
	responseHandlerOp = ">"
)

// ResponseHandler expects [blankLines, ">", sp, handler, ws, lineEnd] where
// handler is either ["{%", handlerScript, "%}"] or a file path.
func ResponseHandler(c *peg.Current, raw any) (any, error) {
	items, err := asSlice("responseHandler", raw, 6)
	if err != nil {
		return nil, err
	}
	marker, err := asNode("responseHandler", items[1], cst.KindLiteral)
	if err != nil {
		return nil, err
	}
	if marker.Value() != responseHandlerOp {
		return nil, contractErr("responseHandler", raw, "unexpected marker %q", marker.Value())
	}

	switch v := items[3].(type) {
	case []any:
		if len(v) != 3 {
			return nil, contractErr("responseHandler", raw, "expected 3 parts for an inline script, got %d", len(v))
		}
		open, err := asNode("responseHandler", v[0], cst.KindLiteral)
		if err != nil {
			return nil, err
		}
		script, err := asNode("responseHandler", v[1], cst.KindHandlerScript)
		if err != nil {
			return nil, err
		}
		closing, err := asNode("responseHandler", v[2], cst.KindLiteral)
		if err != nil {
			return nil, err
		}
		return cst.NewResponseHandler(marker.Location(), marker, open, script, closing), nil
	default:
		path, err := asNode("responseHandler", v, cst.KindFilePath)
		if err != nil {
			return nil, err
		}
		return cst.NewResponseHandler(marker.Location(), marker, path), nil
	}
}

// ResponseHandlerFilePath rejects a path that opens an inline script, so
// that an unterminated "{%" is never mistaken for a handler file name.
func ResponseHandlerFilePath(c *peg.Current, raw any) (any, error) {
	s, err := join("responseHandlerFilePath", raw)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(s, scriptOpen) {
		return peg.Reject, nil
	}
	return cst.NewFilePath(locationOf(c), s), nil
}

// HandlerScript rejects a script body that runs past its terminator or into
// the next request.
func HandlerScript(c *peg.Current, raw any) (any, error) {
	s, err := join("handlerScript", raw)
	if err != nil {
		return nil, err
	}
	if strings.Contains(s, scriptClose) || strings.Contains(s, requestSeparator) {
		return peg.Reject, nil
	}
	return cst.NewHandlerScript(locationOf(c), s), nil
}

// ResponseRef expects [blankLines, marker, sp, filePath, ws, lineEnd] where
// marker is "<>" or ">>".
func ResponseRef(c *peg.Current, raw any) (any, error) {
	items, err := asSlice("responseRef", raw, 6)
	if err != nil {
		return nil, err
	}
	marker, err := asNode("responseRef", items[1], cst.KindLiteral)
	if err != nil {
		return nil, err
	}
	ref, err := asNode("responseRef", items[3], cst.KindFilePath)
	if err != nil {
		return nil, err
	}
	return cst.NewResponseRef(marker.Location(), marker, ref), nil
}

// LineComment expects [ws, "#" | "//", lineChars, lineEnd]. Text holding
// "##" belongs to a request separator and is rejected.
func LineComment(c *peg.Current, raw any) (any, error) {
	items, err := asSlice("lineComment", raw, 4)
	if err != nil {
		return nil, err
	}
	indent, err := join("lineComment", items[0])
	if err != nil {
		return nil, err
	}
	text, err := join("lineComment", items[1:3])
	if err != nil {
		return nil, err
	}
	if strings.Contains(text, commentSeparator) {
		return peg.Reject, nil
	}
	return cst.NewLineComment(advance(locationOf(c), indent), text), nil
}

// EnvVariable keeps the whole "{{ name }}" reference as written.
func EnvVariable(c *peg.Current, raw any) (any, error) {
	s, err := join("envVariable", raw)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(s, "{{") || !strings.HasSuffix(s, "}}") {
		return nil, contractErr("envVariable", raw, "reference must be enclosed in {{ }}")
	}
	return cst.NewEnvVariable(locationOf(c), s), nil
}
