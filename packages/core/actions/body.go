package actions

import (
	"strings"

	"github.com/abdul-hamid-achik/httpcst/packages/core/cst"
	"github.com/abdul-hamid-achik/httpcst/packages/core/peg"
)

// reservedMarkers introduce constructs that a message line must never
// swallow: input file references, response handlers, response references
// and request separators.
var reservedMarkers = []string{"<", "> ", "<> ", "###"}

// MessageBody expects [blankLines, messages | inputFileRef]. It yields
// nothing when no message line was accepted. The body is located at its
// first line of content, past the blank lines that separate it from the
// headers.
func MessageBody(c *peg.Current, raw any) (any, error) {
	items, err := asSlice("messageBody", raw, 2)
	if err != nil {
		return nil, err
	}
	content, err := optionalNode("messageBody", items[1], cst.KindMessages, cst.KindInputFileRef)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, nil
	}
	return cst.NewMessageBody(content.Location(), content), nil
}

// Messages keeps the accepted message lines, minus blank lines at either
// end. It yields nothing when no line is left.
func Messages(c *peg.Current, raw any) (any, error) {
	items, err := asSlice("messages", raw, -1)
	if err != nil {
		return nil, err
	}
	lines := make([]*cst.Node, 0, len(items))
	for _, item := range items {
		line, err := asNode("messages", item, cst.KindMessageLine)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	for len(lines) > 0 && strings.TrimSpace(lines[0].Value()) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1].Value()) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil, nil
	}
	return cst.NewMessages(lines[0].Location(), lines...), nil
}

// MessageLine expects [!EOF, lineChars, lineEnd]. It rejects any line that
// carries a reserved marker.
func MessageLine(c *peg.Current, raw any) (any, error) {
	items, err := asSlice("messageLine", raw, 3)
	if err != nil {
		return nil, err
	}
	s, err := join("messageLine", items[1])
	if err != nil {
		return nil, err
	}
	for _, marker := range reservedMarkers {
		if strings.Contains(s, marker) {
			return peg.Reject, nil
		}
	}
	return cst.NewMessageLine(locationOf(c), s), nil
}

// InputFileRef expects ["<", sp, filePath, ws, lineEnd].
func InputFileRef(c *peg.Current, raw any) (any, error) {
	items, err := asSlice("inputFileRef", raw, 5)
	if err != nil {
		return nil, err
	}
	marker, err := asNode("inputFileRef", items[0], cst.KindLiteral)
	if err != nil {
		return nil, err
	}
	path, err := asNode("inputFileRef", items[2], cst.KindFilePath)
	if err != nil {
		return nil, err
	}
	return cst.NewInputFileRef(locationOf(c), marker, path), nil
}

func FilePath(c *peg.Current, raw any) (any, error) {
	s, err := join("filePath", raw)
	if err != nil {
		return nil, err
	}
	return cst.NewFilePath(locationOf(c), s), nil
}
