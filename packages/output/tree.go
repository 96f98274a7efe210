package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"

	"github.com/abdul-hamid-achik/httpcst/packages/core/cst"
)

// TreeWriter renders a syntax tree as an indented outline, one node per
// line with its kind, value and location.
type TreeWriter struct {
	writer       io.Writer
	withLiterals bool
	kind         func(a ...any) string
	value        func(a ...any) string
	loc          func(a ...any) string
}

type TreeOption func(*TreeWriter)

// TreeWithLiterals includes punctuation nodes such as ':' and '?'.
func TreeWithLiterals(on bool) TreeOption {
	return func(t *TreeWriter) {
		t.withLiterals = on
	}
}

func NewTreeWriter(w io.Writer, opts ...TreeOption) *TreeWriter {
	t := &TreeWriter{
		writer: w,
		kind:   color.New(color.FgCyan, color.Bold).SprintFunc(),
		value:  color.New(color.FgGreen).SprintFunc(),
		loc:    color.New(color.Faint).SprintFunc(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TreeWriter) Write(root *cst.Node) error {
	if root == nil {
		return nil
	}
	if _, err := fmt.Fprintln(t.writer, t.label(root)); err != nil {
		return err
	}
	return t.children(root, "")
}

func (t *TreeWriter) children(n *cst.Node, prefix string) error {
	kids := t.visible(n)
	for i, c := range kids {
		branch, next := "├── ", "│   "
		if i == len(kids)-1 {
			branch, next = "└── ", "    "
		}
		if _, err := fmt.Fprintln(t.writer, prefix+branch+t.label(c)); err != nil {
			return err
		}
		if err := t.children(c, prefix+next); err != nil {
			return err
		}
	}
	return nil
}

func (t *TreeWriter) visible(n *cst.Node) []*cst.Node {
	if t.withLiterals {
		return n.Children()
	}
	var out []*cst.Node
	for _, c := range n.Children() {
		if c.Kind() != cst.KindLiteral {
			out = append(out, c)
		}
	}
	return out
}

func (t *TreeWriter) label(n *cst.Node) string {
	s := t.kind(n.Kind().String())
	if n.IsLeaf() {
		s += " " + t.value(strconv.Quote(n.Value()))
	}
	return s + " " + t.loc(n.Location().String())
}
