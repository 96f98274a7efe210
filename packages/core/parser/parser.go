package parser

import (
	"errors"
	"io"
	"os"

	"github.com/abdul-hamid-achik/httpcst/packages/core/cst"
	"github.com/abdul-hamid-achik/httpcst/packages/core/peg"
)

// Option configures a Parse call.
type Option func(*options)

type options struct {
	filename string
	memoize  bool
	trace    io.Writer
}

// WithFilename sets the file name reported in syntax errors.
func WithFilename(name string) Option {
	return func(o *options) {
		o.filename = name
	}
}

// WithMemoize enables packrat memoization of rule results.
func WithMemoize(enabled bool) Option {
	return func(o *options) {
		o.memoize = enabled
	}
}

// WithTrace writes the rule-by-rule trace of the parse to w.
func WithTrace(w io.Writer) Option {
	return func(o *options) {
		o.trace = w
	}
}

// ParseFile reads the request file at path and parses it. Syntax errors
// carry the path.
func ParseFile(path string, opts ...Option) (*cst.Node, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(content), append([]Option{WithFilename(path)}, opts...)...)
}

// Parse parses the text of a request file into its RequestsFile node.
//
// A failed parse returns a *peg.SyntaxError positioned at the furthest point
// the grammar reached. An action that was handed a sub-match of the wrong
// shape aborts the parse with a *peg.ActionError wrapping an
// *actions.ContractError.
func Parse(input string, opts ...Option) (*cst.Node, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	pegOpts := []peg.Option{peg.Filename(o.filename), peg.Memoize(o.memoize)}
	if o.trace != nil {
		pegOpts = append(pegOpts, peg.Trace(o.trace))
	}

	v, err := peg.Parse(requestFileGrammar, input, pegOpts...)
	if err != nil {
		return nil, err
	}
	root, ok := v.(*cst.Node)
	if !ok || root.Kind() != cst.KindRequestsFile {
		return nil, errors.New("parser: grammar did not produce a requests file")
	}
	return root, nil
}

// Rules lists the names of the grammar's rules in definition order.
func Rules() []string {
	return requestFileGrammar.Rules()
}
