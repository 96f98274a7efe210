package peg

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Option configures a single Parse call.
type Option func(*parser)

// Filename sets the file name reported in syntax errors.
func Filename(name string) Option {
	return func(p *parser) {
		p.filename = name
	}
}

// Memoize enables packrat memoization of rule results. It bounds parse time
// on heavily backtracking grammars at the cost of memory. Actions must be
// pure for memoization to be correct.
func Memoize(b bool) Option {
	return func(p *parser) {
		if b {
			p.memo = make(map[int]map[*Rule]resultTuple)
		} else {
			p.memo = nil
		}
	}
}

// Trace writes one line per rule entry, match, failure and rejection to w.
func Trace(w io.Writer) Option {
	return func(p *parser) {
		p.trace = w
	}
}

type resultTuple struct {
	v   any
	ok  bool
	end Position
}

type parser struct {
	g        *Grammar
	data     string
	filename string

	pt Position

	maxFailPos      Position
	maxFailExpected []string
	// quiet suppresses expectation tracking inside lookaheads and
	// displayed rules.
	quiet int

	memo  map[int]map[*Rule]resultTuple
	trace io.Writer
	depth int

	err error
}

// Parse matches input against g starting at its start rule. The whole input
// must be consumed. It returns the start rule's value, a *SyntaxError when
// the input does not match, or the error an action aborted with.
func Parse(g *Grammar, input string, opts ...Option) (any, error) {
	p := &parser{
		g:    g,
		data: input,
		pt:   Position{Line: 1, Column: 1},
	}
	p.maxFailPos = p.pt
	for _, opt := range opts {
		opt(p)
	}

	start, ok := g.rules[g.start]
	if !ok {
		return nil, &UndefinedRuleError{Name: g.start}
	}

	val, ok := p.parseRule(start)
	if p.err != nil {
		return nil, p.err
	}
	if ok && p.pt.Offset < len(p.data) {
		p.failAt(p.pt, "end of input")
		ok = false
	}
	if !ok {
		return nil, p.syntaxError()
	}
	return val, nil
}

func (p *parser) advance(n int) {
	end := p.pt.Offset + n
	for p.pt.Offset < end {
		r, w := utf8.DecodeRuneInString(p.data[p.pt.Offset:])
		p.pt.Offset += w
		if r == '\n' {
			p.pt.Line++
			p.pt.Column = 1
		} else {
			p.pt.Column++
		}
	}
}

func (p *parser) restore(pt Position) {
	p.pt = pt
}

func (p *parser) abort(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *parser) failAt(pos Position, want string) {
	if p.quiet > 0 {
		return
	}
	if pos.Offset < p.maxFailPos.Offset {
		return
	}
	if pos.Offset > p.maxFailPos.Offset {
		p.maxFailPos = pos
		p.maxFailExpected = p.maxFailExpected[:0]
	}
	p.maxFailExpected = append(p.maxFailExpected, want)
}

func (p *parser) parseRule(rule *Rule) (any, bool) {
	if p.err != nil {
		return nil, false
	}
	start := p.pt

	if p.memo != nil {
		if res, ok := p.memo[start.Offset][rule]; ok {
			if res.ok {
				p.pt = res.end
			}
			return res.v, res.ok
		}
	}

	p.enter(rule, start)
	val, ok := p.evalRule(rule, start)
	p.leave(rule, start, ok)

	if p.memo != nil && p.err == nil {
		m := p.memo[start.Offset]
		if m == nil {
			m = make(map[*Rule]resultTuple)
			p.memo[start.Offset] = m
		}
		m[rule] = resultTuple{v: val, ok: ok, end: p.pt}
	}
	return val, ok
}

func (p *parser) evalRule(rule *Rule, start Position) (any, bool) {
	if rule.Display != "" {
		p.quiet++
	}
	raw, ok := rule.Expr.match(p)
	if rule.Display != "" {
		p.quiet--
	}
	if !ok {
		p.restore(start)
		if rule.Display != "" {
			p.failAt(start, rule.Display)
		}
		return nil, false
	}
	if rule.Action == nil {
		return raw, true
	}

	c := &Current{Pos: start, Text: p.data[start.Offset:p.pt.Offset], Rule: rule.Name}
	val, err := rule.Action(c, raw)
	if err != nil {
		p.abort(&ActionError{Rule: rule.Name, Pos: start, Err: err})
		return nil, false
	}
	if IsReject(val) {
		p.tracef("REJECT %s %q", rule.Name, c.Text)
		p.restore(start)
		if rule.Display != "" {
			p.failAt(start, rule.Display)
		}
		return nil, false
	}
	return val, true
}

func (p *parser) enter(rule *Rule, start Position) {
	if p.trace == nil {
		return
	}
	p.tracef("> %s %s", rule.Name, start)
	p.depth++
}

func (p *parser) leave(rule *Rule, start Position, ok bool) {
	if p.trace == nil {
		return
	}
	p.depth--
	if ok {
		p.tracef("< %s MATCH %q", rule.Name, p.data[start.Offset:p.pt.Offset])
	} else {
		p.tracef("< %s FAIL", rule.Name)
	}
}

func (p *parser) tracef(format string, args ...any) {
	if p.trace == nil {
		return
	}
	fmt.Fprintf(p.trace, "%s%s\n", strings.Repeat("  ", p.depth), fmt.Sprintf(format, args...))
}

func (p *parser) syntaxError() *SyntaxError {
	pos := p.maxFailPos
	return &SyntaxError{
		File:     p.filename,
		Pos:      pos,
		Expected: sortedUnique(p.maxFailExpected),
		Found:    restOfLine(p.data, pos.Offset),
		Snippet:  lineAt(p.data, pos.Offset),
	}
}

func restOfLine(data string, offset int) string {
	rest := data[offset:]
	if i := strings.IndexAny(rest, "\r\n"); i >= 0 {
		return rest[:i]
	}
	return rest
}

func lineAt(data string, offset int) string {
	begin := strings.LastIndexByte(data[:offset], '\n') + 1
	return strings.TrimRight(restOfLine(data, begin), " \t")
}
