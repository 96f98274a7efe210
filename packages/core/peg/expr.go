package peg

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Expr is a parsing expression. Values are built with the constructors in
// this file and are immutable once built, so a grammar may be shared by
// concurrent parses.
type Expr interface {
	match(p *parser) (any, bool)
}

type litExpr struct {
	lit  string
	want string
}

// Lit matches the exact string s and yields it.
func Lit(s string) Expr {
	return &litExpr{lit: s, want: strconv.Quote(s)}
}

func (e *litExpr) match(p *parser) (any, bool) {
	if strings.HasPrefix(p.data[p.pt.Offset:], e.lit) {
		p.advance(len(e.lit))
		return e.lit, true
	}
	p.failAt(p.pt, e.want)
	return nil, false
}

type classExpr struct {
	name string
	fn   func(rune) bool
}

// Class matches a single rune accepted by fn and yields it as a string. The
// name is what diagnostics report as expected.
func Class(name string, fn func(rune) bool) Expr {
	return &classExpr{name: name, fn: fn}
}

// OneOf matches a single rune contained in chars.
func OneOf(chars string) Expr {
	q := strconv.Quote(chars)
	return Class("["+q[1:len(q)-1]+"]", func(r rune) bool {
		return strings.ContainsRune(chars, r)
	})
}

// NoneOf matches a single rune that is not contained in chars.
func NoneOf(chars string) Expr {
	q := strconv.Quote(chars)
	return Class("[^"+q[1:len(q)-1]+"]", func(r rune) bool {
		return !strings.ContainsRune(chars, r)
	})
}

func (e *classExpr) match(p *parser) (any, bool) {
	if p.pt.Offset >= len(p.data) {
		p.failAt(p.pt, e.name)
		return nil, false
	}
	r, w := utf8.DecodeRuneInString(p.data[p.pt.Offset:])
	if !e.fn(r) {
		p.failAt(p.pt, e.name)
		return nil, false
	}
	p.advance(w)
	return p.data[p.pt.Offset-w : p.pt.Offset], true
}

type anyExpr struct{}

// Any matches any single rune.
func Any() Expr {
	return anyExpr{}
}

func (anyExpr) match(p *parser) (any, bool) {
	if p.pt.Offset >= len(p.data) {
		p.failAt(p.pt, "any character")
		return nil, false
	}
	_, w := utf8.DecodeRuneInString(p.data[p.pt.Offset:])
	p.advance(w)
	return p.data[p.pt.Offset-w : p.pt.Offset], true
}

// EOF matches only at the end of the input.
func EOF() Expr {
	return eofExpr{}
}

type eofExpr struct{}

func (eofExpr) match(p *parser) (any, bool) {
	if p.pt.Offset < len(p.data) {
		p.failAt(p.pt, "end of input")
		return nil, false
	}
	return nil, true
}

type seqExpr struct {
	exprs []Expr
}

// Seq matches every expression in order and yields a []any holding each
// sub-match. On failure the input position is restored.
func Seq(exprs ...Expr) Expr {
	return &seqExpr{exprs: exprs}
}

func (e *seqExpr) match(p *parser) (any, bool) {
	start := p.pt
	vals := make([]any, 0, len(e.exprs))
	for _, sub := range e.exprs {
		val, ok := sub.match(p)
		if !ok {
			p.restore(start)
			return nil, false
		}
		vals = append(vals, val)
	}
	return vals, true
}

type choiceExpr struct {
	alts []Expr
}

// Choice tries each alternative in order and yields the value of the first
// one that matches.
func Choice(alts ...Expr) Expr {
	return &choiceExpr{alts: alts}
}

func (e *choiceExpr) match(p *parser) (any, bool) {
	start := p.pt
	for _, alt := range e.alts {
		val, ok := alt.match(p)
		if ok {
			return val, true
		}
		if p.err != nil {
			return nil, false
		}
		p.restore(start)
	}
	return nil, false
}

type optExpr struct {
	expr Expr
}

// Opt matches expr zero or one time. It yields nil when expr did not match.
func Opt(expr Expr) Expr {
	return &optExpr{expr: expr}
}

func (e *optExpr) match(p *parser) (any, bool) {
	start := p.pt
	val, ok := e.expr.match(p)
	if !ok {
		p.restore(start)
		return nil, p.err == nil
	}
	return val, true
}

type repeatExpr struct {
	expr Expr
	min  int
}

// Star matches expr zero or more times and yields a []any.
func Star(expr Expr) Expr {
	return &repeatExpr{expr: expr}
}

// Plus matches expr one or more times and yields a []any.
func Plus(expr Expr) Expr {
	return &repeatExpr{expr: expr, min: 1}
}

func (e *repeatExpr) match(p *parser) (any, bool) {
	start := p.pt
	vals := []any{}
	for {
		before := p.pt
		val, ok := e.expr.match(p)
		if !ok {
			p.restore(before)
			break
		}
		vals = append(vals, val)
		// an expression that matched without consuming would loop forever
		if p.pt.Offset == before.Offset {
			break
		}
	}
	if p.err != nil || len(vals) < e.min {
		p.restore(start)
		return nil, false
	}
	return vals, true
}

type lookExpr struct {
	expr   Expr
	negate bool
}

// And succeeds when expr matches, without consuming input.
func And(expr Expr) Expr {
	return &lookExpr{expr: expr}
}

// Not succeeds when expr does not match, without consuming input.
func Not(expr Expr) Expr {
	return &lookExpr{expr: expr, negate: true}
}

func (e *lookExpr) match(p *parser) (any, bool) {
	start := p.pt
	p.quiet++
	_, ok := e.expr.match(p)
	p.quiet--
	p.restore(start)
	if p.err != nil {
		return nil, false
	}
	return nil, ok != e.negate
}

type textExpr struct {
	expr Expr
}

// Text matches expr and yields the consumed input as a string instead of the
// value expr produced.
func Text(expr Expr) Expr {
	return &textExpr{expr: expr}
}

func (e *textExpr) match(p *parser) (any, bool) {
	start := p.pt.Offset
	if _, ok := e.expr.match(p); !ok {
		return nil, false
	}
	return p.data[start:p.pt.Offset], true
}

type refExpr struct {
	name string
}

// Ref refers to the rule called name. References are resolved when the
// grammar is compiled, so rules may be defined in any order.
func Ref(name string) Expr {
	return &refExpr{name: name}
}

func (e *refExpr) match(p *parser) (any, bool) {
	rule, ok := p.g.rules[e.name]
	if !ok {
		p.abort(&UndefinedRuleError{Name: e.name})
		return nil, false
	}
	return p.parseRule(rule)
}
