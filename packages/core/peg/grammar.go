package peg

import (
	"fmt"
	"strconv"
)

// Position is a location in the input. Offset is a byte offset; Line and
// Column are 1-based and count runes.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column) + " [" + strconv.Itoa(p.Offset) + "]"
}

// Current describes the match an action is invoked for.
type Current struct {
	// Pos is where the rule's match begins.
	Pos Position
	// Text is the input consumed by the rule.
	Text string
	// Rule is the name of the rule being reduced.
	Rule string
}

// Action is the semantic action of a rule. raw is the value produced by the
// rule's expression. An action returns the rule's value, Reject to make the
// rule fail at this position, or an error to abort parsing.
type Action func(c *Current, raw any) (any, error)

type rejectSentinel struct{}

func (*rejectSentinel) String() string { return "peg.Reject" }

// Reject is returned by an action to signal that its rule does not apply at
// the current position. It is never a valid rule value.
var Reject any = &rejectSentinel{}

// IsReject reports whether v is the Reject sentinel.
func IsReject(v any) bool {
	return v == Reject
}

// Rule is a named grammar production.
type Rule struct {
	Name string
	// Display, when set, makes the rule report itself as a single
	// expectation in syntax errors instead of the expectations of its
	// sub-expressions.
	Display string
	Expr    Expr
	Action  Action
}

// Grammar is an immutable set of rules with a start rule.
type Grammar struct {
	start string
	rules map[string]*Rule
	order []string
}

// NewGrammar creates an empty grammar whose parses begin at start.
func NewGrammar(start string) *Grammar {
	return &Grammar{
		start: start,
		rules: make(map[string]*Rule),
	}
}

// Define adds a rule. action may be nil, in which case the rule yields the
// raw value of expr. Defining a rule twice panics: grammars are assembled
// at init time and a duplicate is a programming error.
func (g *Grammar) Define(name string, expr Expr, action Action) *Rule {
	if _, ok := g.rules[name]; ok {
		panic(fmt.Sprintf("peg: rule %q defined twice", name))
	}
	r := &Rule{Name: name, Expr: expr, Action: action}
	g.rules[name] = r
	g.order = append(g.order, name)
	return r
}

// Named sets the rule's display name and returns the rule.
func (r *Rule) Named(display string) *Rule {
	r.Display = display
	return r
}

// Rule returns the rule called name.
func (g *Grammar) Rule(name string) (*Rule, bool) {
	r, ok := g.rules[name]
	return r, ok
}

// Rules returns the rule names in definition order.
func (g *Grammar) Rules() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Validate checks that the start rule and every rule reference exist.
func (g *Grammar) Validate() error {
	if _, ok := g.rules[g.start]; !ok {
		return &UndefinedRuleError{Name: g.start}
	}
	for _, name := range g.order {
		if err := validateExpr(g, g.rules[name].Expr); err != nil {
			return fmt.Errorf("rule %s: %w", name, err)
		}
	}
	return nil
}

func validateExpr(g *Grammar, e Expr) error {
	switch e := e.(type) {
	case *refExpr:
		if _, ok := g.rules[e.name]; !ok {
			return &UndefinedRuleError{Name: e.name}
		}
	case *seqExpr:
		for _, sub := range e.exprs {
			if err := validateExpr(g, sub); err != nil {
				return err
			}
		}
	case *choiceExpr:
		for _, sub := range e.alts {
			if err := validateExpr(g, sub); err != nil {
				return err
			}
		}
	case *optExpr:
		return validateExpr(g, e.expr)
	case *repeatExpr:
		return validateExpr(g, e.expr)
	case *lookExpr:
		return validateExpr(g, e.expr)
	case *textExpr:
		return validateExpr(g, e.expr)
	}
	return nil
}
