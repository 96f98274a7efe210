// Package peg is a small backtracking grammar engine for parsing expression
// grammars.
//
// A Grammar is a set of named rules. Each rule has an expression built from
// the combinators in this package (Lit, Class, Seq, Choice, Opt, Star, Plus,
// Not, And, Text, Ref) and an optional semantic Action. Alternatives of a
// Choice are tried in declaration order and the first one that matches wins.
//
// An action receives the rule's raw match and the position where it started.
// It may return Reject to declare that the rule does not apply at this
// position; the engine then restores the input position and carries on with
// the next alternative of the nearest enclosing choice, exactly as if the rule
// had failed to match. Returning an error aborts the whole parse.
//
// When no alternative matches, Parse reports a *SyntaxError located at the
// furthest position any expression reached, together with the set of
// expectations that were still viable there.
package peg
