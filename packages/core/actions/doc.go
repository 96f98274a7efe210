// Package actions implements the semantic actions of the request-file
// grammar.
//
// Each exported function is the action of one grammar rule. It receives the
// rule's raw match from the peg engine, validates it and builds the CST node
// for it through the cst constructors. Several actions refuse input that
// matches syntactically but belongs to another construct (a header value
// with stray padding, a body line that carries a reserved marker, a comment
// that is really a request separator); they return peg.Reject so that the
// engine moves on to the next alternative.
//
// A raw match whose shape does not fit the rule is a bug in the grammar, not
// in the input, and is reported as a *ContractError.
package actions
