// Package parser parses HTTP request files into a concrete syntax tree.
//
// A request file holds one or more requests separated by "###" lines. Each
// request has a request line (method, request target and HTTP version, the
// first and last optional), optional headers, an optional message body given
// inline or as a "< path" file reference, an optional "> {% script %}"
// response handler and an optional "<> path" response reference. Comments
// starting with "#" or "//" may appear between requests.
//
// The grammar is run by the peg engine and every rule that produces a node
// is bound to a semantic action in the actions package. Some actions reject
// their match, which makes the engine try the next alternative. This is how
// a message line avoids swallowing a following response handler and how a
// header value with stray padding is refused.
package parser
