// Package cst defines the concrete syntax tree produced by the request-file
// parser.
//
// Every Node has a Kind, the Location where its text begins, and either a
// string value (leaf nodes) or an ordered list of children (composite
// nodes). Nodes are immutable: they are created once through the New*
// constructors and expose their contents only through accessors.
//
// Consumers traverse a tree with Walk. A Visitor handles the kinds it cares
// about; for every other kind Walk descends into the children in source
// order.
package cst
