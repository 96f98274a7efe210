// Package output renders parse trees, request listings and run results.
//
// Trees are written as a colored outline, JSON (optionally narrowed by a
// gjson query) or YAML. Request listings are tables. Run results go
// through a Formatter: console, JSON, JUnit XML or TAP. Formatters that
// accumulate results implement Flushable.
package output
