package peg

import (
	"sort"
	"strconv"
	"strings"
)

// SyntaxError is returned when the input does not match the grammar.
type SyntaxError struct {
	File     string
	Pos      Position
	Expected []string
	// Found is the text at Pos, up to the end of its line.
	Found   string
	Snippet string
}

func (e *SyntaxError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		b.WriteString(":")
		b.WriteString(strconv.Itoa(e.Pos.Line))
		b.WriteString(":")
		b.WriteString(strconv.Itoa(e.Pos.Column))
		b.WriteString(": ")
	} else {
		b.WriteString("line ")
		b.WriteString(strconv.Itoa(e.Pos.Line))
		b.WriteString(", column ")
		b.WriteString(strconv.Itoa(e.Pos.Column))
		b.WriteString(": ")
	}
	b.WriteString("syntax error")
	if e.Found == "" {
		b.WriteString(": unexpected end of line")
	} else {
		b.WriteString(": unexpected ")
		b.WriteString(strconv.Quote(e.Found))
	}
	if len(e.Expected) > 0 {
		b.WriteString(", expected ")
		b.WriteString(listJoin(e.Expected, ", ", "or"))
	}
	return b.String()
}

// UndefinedRuleError reports a reference to a rule that does not exist.
type UndefinedRuleError struct {
	Name string
}

func (e *UndefinedRuleError) Error() string {
	return "undefined rule " + strconv.Quote(e.Name)
}

// ActionError wraps an error returned by a rule's action.
type ActionError struct {
	Rule string
	Pos  Position
	Err  error
}

func (e *ActionError) Error() string {
	return "rule " + e.Rule + " at " + e.Pos.String() + ": " + e.Err.Error()
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func listJoin(list []string, sep string, lastSep string) string {
	switch len(list) {
	case 0:
		return ""
	case 1:
		return list[0]
	default:
		return strings.Join(list[:len(list)-1], sep) + " " + lastSep + " " + list[len(list)-1]
	}
}

func sortedUnique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	eof := false
	for _, s := range in {
		if s == "end of input" {
			eof = true
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	if eof {
		out = append(out, "end of input")
	}
	return out
}
