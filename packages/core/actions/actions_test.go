package actions

import (
	"errors"
	"testing"

	"github.com/abdul-hamid-achik/httpcst/packages/core/cst"
	"github.com/abdul-hamid-achik/httpcst/packages/core/peg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(line, col, off int) *peg.Current {
	return &peg.Current{Pos: peg.Position{Offset: off, Line: line, Column: col}}
}

func chars(s string) []any {
	out := make([]any, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func lit(s string) *cst.Node {
	return cst.NewLiteral(cst.Location{Line: 1, Column: 1}, s)
}

func requireNode(t *testing.T, v any, err error, kind cst.Kind) *cst.Node {
	t.Helper()
	require.NoError(t, err)
	n, ok := v.(*cst.Node)
	require.True(t, ok, "got %T", v)
	require.Equal(t, kind, n.Kind())
	return n
}

func requireContractError(t *testing.T, err error) *ContractError {
	t.Helper()
	var ce *ContractError
	require.True(t, errors.As(err, &ce), "got %v", err)
	return ce
}

func TestFieldValue(t *testing.T) {
	tests := []struct {
		value  string
		reject bool
	}{
		{"httpbin.org", false},
		{"", false},
		{"a b", false},
		{" httpbin.org", true},
		{"httpbin.org ", true},
		{" ", true},
		{"\thttpbin.org", true},
		{"httpbin.org\t", true},
		{"a\tb", false},
	}

	for _, tt := range tests {
		v, err := FieldValue(at(2, 7, 25), chars(tt.value))
		require.NoError(t, err)
		if tt.reject {
			assert.True(t, peg.IsReject(v), "value %q", tt.value)
			continue
		}
		n := requireNode(t, v, err, cst.KindFieldValue)
		assert.Equal(t, tt.value, n.Value())
		assert.Equal(t, cst.Location{Offset: 25, Line: 2, Column: 7}, n.Location())
	}
}

func TestMessageLine_ReservedMarkers(t *testing.T) {
	tests := []struct {
		line   string
		reject bool
	}{
		{"{}", false},
		{`{"a": 1}`, false},
		{">no space", false},
		{"", false},
		{"< ./body.json", true},
		{"<html>", true},
		{"> {% x %}", true},
		{"<> ./saved.json", true},
		{"###", true},
		{"text ### more", true},
	}

	for _, tt := range tests {
		v, err := MessageLine(at(1, 1, 0), []any{nil, chars(tt.line), "\n"})
		require.NoError(t, err)
		if tt.reject {
			assert.True(t, peg.IsReject(v), "line %q", tt.line)
			continue
		}
		n := requireNode(t, v, err, cst.KindMessageLine)
		assert.Equal(t, tt.line, n.Value())
	}
}

func TestMessages_TrimsBlankLines(t *testing.T) {
	line := func(row int, s string) *cst.Node {
		return cst.NewMessageLine(cst.Location{Line: row, Column: 1}, s)
	}
	raw := []any{line(4, ""), line(5, "{"), line(6, "  "), line(7, "}"), line(8, " ")}

	v, err := Messages(at(4, 1, 0), raw)
	n := requireNode(t, v, err, cst.KindMessages)
	require.Equal(t, 3, n.Len())
	assert.Equal(t, "{", n.At(0).Value())
	assert.Equal(t, "}", n.At(2).Value())
	assert.Equal(t, 5, n.Location().Line)

	v, err = Messages(at(4, 1, 0), []any{line(4, ""), line(5, "\t")})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestMessageBody_Empty(t *testing.T) {
	v, err := MessageBody(at(3, 1, 0), []any{[]any{"\n"}, nil})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestLineComment(t *testing.T) {
	v, err := LineComment(at(3, 1, 10), []any{chars("  "), "#", chars(" note"), "\n"})
	n := requireNode(t, v, err, cst.KindLineComment)
	assert.Equal(t, "# note", n.Value())
	assert.Equal(t, cst.Location{Offset: 12, Line: 3, Column: 3}, n.Location())

	v, err = LineComment(at(1, 1, 0), []any{nil, "//", chars(" note"), nil})
	n = requireNode(t, v, err, cst.KindLineComment)
	assert.Equal(t, "// note", n.Value())

	v, err = LineComment(at(1, 1, 0), []any{nil, "#", chars("## Title"), "\n"})
	require.NoError(t, err)
	assert.True(t, peg.IsReject(v))
}

func TestHandlerScript(t *testing.T) {
	v, err := HandlerScript(at(1, 5, 4), chars(" client.log(1); "))
	n := requireNode(t, v, err, cst.KindHandlerScript)
	assert.Equal(t, " client.log(1); ", n.Value())

	for _, body := range []string{" a %} b ", "\n###\nGET /"} {
		v, err := HandlerScript(at(1, 5, 4), chars(body))
		require.NoError(t, err)
		assert.True(t, peg.IsReject(v), "body %q", body)
	}
}

func TestResponseHandlerFilePath(t *testing.T) {
	v, err := ResponseHandlerFilePath(at(1, 3, 2), chars("./check.js"))
	n := requireNode(t, v, err, cst.KindFilePath)
	assert.Equal(t, "./check.js", n.Value())

	v, err = ResponseHandlerFilePath(at(1, 3, 2), chars("{% unterminated"))
	require.NoError(t, err)
	assert.True(t, peg.IsReject(v))
}

func TestResponseHandler(t *testing.T) {
	marker := cst.NewLiteral(cst.Location{Line: 5, Column: 1, Offset: 40}, ">")
	script := cst.NewHandlerScript(cst.Location{Line: 5, Column: 5}, " x ")
	raw := []any{nil, marker, " ", []any{lit("{%"), script, lit("%}")}, nil, "\n"}

	v, err := ResponseHandler(at(4, 1, 39), raw)
	n := requireNode(t, v, err, cst.KindResponseHandler)
	assert.Equal(t, 4, n.Len())
	assert.Equal(t, marker.Location(), n.Location())

	path := cst.NewFilePath(cst.Location{Line: 5, Column: 3}, "./h.js")
	v, err = ResponseHandler(at(5, 1, 40), []any{nil, marker, " ", path, nil, nil})
	n = requireNode(t, v, err, cst.KindResponseHandler)
	assert.Equal(t, "./h.js", n.At(1).Value())

	_, err = ResponseHandler(at(5, 1, 40), []any{nil, marker, " ", []any{lit("{%"), script}, nil, nil})
	requireContractError(t, err)
}

func TestHost_Shapes(t *testing.T) {
	v, err := Host(at(1, 12, 11), "example.com")
	n := requireNode(t, v, err, cst.KindHost)
	require.Equal(t, 1, n.Len())
	assert.Equal(t, cst.KindIPv4OrRegName, n.At(0).Kind())

	v, err = Host(at(1, 12, 11), []any{"[", chars("::1"), "]"})
	n = requireNode(t, v, err, cst.KindHost)
	require.Equal(t, 3, n.Len())
	assert.Equal(t, "::1", n.At(1).Value())
	assert.Equal(t, cst.Location{Offset: 12, Line: 1, Column: 13}, n.At(1).Location())
	assert.Equal(t, cst.Location{Offset: 15, Line: 1, Column: 16}, n.At(2).Location())

	env := cst.NewEnvVariable(cst.Location{Line: 1, Column: 12}, "{{host}}")
	v, err = Host(at(1, 12, 11), env)
	n = requireNode(t, v, err, cst.KindHost)
	assert.Same(t, env, n.At(0))
}

func TestHost_ContractViolations(t *testing.T) {
	tests := map[string]any{
		"two parts":     []any{"[", chars("::1")},
		"not bracketed": []any{"(", chars("::1"), ")"},
		"wrong node":    cst.NewPort(cst.Location{}, "80"),
		"number":        42,
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Host(at(1, 1, 0), raw)
			ce := requireContractError(t, err)
			assert.Equal(t, "host", ce.Action)
		})
	}
}

func TestAuthority(t *testing.T) {
	host := cst.NewHost(cst.Location{Line: 1, Column: 8}, cst.NewIPv4OrRegName(cst.Location{Line: 1, Column: 8}, "localhost"))
	port := cst.NewPort(cst.Location{Line: 1, Column: 18}, "8080")

	v, err := Authority(at(1, 8, 7), []any{host, []any{lit(":"), port}})
	n := requireNode(t, v, err, cst.KindAuthority)
	assert.Equal(t, 3, n.Len())
	assert.Equal(t, "8080", n.At(2).Value())

	v, err = Authority(at(1, 8, 7), []any{host, nil})
	n = requireNode(t, v, err, cst.KindAuthority)
	assert.Equal(t, 1, n.Len())

	v, err = Authority(at(1, 8, 7), []any{host, []any{lit(":"), nil}})
	require.NoError(t, err)
	assert.True(t, peg.IsReject(v))
}

func TestPort(t *testing.T) {
	v, err := Port(at(1, 18, 17), chars("8080"))
	n := requireNode(t, v, err, cst.KindPort)
	assert.Equal(t, "8080", n.Value())

	v, err = Port(at(1, 18, 17), "{{port}}")
	n = requireNode(t, v, err, cst.KindPort)
	assert.Equal(t, "{{port}}", n.Value())

	v, err = Port(at(1, 18, 17), []any{})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestInputFileRef(t *testing.T) {
	path := cst.NewFilePath(cst.Location{Offset: 12, Line: 3, Column: 3}, "./body.json")
	v, err := InputFileRef(at(3, 1, 10), []any{lit("<"), []any{" "}, path, []any{" ", "\t"}, "\n"})
	n := requireNode(t, v, err, cst.KindInputFileRef)
	assert.Equal(t, "./body.json", n.At(1).Value())

	_, err = InputFileRef(at(3, 1, 10), []any{lit("<"), []any{" "}, path, "\n"})
	requireContractError(t, err)
}

func TestAbsoluteForm_SchemePair(t *testing.T) {
	loc := cst.Location{Line: 1, Column: 1}
	scheme := cst.NewScheme(loc, "https")
	hier := cst.NewHierPart(loc, cst.NewAuthority(loc, cst.NewHost(loc, cst.NewIPv4OrRegName(loc, "a.b"))))

	v, err := AbsoluteForm(at(1, 1, 0), []any{[]any{scheme, lit("://")}, hier, nil, nil})
	n := requireNode(t, v, err, cst.KindAbsoluteForm)
	assert.Equal(t, []*cst.Node{scheme, n.At(1), hier}, n.Children())
	assert.Equal(t, "://", n.At(1).Value())

	v, err = AbsoluteForm(at(1, 1, 0), []any{nil, hier, []any{lit("?"), nil}, nil})
	n = requireNode(t, v, err, cst.KindAbsoluteForm)
	assert.Equal(t, 1, n.Len())
}

func TestRequest_Contract(t *testing.T) {
	_, err := Request(at(1, 1, 0), []any{nil, nil})
	ce := requireContractError(t, err)
	assert.Equal(t, "request", ce.Action)
	assert.Contains(t, ce.Error(), "expected 5 parts, got 2")

	line := cst.NewRequestLine(cst.Location{Line: 1, Column: 1})
	_, err = Request(at(1, 1, 0), []any{line, line, nil, nil, nil})
	requireContractError(t, err)
}

func TestRequest_SkipsAbsentSections(t *testing.T) {
	loc := cst.Location{Line: 1, Column: 1}
	line := cst.NewRequestLine(loc, cst.NewRequestTarget(loc, cst.NewAsteriskForm(loc, "*")))
	ref := cst.NewResponseRef(loc, lit("<>"), cst.NewFilePath(loc, "./r.json"))

	v, err := Request(at(1, 1, 0), []any{line, nil, nil, nil, ref})
	n := requireNode(t, v, err, cst.KindRequest)
	assert.Equal(t, []*cst.Node{line, ref}, n.Children())
}

func TestJoin(t *testing.T) {
	s, err := join("x", []any{"a", nil, []any{"b", []any{"c"}}})
	require.NoError(t, err)
	assert.Equal(t, "abc", s)

	_, err = join("x", []any{"a", lit("b")})
	requireContractError(t, err)
}

func TestEnvVariable(t *testing.T) {
	v, err := EnvVariable(at(1, 5, 4), []any{"{{", chars("host"), "}}"})
	n := requireNode(t, v, err, cst.KindEnvVariable)
	assert.Equal(t, "{{host}}", n.Value())

	_, err = EnvVariable(at(1, 5, 4), chars("host"))
	requireContractError(t, err)
}

func TestFirst(t *testing.T) {
	v, err := First(at(1, 1, 0), []any{"a", nil})
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	_, err = First(at(1, 1, 0), []any{})
	requireContractError(t, err)
}
