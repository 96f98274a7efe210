package peg

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func joinStrings(raw any) string {
	var b strings.Builder
	for _, v := range raw.([]any) {
		b.WriteString(v.(string))
	}
	return b.String()
}

// wordsGrammar accepts a list of words separated by single spaces, where a
// word is either a number or a name. Names that read "bad" are rejected.
func wordsGrammar() *Grammar {
	g := NewGrammar("list")
	g.Define("list", Seq(Ref("word"), Star(Seq(Lit(" "), Ref("word"))), EOF()), nil)
	g.Define("word", Choice(Ref("number"), Ref("name")), nil)
	g.Define("number", Plus(Class("digit", isDigit)), func(c *Current, raw any) (any, error) {
		return "num:" + joinStrings(raw), nil
	})
	g.Define("name", Plus(NoneOf(" \n")), func(c *Current, raw any) (any, error) {
		s := joinStrings(raw)
		if s == "bad" {
			return Reject, nil
		}
		return "name:" + s, nil
	})
	return g
}

func TestParse_OrderedChoice(t *testing.T) {
	val, err := Parse(wordsGrammar(), "12 ab 7")
	require.NoError(t, err)

	list := val.([]any)
	assert.Equal(t, "num:12", list[0])
	rest := list[1].([]any)
	require.Len(t, rest, 2)
	assert.Equal(t, "name:ab", rest[0].([]any)[1])
	assert.Equal(t, "num:7", rest[1].([]any)[1])
}

// rejectGrammar matches any text; "strict" refuses text containing '!' so
// that "loose" gets its turn.
func rejectGrammar() *Grammar {
	g := NewGrammar("start")
	g.Define("start", Choice(Ref("strict"), Ref("loose")), nil)
	g.Define("strict", Text(Plus(Any())), func(c *Current, raw any) (any, error) {
		if strings.Contains(raw.(string), "!") {
			return Reject, nil
		}
		return "strict", nil
	})
	g.Define("loose", Text(Plus(Any())), func(c *Current, raw any) (any, error) {
		return "loose", nil
	})
	return g
}

func TestParse_RejectBacktracks(t *testing.T) {
	g := rejectGrammar()

	val, err := Parse(g, "hello")
	require.NoError(t, err)
	assert.Equal(t, "strict", val)

	val, err = Parse(g, "hello!")
	require.NoError(t, err)
	assert.Equal(t, "loose", val)
}

func TestParse_RejectFailsWithoutAlternative(t *testing.T) {
	_, err := Parse(wordsGrammar(), "12 bad")
	require.Error(t, err)

	var synErr *SyntaxError
	require.True(t, errors.As(err, &synErr))
	assert.Equal(t, 1, synErr.Pos.Line)
}

func TestParse_SyntaxErrorAtFurthestPosition(t *testing.T) {
	g := NewGrammar("start")
	g.Define("start", Seq(Lit("GET"), Lit(" "), Choice(Lit("/a"), Lit("/b")), EOF()), nil)

	_, err := Parse(g, "GET /c", Filename("req.http"))
	require.Error(t, err)

	var synErr *SyntaxError
	require.True(t, errors.As(err, &synErr))
	assert.Equal(t, 4, synErr.Pos.Offset)
	assert.Equal(t, 5, synErr.Pos.Column)
	assert.Equal(t, []string{`"/a"`, `"/b"`}, synErr.Expected)
	assert.Equal(t, "/c", synErr.Found)
	assert.Equal(t, "GET /c", synErr.Snippet)
	assert.Equal(t, `req.http:1:5: syntax error: unexpected "/c", expected "/a" or "/b"`, synErr.Error())
}

func TestParse_PositionsCountLines(t *testing.T) {
	g := NewGrammar("start")
	g.Define("start", Seq(Lit("a\n"), Ref("b")), nil)
	g.Define("b", Lit("b"), func(c *Current, raw any) (any, error) {
		return c.Pos, nil
	})

	val, err := Parse(g, "a\nb")
	require.NoError(t, err)
	pos := val.([]any)[1].(Position)
	assert.Equal(t, Position{Offset: 2, Line: 2, Column: 1}, pos)
}

func TestParse_DisplayName(t *testing.T) {
	g := NewGrammar("start")
	g.Define("start", Seq(Ref("number"), EOF()), nil)
	g.Define("number", Plus(Class("digit", isDigit)), nil).Named("number")

	_, err := Parse(g, "x")
	var synErr *SyntaxError
	require.True(t, errors.As(err, &synErr))
	assert.Equal(t, []string{"number"}, synErr.Expected)
}

func TestParse_UnconsumedInput(t *testing.T) {
	g := NewGrammar("start")
	g.Define("start", Lit("a"), nil)

	_, err := Parse(g, "ab")
	var synErr *SyntaxError
	require.True(t, errors.As(err, &synErr))
	assert.Equal(t, 1, synErr.Pos.Offset)
	assert.Contains(t, synErr.Expected, "end of input")
}

func TestParse_ActionErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	g := NewGrammar("start")
	g.Define("start", Choice(Ref("fails"), Lit("a")), nil)
	g.Define("fails", Lit("a"), func(c *Current, raw any) (any, error) {
		return nil, boom
	})

	_, err := Parse(g, "a")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var actErr *ActionError
	require.True(t, errors.As(err, &actErr))
	assert.Equal(t, "fails", actErr.Rule)
}

func TestParse_Lookahead(t *testing.T) {
	g := NewGrammar("start")
	g.Define("start", Seq(Text(Star(Seq(Not(Lit("%}")), Any()))), Lit("%}"), And(EOF())), func(c *Current, raw any) (any, error) {
		return raw.([]any)[0], nil
	})

	val, err := Parse(g, "a % b%}")
	require.NoError(t, err)
	assert.Equal(t, "a % b", val)
}

func TestParse_StarStopsOnEmptyMatch(t *testing.T) {
	g := NewGrammar("start")
	g.Define("start", Seq(Star(Opt(Lit("x"))), EOF()), nil)

	_, err := Parse(g, "xx")
	require.NoError(t, err)
}

func TestParse_Memoize(t *testing.T) {
	calls := 0
	g := NewGrammar("start")
	g.Define("start", Choice(Seq(Ref("word"), Lit("!")), Seq(Ref("word"), Lit("?"))), nil)
	g.Define("word", Text(Plus(Class("letter", func(r rune) bool { return r >= 'a' && r <= 'z' }))), func(c *Current, raw any) (any, error) {
		calls++
		return raw, nil
	})

	_, err := Parse(g, "abc?", Memoize(true))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	calls = 0
	_, err = Parse(g, "abc?")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestParse_Trace(t *testing.T) {
	var buf bytes.Buffer
	_, err := Parse(rejectGrammar(), "hi!", Trace(&buf))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "> start")
	assert.Contains(t, buf.String(), `REJECT strict "hi!"`)
	assert.Contains(t, buf.String(), `< loose MATCH "hi!"`)
}

func TestGrammar_Validate(t *testing.T) {
	g := NewGrammar("start")
	g.Define("start", Ref("missing"), nil)

	err := g.Validate()
	require.Error(t, err)
	var undef *UndefinedRuleError
	require.True(t, errors.As(err, &undef))
	assert.Equal(t, "missing", undef.Name)

	assert.NoError(t, wordsGrammar().Validate())
}

func TestIsReject(t *testing.T) {
	assert.True(t, IsReject(Reject))
	assert.False(t, IsReject(nil))
	assert.False(t, IsReject("reject"))
}
