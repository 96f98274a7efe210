package parser

import (
	"strings"

	"github.com/abdul-hamid-achik/httpcst/packages/core/actions"
	"github.com/abdul-hamid-achik/httpcst/packages/core/peg"
)

const (
	tcharSet      = "!#$%&'*+-.^_`|~"
	subDelimSet   = "!$&'()*+,;="
	unreservedSet = "-._~"
)

var (
	ws       = peg.OneOf(" \t")
	lineChar = peg.NoneOf("\r\n")
	wordChar = peg.NoneOf(" \t\r\n")
	digit    = peg.Class("digit", isDigit)
	alpha    = peg.Class("letter", isAlpha)

	tchar = peg.Class("token character", func(r rune) bool {
		return isAlpha(r) || isDigit(r) || strings.ContainsRune(tcharSet, r)
	})
	schemeChar = peg.Class("scheme character", func(r rune) bool {
		return isAlpha(r) || isDigit(r) || strings.ContainsRune("+-.", r)
	})
	regNameChar = peg.Class("host character", isRegNameChar)
	ipv6Char    = peg.Class("IPv6 address character", func(r rune) bool {
		return isHexDigit(r) || r == ':' || r == '.'
	})
	pchar = peg.Class("path character", func(r rune) bool {
		return isRegNameChar(r) || r == ':' || r == '@'
	})
	queryChar = peg.Class("query character", func(r rune) bool {
		return isRegNameChar(r) || strings.ContainsRune(":@/?", r)
	})

	// pathText is a file path without leading or trailing blanks. Blanks
	// inside the path are kept.
	pathText = peg.Seq(wordChar, peg.Star(peg.Seq(peg.Star(ws), peg.Plus(wordChar))))
)

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// isRegNameChar accepts unreserved characters, sub-delims, '%' for
// percent-encoding and the braces of {{variable}} references.
func isRegNameChar(r rune) bool {
	return isAlpha(r) || isDigit(r) ||
		strings.ContainsRune(unreservedSet, r) ||
		strings.ContainsRune(subDelimSet, r) ||
		r == '%' || r == '{' || r == '}'
}

var requestFileGrammar = buildGrammar()

// literal defines a rule matching s that yields a Literal node.
func literal(g *peg.Grammar, name, s string) {
	g.Define(name, peg.Lit(s), actions.Literal)
}

func buildGrammar() *peg.Grammar {
	g := peg.NewGrammar("requestsFile")

	// File structure. Requests are separated by "###" lines; blank lines and
	// comments between them are not part of any request.
	g.Define("requestsFile", peg.Seq(
		peg.Star(peg.Ref("ignorable")),
		peg.Opt(peg.Ref("request")),
		peg.Star(peg.Ref("ignorable")),
		peg.Star(peg.Seq(
			peg.Ref("requestSeparator"),
			peg.Star(peg.Ref("ignorable")),
			peg.Opt(peg.Ref("request")),
			peg.Star(peg.Ref("ignorable")),
		)),
		peg.EOF(),
	), actions.RequestsFile)
	g.Define("ignorable", peg.Choice(peg.Ref("blankLine"), peg.Ref("lineComment")), nil)
	g.Define("blankLine", peg.Choice(
		peg.Seq(peg.Star(ws), peg.Ref("newline")),
		peg.Seq(peg.Plus(ws), peg.EOF()),
	), nil)
	g.Define("requestSeparator", peg.Seq(peg.Lit("###"), peg.Star(lineChar), peg.Ref("lineEnd")), nil).Named("request separator")
	g.Define("lineComment", peg.Seq(
		peg.Star(ws),
		peg.Choice(peg.Lit("#"), peg.Lit("//")),
		peg.Star(lineChar),
		peg.Ref("lineEnd"),
	), actions.LineComment)
	g.Define("newline", peg.Choice(peg.Lit("\r\n"), peg.Lit("\n")), nil).Named("newline")
	g.Define("lineEnd", peg.Choice(peg.Lit("\r\n"), peg.Lit("\n"), peg.EOF()), nil).Named("end of line")
	g.Define("sp", peg.Plus(ws), nil).Named("whitespace")

	g.Define("request", peg.Seq(
		peg.Ref("requestLine"),
		peg.Opt(peg.Ref("headers")),
		peg.Opt(peg.Ref("messageBody")),
		peg.Opt(peg.Ref("responseHandler")),
		peg.Opt(peg.Ref("responseRef")),
	), actions.Request)

	// Request line.
	g.Define("requestLine", peg.Seq(
		peg.Opt(peg.Seq(peg.Ref("method"), peg.Ref("sp"))),
		peg.Ref("requestTarget"),
		peg.Opt(peg.Seq(peg.Ref("sp"), peg.Ref("httpVersion"))),
		peg.Star(ws),
		peg.Ref("lineEnd"),
	), actions.RequestLine)
	// A method never starts with '#', so a "### title" line is not read
	// as a request.
	g.Define("method", peg.Seq(peg.Not(peg.Lit("#")), peg.Plus(tchar)), actions.Method).Named("method")
	g.Define("httpVersion", peg.Seq(
		peg.Lit("HTTP/"),
		peg.Plus(digit),
		peg.Opt(peg.Seq(peg.Lit("."), peg.Plus(digit))),
	), actions.HTTPVersion).Named("HTTP version")

	// Request target. Forms are tried in a fixed order: origin, asterisk,
	// absolute. The asterisk has to come before the absolute form because
	// '*' is also a valid registered-name character.
	g.Define("requestTarget", peg.Choice(
		peg.Ref("originForm"),
		peg.Ref("asteriskForm"),
		peg.Ref("absoluteForm"),
	), actions.RequestTarget)
	g.Define("originForm", peg.Seq(
		peg.Ref("absolutePath"),
		peg.Opt(peg.Seq(peg.Ref("questionMark"), peg.Ref("query"))),
		peg.Opt(peg.Seq(peg.Ref("hashMark"), peg.Ref("fragment"))),
	), actions.OriginForm)
	g.Define("asteriskForm", peg.Seq(peg.Lit("*"), peg.And(peg.Choice(ws, peg.Ref("lineEnd")))), actions.AsteriskForm)
	g.Define("absoluteForm", peg.Seq(
		peg.Opt(peg.Seq(peg.Ref("scheme"), peg.Ref("schemeSeparator"))),
		peg.Ref("hierPart"),
		peg.Opt(peg.Seq(peg.Ref("questionMark"), peg.Ref("query"))),
		peg.Opt(peg.Seq(peg.Ref("hashMark"), peg.Ref("fragment"))),
	), actions.AbsoluteForm)
	g.Define("scheme", peg.Seq(alpha, peg.Star(schemeChar)), actions.Scheme)
	g.Define("hierPart", peg.Seq(peg.Ref("authority"), peg.Ref("pathAbempty")), actions.HierPart)
	g.Define("absolutePath", peg.Plus(peg.Seq(peg.Lit("/"), peg.Star(pchar))), actions.AbsolutePath)
	g.Define("pathAbempty", peg.Star(peg.Seq(peg.Lit("/"), peg.Star(pchar))), actions.AbsolutePath)
	g.Define("query", peg.Star(queryChar), actions.Query)
	g.Define("fragment", peg.Star(queryChar), actions.Fragment)

	// Authority.
	g.Define("authority", peg.Seq(
		peg.Ref("host"),
		peg.Opt(peg.Seq(peg.Ref("colon"), peg.Ref("port"))),
	), actions.Authority)
	g.Define("host", peg.Choice(
		peg.Seq(peg.Lit("["), peg.Plus(ipv6Char), peg.Lit("]")),
		peg.Ref("envHost"),
		peg.Text(peg.Plus(regNameChar)),
	), actions.Host)
	g.Define("envHost", peg.Seq(
		peg.Ref("envVariable"),
		peg.And(peg.Choice(peg.OneOf(":/?#"), ws, peg.Ref("lineEnd"))),
	), actions.First)
	// A port is digits or a single {{variable}}.
	g.Define("port", peg.Choice(peg.Text(peg.Ref("envVariable")), peg.Star(digit)), actions.Port)
	g.Define("envVariable", peg.Seq(
		peg.Lit("{{"),
		peg.Star(peg.Seq(peg.Not(peg.Lit("}}")), lineChar)),
		peg.Lit("}}"),
	), actions.EnvVariable)

	// Headers.
	g.Define("headers", peg.Plus(peg.Ref("headerField")), actions.Headers)
	g.Define("headerField", peg.Seq(
		peg.Ref("fieldName"),
		peg.Lit(":"),
		peg.Opt(ws),
		peg.Ref("fieldValue"),
		peg.Ref("lineEnd"),
	), actions.HeaderField)
	g.Define("fieldName", peg.Plus(tchar), actions.FieldName).Named("header name")
	g.Define("fieldValue", peg.Star(lineChar), actions.FieldValue).Named("header value")

	// Message body: inline lines or a "< path" reference, after at least one
	// blank line.
	g.Define("messageBody", peg.Seq(
		peg.Plus(peg.Ref("blankLine")),
		peg.Choice(peg.Ref("inputFileRef"), peg.Ref("messages")),
	), actions.MessageBody)
	g.Define("messages", peg.Star(peg.Ref("messageLine")), actions.Messages)
	g.Define("messageLine", peg.Seq(peg.Not(peg.EOF()), peg.Star(lineChar), peg.Ref("lineEnd")), actions.MessageLine).Named("message line")
	g.Define("inputFileRef", peg.Seq(
		peg.Ref("lessThan"),
		peg.Ref("sp"),
		peg.Ref("filePath"),
		peg.Star(ws),
		peg.Ref("lineEnd"),
	), actions.InputFileRef)
	g.Define("filePath", pathText, actions.FilePath).Named("file path")

	// Response handler: "> {% script %}" or "> path/to/handler.js".
	g.Define("responseHandler", peg.Seq(
		peg.Star(peg.Ref("blankLine")),
		peg.Ref("greaterThan"),
		peg.Ref("sp"),
		peg.Choice(
			peg.Seq(peg.Ref("scriptOpen"), peg.Ref("handlerScript"), peg.Ref("scriptClose")),
			peg.Ref("responseHandlerFilePath"),
		),
		peg.Star(ws),
		peg.Ref("lineEnd"),
	), actions.ResponseHandler)
	g.Define("handlerScript", peg.Star(peg.Seq(peg.Not(peg.Lit("%}")), peg.Any())), actions.HandlerScript)
	g.Define("responseHandlerFilePath", pathText, actions.ResponseHandlerFilePath).Named("file path")

	// Response reference: "<> path" or ">> name".
	g.Define("responseRef", peg.Seq(
		peg.Star(peg.Ref("blankLine")),
		peg.Ref("responseRefMarker"),
		peg.Ref("sp"),
		peg.Ref("filePath"),
		peg.Star(ws),
		peg.Ref("lineEnd"),
	), actions.ResponseRef)
	g.Define("responseRefMarker", peg.Choice(peg.Lit("<>"), peg.Lit(">>")), actions.Literal)

	literal(g, "questionMark", "?")
	literal(g, "hashMark", "#")
	literal(g, "colon", ":")
	literal(g, "schemeSeparator", "://")
	literal(g, "lessThan", "<")
	literal(g, "greaterThan", ">")
	literal(g, "scriptOpen", "{%")
	literal(g, "scriptClose", "%}")

	if err := g.Validate(); err != nil {
		panic(err)
	}
	return g
}
