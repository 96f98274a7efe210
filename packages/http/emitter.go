package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/abdul-hamid-achik/httpcst/packages/core/cst"
)

const (
	DefaultMethod      = "GET"
	DefaultHTTPVersion = "1.1"
	defaultScheme      = "http"
)

// Handler is the response handler attached to a request. Exactly one of
// Script and File is set.
type Handler struct {
	Script string `json:"script,omitempty" yaml:"script,omitempty"`
	File   string `json:"file,omitempty" yaml:"file,omitempty"`
	Line   int    `json:"line" yaml:"line"`
}

// ResponseRef points at a file holding (">>") or referencing ("<>") the
// response of a previous run.
type ResponseRef struct {
	Marker string `json:"marker" yaml:"marker"`
	Path   string `json:"path" yaml:"path"`
}

// RequestConfig is the client-facing description of one request, built
// from a Request node. Values still carry unresolved {{variables}}.
type RequestConfig struct {
	Method      string       `json:"method" yaml:"method"`
	URL         string       `json:"url" yaml:"url"`
	BaseURL     string       `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`
	Query       string       `json:"-" yaml:"-"`
	Params      url.Values   `json:"params,omitempty" yaml:"params,omitempty"`
	Headers     http.Header  `json:"headers,omitempty" yaml:"headers,omitempty"`
	HeaderOrder []string     `json:"-" yaml:"-"`
	Data        string       `json:"data,omitempty" yaml:"data,omitempty"`
	DataFile    string       `json:"dataFile,omitempty" yaml:"dataFile,omitempty"`
	HTTPVersion string       `json:"httpVersion" yaml:"httpVersion"`
	Handler     *Handler     `json:"handler,omitempty" yaml:"handler,omitempty"`
	ResponseRef *ResponseRef `json:"responseRef,omitempty" yaml:"responseRef,omitempty"`
	Line        int          `json:"line" yaml:"line"`
}

// FullURL joins BaseURL, URL and the raw query.
func (c *RequestConfig) FullURL() string {
	var b strings.Builder
	switch {
	case c.URL == "*":
		b.WriteString(strings.TrimSuffix(c.BaseURL, "/"))
	case c.BaseURL != "":
		b.WriteString(strings.TrimSuffix(c.BaseURL, "/"))
		b.WriteString(c.URL)
	default:
		b.WriteString(c.URL)
	}
	if c.Query != "" {
		b.WriteByte('?')
		b.WriteString(c.Query)
	}
	return b.String()
}

// Label names the request for listings and filters, as "METHOD url".
func (c *RequestConfig) Label() string {
	return c.Method + " " + c.FullURL()
}

// Header returns the first value of the named header, case-insensitively.
func (c *RequestConfig) Header(name string) string {
	for k, v := range c.Headers {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

// Visitor collects a RequestConfig for every Request node it walks.
type Visitor struct {
	Configs []*RequestConfig

	current  *RequestConfig
	handlers cst.Handlers
}

func NewVisitor() *Visitor {
	v := &Visitor{}
	v.handlers = cst.Handlers{
		cst.KindRequest:         v.request,
		cst.KindMethod:          v.method,
		cst.KindOriginForm:      v.originForm,
		cst.KindAbsoluteForm:    v.absoluteForm,
		cst.KindAsteriskForm:    v.asteriskForm,
		cst.KindHTTPVersion:     v.httpVersion,
		cst.KindHeaderField:     v.headerField,
		cst.KindMessages:        v.messages,
		cst.KindInputFileRef:    v.inputFileRef,
		cst.KindResponseHandler: v.responseHandler,
		cst.KindResponseRef:     v.responseRef,
	}
	return v
}

func (v *Visitor) Visit(n *cst.Node) bool {
	if v.current == nil && n.Kind() != cst.KindRequest {
		// Nodes outside a request only matter for finding requests.
		return false
	}
	return v.handlers.Visit(n)
}

// Emit walks a parsed tree and returns one RequestConfig per request, in
// source order.
func Emit(root *cst.Node) []*RequestConfig {
	v := NewVisitor()
	cst.Walk(v, root)
	return v.Configs
}

func (v *Visitor) request(n *cst.Node) {
	v.current = &RequestConfig{
		Method:      DefaultMethod,
		Headers:     http.Header{},
		HTTPVersion: DefaultHTTPVersion,
		Line:        n.Location().Line,
	}
	cst.WalkChildren(v, n)

	if v.current.BaseURL == "" && v.current.URL != "" {
		if host := v.current.Header("Host"); host != "" {
			v.current.BaseURL = defaultScheme + "://" + host + "/"
		}
	}
	v.Configs = append(v.Configs, v.current)
	v.current = nil
}

func (v *Visitor) method(n *cst.Node) {
	v.current.Method = n.Value()
}

func (v *Visitor) originForm(n *cst.Node) {
	if path, ok := n.Child(cst.KindAbsolutePath); ok {
		v.current.URL = path.Value()
	}
	v.query(n)
}

func (v *Visitor) absoluteForm(n *cst.Node) {
	scheme := defaultScheme
	if s, ok := n.Child(cst.KindScheme); ok {
		scheme = s.Value()
	}
	hier, _ := n.Child(cst.KindHierPart)
	authority, _ := hier.Child(cst.KindAuthority)
	v.current.BaseURL = scheme + "://" + authority.Text(true) + "/"

	v.current.URL = "/"
	if path, ok := hier.Child(cst.KindAbsolutePath); ok {
		v.current.URL = path.Value()
	}
	v.query(n)
}

func (v *Visitor) asteriskForm(n *cst.Node) {
	v.current.URL = n.Value()
}

// query records the raw query and its decoded params. The fragment is never
// sent and is dropped here.
func (v *Visitor) query(n *cst.Node) {
	q, ok := n.Child(cst.KindQuery)
	if !ok {
		return
	}
	v.current.Query = q.Value()
	v.current.Params = parseParams(q.Value())
}

func (v *Visitor) httpVersion(n *cst.Node) {
	v.current.HTTPVersion = strings.TrimPrefix(n.Value(), "HTTP/")
}

func (v *Visitor) headerField(n *cst.Node) {
	name, _ := n.Child(cst.KindFieldName)
	value, _ := n.Child(cst.KindFieldValue)
	key := name.Value()
	if _, seen := v.current.Headers[key]; !seen {
		v.current.HeaderOrder = append(v.current.HeaderOrder, key)
	}
	v.current.Headers[key] = append(v.current.Headers[key], value.Value())
}

func (v *Visitor) messages(n *cst.Node) {
	lines := make([]string, 0, n.Len())
	for _, line := range n.Children() {
		lines = append(lines, line.Value())
	}
	v.current.Data = strings.Join(lines, "\n")
}

func (v *Visitor) inputFileRef(n *cst.Node) {
	if path, ok := n.Child(cst.KindFilePath); ok {
		v.current.DataFile = path.Value()
	}
}

func (v *Visitor) responseHandler(n *cst.Node) {
	h := &Handler{Line: n.Location().Line}
	if script, ok := n.Child(cst.KindHandlerScript); ok {
		h.Script = script.Value()
	} else if path, ok := n.Child(cst.KindFilePath); ok {
		h.File = path.Value()
	}
	v.current.Handler = h
}

func (v *Visitor) responseRef(n *cst.Node) {
	ref := &ResponseRef{}
	if marker, ok := n.Child(cst.KindLiteral); ok {
		ref.Marker = marker.Value()
	}
	if path, ok := n.Child(cst.KindFilePath); ok {
		ref.Path = path.Value()
	}
	v.current.ResponseRef = ref
}

// parseParams splits a raw query into values. Unlike url.ParseQuery it
// never fails: a pair that does not unescape cleanly is kept verbatim, so
// templated values such as {{id}} survive.
func parseParams(raw string) url.Values {
	params := url.Values{}
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		params.Add(unescape(key), unescape(value))
	}
	return params
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}
