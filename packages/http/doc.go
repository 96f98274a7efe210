// Package http turns parsed request files into outgoing requests and sends
// them.
//
// Emit walks a tree from the parser and yields one RequestConfig per
// request: method, base URL and path, query params, headers in source
// order, body text or body file, response handler and response reference.
// RequestConfig.NewRequest resolves variables and builds a *net/http.Request
// that Client.Do sends.
package http
