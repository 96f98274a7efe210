// Package env resolves the {{name}} references of request files.
//
// Variables come from named environments declared in http-client.env.json,
// optionally overridden by http-client.private.env.json, and from .env
// files. References starting with '$' are dynamic variables computed by
// package builtin. Unresolved references are kept verbatim and reported
// through a WarnFunc with a "did you mean" hint when a close name exists.
package env
