// Package runner sends the requests of a parsed file in order.
//
// Variables are layered from the environment files beside the request
// file, an optional dotenv file and explicit overrides. Response handlers
// run after each response and the globals they set are visible to every
// later request. A ">>" response reference saves the response next to the
// request file when saving is enabled; a "<>" reference is diffed against
// the current response.
package runner
