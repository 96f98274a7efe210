// Package script checks and runs response handler scripts.
//
// Handlers are JavaScript run in an isolated goja runtime per call. A
// script sees two objects:
//
//	client.global.set(name, value)  store a variable for later requests
//	client.global.get(name)         read it back
//	client.test(name, fn)           record a named check
//	client.assert(cond, message)    fail the current check when cond is false
//	client.log(...)                 write to the runner's log
//
//	response.status, response.body, response.headers.valueOf(name),
//	response.contentType.mimeType, response.jsonPath(path)
//
// Globals set by one script stay on the Runner and feed variable
// resolution for the requests that follow.
package script
