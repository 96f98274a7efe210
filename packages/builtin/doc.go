// Package builtin provides the dynamic variables available in request
// files.
//
// Dynamic variables are written {{$name}} and are computed each time they
// are resolved:
//   - $uuid, $random.uuid: a random UUID v4
//   - $timestamp: current Unix timestamp
//   - $isoTimestamp: current time in ISO 8601 format (UTC)
//   - $randomInt, $random.integer(from, to): random integer, default [0, 1000)
//   - $random.float(from, to): random float
//   - $random.email: random e-mail address
//   - $random.alphabetic(n), $random.alphanumeric(n), $random.hexadecimal(n)
//   - $processEnv.NAME: the NAME variable of the process environment
package builtin
