// Package cmd implements the httpcst CLI commands using Cobra.
//
// Available commands:
//   - parse: Print the syntax tree of request files
//   - validate: Check request files for syntax errors, optionally on change
//   - list: Display the requests defined in files
//   - run: Send the requests of files in order
//   - bench: Send the requests of a file under load
//   - index, catalog: Record requests in a SQLite catalog and query it
//   - diff: Compare two JSON run results
//   - init: Write a config file and an example request file
//   - version: Show version information
//
// Flags fall back to HTTPCST_* environment variables and then to the
// config file.
package cmd
