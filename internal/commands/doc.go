// Package commands is the entry point used by the CLI and the HTTP server.
//
// Every method of [Commands] returns a [Response] envelope and never an error. Downstream errors are turned
// into messages here and nowhere else: a rate-limit rejection becomes a wait message, anything else keeps
// its raw text. Partial failures of bulk operations are not errors; they travel inside Data with Success set.
package commands
