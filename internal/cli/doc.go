// Package cli provides the interactive studysync command-line client.
//
// It wires configuration, the local SQLite store, the optional remote object
// store and the library, hub, response cache and page index services behind a
// small REPL. Remote problems never block the REPL: the prompt shows the
// passive sync status instead.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
