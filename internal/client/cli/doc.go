// Package cli provides the interactive KnowBrain command-line client.
//
// It wires configuration, the HTTP gateway, the push event channel, and an
// interactive REPL over the note services. Typical flow: try to restore the
// previous session from the refresh cookie, then execute user commands.
//
// Key features:
//   - Register / Login / Logout
//   - List, open, create, delete and full-text search notes
//   - An editing mode whose keystrokes are persisted by debounced autosave
//   - Live updates from other sessions applied to the local views
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
