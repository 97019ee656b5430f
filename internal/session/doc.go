// Package session implements the editor-facing protocol client.
//
// A Session owns one framed connection to a language server, usually a
// bridge instance's loopback port. It performs the initialize handshake,
// correlates requests with responses, keeps open documents in sync with
// debounced whole-document updates, and exposes capability-gated feature
// providers (completion, hover, definition, references, symbols, rename,
// formatting, code actions, signature help).
//
// The editing surface talks to the session exclusively in 1-based line
// and column coordinates; the session converts to and from the protocol's
// 0-based UTF-16 positions at the boundary.
package session
