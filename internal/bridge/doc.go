// Package bridge manages language server subprocesses and exposes each one
// over a loopback TCP listener.
//
// A Supervisor keeps a registry of running instances keyed by language and
// project root. Starting an instance spawns the configured server process,
// binds an ephemeral loopback port, and relays framed protocol traffic
// between the process's stdio and every connected TCP client. Server output
// is broadcast to all clients; client input is forwarded to the process.
//
// There is no automatic restart. When a process dies or a pipe breaks, the
// instance is torn down and removed from the registry so the next request
// for that language and root starts fresh.
package bridge
