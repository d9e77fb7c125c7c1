// Package cli provides the interactive tabchat command-line client.
//
// It wires configuration, the local queue database, the remote document
// store and an interactive REPL that keeps working offline. Typical flow:
// restore or prompt for credentials, start the background connectivity
// monitor, and execute user commands.
//
// Key features:
//   - Login / Register / Logout against the auth collaborator
//   - Conversation directory with live net balances
//   - Chat loop sending texts and signed amounts ("lunch +20")
//   - Friend management and profile updates
//   - Manual sync of queued operations
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
