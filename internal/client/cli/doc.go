// Package cli is the vault command-line client.
//
// NewRootCmd builds a cobra command tree (status, setup, login, logout,
// change-password, reset, backup, restore, stats, version). Commands that
// need a session resume a remembered one with the local password or fall
// back to a full login. Without a subcommand, or after login, an
// interactive shell runs with the idle auto-lock and a background
// connectivity watcher.
package cli
