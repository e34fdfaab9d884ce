// Package snapshot persists the registry directory to SQLite.
//
// Store writes and reads a complete registry.State; each save replaces the
// previous snapshot in one transaction. Saver watches the directory's dirty
// flag and saves on an interval and once more at shutdown. The state is
// always copied on the execution loop, so a save never observes a
// half-applied mutation and never mutates the directory.
package snapshot
