// Package journal persists the run history and the cleanup audit trail in a
// local SQLite database. Every import records what was moved, where it went,
// and how it ended; deletions on the card are journaled before the first
// unlink so an interrupted cleanup can always be reconstructed.
package journal
