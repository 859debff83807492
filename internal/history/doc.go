// Package history stores recorded timelines in SQLite and serves them over
// HTTP in the shape the replay engine consumes.
package history
