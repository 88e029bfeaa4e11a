// Package logging provides structured logging for apx dev sessions.
// It wraps Go's log/slog package to produce JSON-formatted log files,
// one per managed process, so that `apx dev logs` can merge and filter
// them after the fact.
package logging
