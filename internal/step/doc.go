// Package step defines the unit of work executed by the build pipeline.
//
// A [Spec] is a named action: either a shell command string, interpreted
// by the process supervisor, or a callback invoked in-process by the
// runner. Specs are immutable once constructed and run strictly in the
// order they were registered — the pipeline never reorders or
// parallelizes them.
package step
