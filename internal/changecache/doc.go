// Package changecache lets expensive codegen steps skip work when their
// input file has not changed since the last successful run.
//
// The [Cache] keeps an in-memory map of input path to sha256 content
// hash. A hit is only valid when the freshly computed hash of the
// current file content equals the stored one, and callers must commit a
// hash only after the dependent action succeeds — otherwise a failed
// run could mask a real change on the next pass. The cache is volatile:
// it lives for the process lifetime and is never persisted.
package changecache
