// Package codegen builds the API client-generation steps: an external
// schema generator that writes a machine-readable API description, and
// a client generator that consumes it. The client generator is keyed
// through the change cache so an unchanged schema skips the (slow)
// generation entirely.
package codegen
