// Package tui holds the interactive terminal views. The tail view
// renders the merged dev-process log stream with per-process colored
// prefixes.
package tui
