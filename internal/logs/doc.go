// Package logs reads the per-process JSON log files written by the dev
// processes: merging, filtering and time-ordering entries for the logs
// command, and streaming appended entries for follow mode.
package logs
