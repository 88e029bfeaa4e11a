// Package supervisor launches shell-command pipeline steps as child OS
// processes and owns their termination.
//
// Every command runs in its own process group so that a termination
// signal reaches descendants the command may have spawned (negative-PID
// delivery on POSIX). Graceful termination sends SIGTERM to the group
// and escalates to SIGKILL when the signal cannot be delivered.
//
// A signal-terminated exit is deliberately not an error: shutdown kills
// its own children, and an intentional stop must never surface as a
// pipeline failure. Each [Supervisor.Run] invocation settles through
// exactly one code path — the exit handler — even when a termination
// signal arrives mid-execution.
package supervisor
