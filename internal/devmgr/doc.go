// Package devmgr manages the long-running dev processes: the frontend
// bundler, the backend server and the openapi watcher. Each runs
// detached in its own session with its PID recorded in project.json,
// so start, stop and status work across apx invocations.
package devmgr
