// Package bundler binds the pipeline runner to the host bundler's
// lifecycle events.
//
// The event names and their firing order are owned by the host tool:
// configResolved, devServerStarting, devServerClosed, buildStarting,
// fileChanged, bundleWritten, bundleClosed. The [Adapter] translates
// each into the corresponding runner, guard or cache operation and is
// the only place that knows the mapping.
//
// The package also provides a filesystem [Watcher] that feeds
// fileChanged events from fsnotify when the host tool does not supply
// its own change stream.
package bundler
