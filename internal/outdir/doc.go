// Package outdir keeps the pipeline's output directory in a usable state.
//
// The [Guard] idempotently creates the directory and drops a .gitignore
// marker inside it so generated artifacts never end up in version
// control. It is invoked defensively before and after every pipeline
// step because the bundler or the OS may delete the directory between
// calls. Guard failures are logged and swallowed — directory bookkeeping
// must never fail an otherwise-successful build.
package outdir
