// Package project owns the on-disk project state: the .apx dot
// directory with its project.json record (application id, dev process
// registry), the app.yaml deployment manifest, and the artifact staging
// step that assembles a deployable .build directory.
package project
