// Package tracker correlates assembly source files with their
// destinations in a previously built image and detects which of them
// changed since the last check.
//
// A build is registered with [Tracker.Record], which resolves the
// assembly a second time under the tracking pass and snapshots every
// source file. Subsequent [Tracker.Changed] calls re-examine the
// sources and report the entries whose content differs, refreshing the
// stored snapshots so each change is reported once. The changed entries
// can then be staged into a small incremental archive with
// [ChangedFilesArchive] for upload into a running container.
package tracker
