// Package collision enforces per-profile, per-import-date uniqueness of the
// destination day-folder.
//
// Camera filename counters recycle across shoots, so merging into an existing
// day-folder risks silent overwrite; the detector fails closed instead. The
// day-folder is checked in every candidate destination root (network store
// and local staging) because routing picks between them after this gate. An
// advisory flock on each root narrows, but does not arbitrate, the race of
// two simultaneous runs targeting the same profile and date.
package collision
