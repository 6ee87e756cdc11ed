// Package scan enumerates and digests the media files of an import run.
//
// The transfer executor and the integrity verifier both consume this package
// so inclusion semantics (registered subtrees, allowed extensions, hidden
// entry exclusion) are identical on the two sides of a comparison. Filesystem
// access goes through afero so tests can run against in-memory trees.
package scan
