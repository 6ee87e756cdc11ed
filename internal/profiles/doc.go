// Package profiles defines camera profiles and loads their YAML declarations.
//
// A profile describes how to recognize one camera model (structural folder
// signatures plus metadata patterns) and which subtrees of its media hold
// photos and videos. Profiles are immutable once loaded and shared read-only
// by the identifier and the transfer executor.
package profiles
