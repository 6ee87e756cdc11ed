// Package identify classifies a mounted volume into a known camera profile.
//
// Profiles are evaluated in declaration order. Structural folder signatures
// are checked first and any missing required signature rejects the profile
// outright. Profiles that survive the structural gate are scored against
// metadata sampled from the first media files of their photo sources; the
// first profile whose accumulated confidence crosses the configured threshold
// wins. No partial match is ever accepted as an identification.
package identify
