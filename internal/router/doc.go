// Package router decides where a run's files land: the primary network
// store when it is reachable, or the local staging directory as a fallback.
// The decision is made once per run and never changes mid-transfer. When
// neither destination is usable the run fails before any file is copied.
package router
