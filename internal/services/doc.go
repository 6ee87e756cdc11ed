// Package services defines shared helpers consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers and stage names for logging.
//   - Structured error markers plus the Wrap helper that map failures onto
//     the pipeline's failure taxonomy.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retry decisions) stays uniform across the
// pipeline.
package services
