// Package logging builds the slog loggers used across the offload pipeline
// and standardizes the structured field names attached to pipeline events.
package logging
