// Package notifications delivers pipeline events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. The Service interface covers the import milestones a headless
// offload box needs to report: card detected, import started, completed,
// failed, and cleanup warnings.
//
// Extend this package if you need alternative transports; pipeline code
// depends only on the Service interface.
package notifications
