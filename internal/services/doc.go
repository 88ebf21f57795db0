// Package services defines shared utilities consumed by the workflow stage
// handlers and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp queue item IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Sentinel error markers plus the Wrap helper that carry stage context
//     through failures and classify them for reporting.
//   - The Details extractor that turns any stage failure into the structured
//     record the workflow manager logs and persists.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability) stays uniform across the pipeline.
package services
