// Package services defines shared utilities consumed by the ingestion pipeline
// and the request layer.
//
// Key responsibilities:
//   - Context helpers that stamp survey identities, build run IDs, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (not found, extraction, validation, invalid input) with
//     errors.Is.
//
// Use these helpers when wiring new pipeline code so error handling and
// observability stay uniform.
package services
