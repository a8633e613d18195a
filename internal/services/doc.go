// Package services defines shared utilities consumed by the pipeline stages
// and the remote service clients.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, stage names, and the video URL
//     for logging.
//   - Structured error markers plus the Wrap helper that let the pipeline
//     translate stage failures into a small set of outward error kinds.
//   - StatusError, the provider-neutral shape of a failed remote call, which
//     the analysis stage inspects to decide whether to retry.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
