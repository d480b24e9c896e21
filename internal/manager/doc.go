// Package manager owns generation jobs from submission to eviction. It is
// structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: Config and package defaults; New applies defaults.
//   - types.go: job records and the read-only Job snapshot.
//   - errors.go: error types and helpers (IsJobNotFound, IsEngineNotReady, IsValidation).
//   - request.go: request defaults and bounds checks.
//   - admission.go: bounded concurrency for running generations.
//   - submit.go: Submit, including request dedup.
//   - execute.go: the per-job worker driving the backend.
//   - progress.go: monotonic progress sink handed to the backend.
//   - evict.go: retention sweep and the background sweeper loop.
//   - status_report.go: job status reporting.
//   - models.go: model loading, listing, samplers and health.
//   - events.go, eventpub_memory.go: lifecycle events.
//   - metrics.go: Prometheus collectors.
//
// External packages should treat this package as the orchestration layer and
// use public methods only. Internal types are subject to change.
package manager
