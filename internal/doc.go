// Package internal contains the core implementation packages for cae.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - segment: Rendered-text units (content leaves, composites, appendables)
//   - parser: Template parsing and reconstruction from trace metadata
//   - strategy: Reuse of previous segments across generation runs
//   - engine: Templates, variable filling, nesting and appending
//   - trace: Per-file and per-run trace models and their wire form
//   - guidance: Rule-based violation detection in free-edit regions
//   - recipe: Declarative generation recipes driving the engine
//   - store: Persistence of generated files and their trace metadata
//   - watcher: File system monitoring with debouncing
//   - config, logging, errors, validation, version: Ambient support
//
// # Inter-Package Communication
//
//   - Parser builds segment trees; the engine asks a strategy for the
//     segments of the previous run before parsing fresh ones
//   - Templates record their roots and traces in a FileTraceModel, which
//     reports (model, file) pairs to the TraceModel of the run
//   - Store reloads a FileTraceModel through the parser for the next run
//     and for guidance checks
//   - Watcher batches file changes and the check command re-runs guidance
//
// The core packages (segment through guidance) perform no I/O. They accept
// a logging.Logger through options and default to a no-op logger.
package internal
