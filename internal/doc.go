// Package internal contains the implementation packages for stitch.
//
// # Package Organization
//
//   - assembler: Variant discovery and standalone document assembly
//   - source: Filesystem access for fragments and outputs (afero backed)
//   - manifest: Project version lookup from package.json, YAML or TOML
//   - config: Configuration loading, defaults and validation
//   - report: Text, JSON and YAML rendering of build reports
//   - watcher: Debounced filesystem watching for rebuilds
//   - errors: Structured error types with stable codes
//   - logging: Structured logging on log/slog
//   - version: Build information for the binary itself
//
// The assembler depends only on small interfaces (Source, OutputWriter) so
// that every other package can be swapped out in tests.
package internal
