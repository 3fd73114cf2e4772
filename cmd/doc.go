// Package cmd provides the command-line interface for stitch.
//
// This package implements all CLI commands using the Cobra framework.
//
// # Available Commands
//
//   - init: Write a default .stitch.yml and create the source directories
//   - build: Build one standalone file per variant
//   - list: List discovered variants and their output names
//   - watch: Rebuild all variants whenever a fragment changes
//   - version: Show version information for the binary
//
// # Command Examples
//
//	// Build every variant into dist/
//	stitch build
//
//	// Attempt every variant even after a failure, with a JSON summary
//	stitch build --keep-going --report json
//
//	// List variants as YAML
//	stitch list --format yaml
//
//	// Watch and rebuild on changes
//	stitch watch --debounce 500ms
//
// # Configuration Integration
//
// Configuration is resolved with the following precedence:
//
//  1. Command-line flags (--output, --keep-going, etc.) - highest priority
//  2. Individual environment variables (STITCH_OUTPUT_DIR, etc.)
//  3. Configuration file (.stitch.yml, or the file named by --config or
//     STITCH_CONFIG_FILE)
//  4. Default values - lowest priority
//
// Environment variables follow the STITCH_<SECTION>_<OPTION> pattern, for
// example STITCH_SOURCE_VARIANTS_DIR or STITCH_BUILD_KEEP_GOING. List values
// such as STITCH_SOURCE_SHARED are comma separated.
//
// # Exit Status
//
// A command exits non-zero when configuration is invalid, the manifest
// cannot be read, or any variant fails or is skipped.
package cmd
