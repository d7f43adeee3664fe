// Package infra contains the technical adapters: solver processes,
// instance files, result sinks and logging. These packages depend only on
// the types and interfaces defined in the core packages.
package infra
