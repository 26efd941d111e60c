// Package cli constructs the publish command-line interface, wiring the
// Cobra command, configuration loader, and structured logging primitives.
// It exposes helpers to build reusable application instances and to execute
// the publish command as a library.
package cli
