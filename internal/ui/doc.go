// Package ui provides helpers for formatting human-readable console output.
//
// The helpers translate git command events and publish step progress into
// concise messages while detailed telemetry keeps flowing through structured
// loggers.
package ui
