// Package logging wires log/slog with cadence conventions: console and JSON
// handlers, multi-destination writers (stdout plus the log directory), attr
// helpers, and context carriage for client/stage/correlation fields.
package logging
