// Package daemon coordinates the long-running cadence process.
//
// It wires configuration, the store, the webhook dispatcher, the generation
// orchestrator, and the scoring engine into a single lifecycle with
// flock-based locking to prevent multiple instances, serves the HTTP API the
// excluded dashboard consumes, and runs the periodic score sweep.
//
// Keep orchestration logic here: the state machines live in their own
// packages while the daemon focuses on startup, shutdown, and transport.
package daemon
