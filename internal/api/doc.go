// Package api provides the transport-facing DTO layer and the ProgramService
// façade over the internal components. The daemon's HTTP handlers and the
// CLI consume this package rather than the internals directly.
package api
