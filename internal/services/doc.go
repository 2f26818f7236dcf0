// Package services defines shared utilities consumed across the program
// core: context helpers that stamp client IDs and stage numbers for logging,
// plus structured error markers and the Wrap helper that keep failure
// classification uniform across the gate, lifecycle, and generation layers.
package services
