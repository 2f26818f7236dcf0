// Package lifecycle moves documents through their review states: generated,
// sent, viewed, revision-requested, approved.
//
// Mutations are gated on the stage being active and are idempotent where the
// state allows it: first-entry timestamps (sent, viewed, approved) are set
// once and never rewritten, repeated revision requests replace the notes
// without emitting duplicate events, and re-approving an approved document is
// a no-op. An approval evaluates the stage for completion as its final step.
package lifecycle
