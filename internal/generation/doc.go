// Package generation orchestrates document creation for the delivery
// program: it assembles prompts from the client profile and stage
// curriculum, calls the configured provider, stores the produced content,
// and records each version through the document lifecycle.
//
// A stage run walks its five slots in order with a configurable pause
// between provider calls; a failed slot is reported in the run result and
// the remaining slots still generate. Generation for a client is serialized:
// a second request while one is running is rejected as busy.
package generation
