// Package gate enforces the ordered stage gates of the delivery program.
//
// A client moves through the stages strictly in order: a stage opens only
// when its predecessor is completed, and a stage completes only when all of
// its document slots reach approval. The controller serializes gate
// mutations per client and emits stage.unlocked and stage.completed events
// as transitions happen.
package gate
