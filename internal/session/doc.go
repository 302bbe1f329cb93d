// Package session implements the quiz state machine that drives a study
// session over a decrypted content package.
//
// An Engine moves through these states:
//
//	Empty -> Ready -> Answering <-> Revealed -> Completed
//
// Restart returns to Ready from any state. The engine owns its state; callers
// invoke operations and read snapshots or events, never fields directly.
// An Engine is not safe for concurrent use; callers that share one across
// goroutines must serialise access.
package session
