// Package events provides types and interfaces for observing study sessions.
//
// The session engine emits an Event for every state transition. Presentation
// adapters and diagnostics register handlers instead of reading engine
// internals, which keeps the engine the only writer of session state.
//
// The primary components are:
// - Event: a transition record with a JSON payload
// - EventHandler: interface for components that consume events
// - EventEmitter: interface for components that publish events
package events
