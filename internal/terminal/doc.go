// Package terminal runs a study session over a line-oriented text stream.
//
// It is the command-line counterpart of the HTTP API: it unlocks the
// container with a password read from the input, then drives a session
// engine one command per line until the user quits or the input ends.
package terminal
