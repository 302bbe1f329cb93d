// Package domain contains the core entities of the quiz: cards, the content
// package produced by a successful unlock, and the error taxonomy shared by
// the codec, the parser and the session engine. It is independent of any
// storage, transport or presentation concern.
package domain
