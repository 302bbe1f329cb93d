// Package producer builds encrypted flashcard containers from plaintext JSON.
//
// It backs the encrypt command: read the source document, optionally check
// that it parses as a card deck, encrypt it with the container codec and
// write the result next to the study client as a static asset.
package producer
