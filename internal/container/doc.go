// Package container implements the encrypted quiz container shared by the
// offline producer and the study-time consumer.
//
// A container is a flat byte sequence with no header:
//
//	offset 0        : IV, 16 bytes
//	offset 16..N-16 : ciphertext
//	offset N-16..N  : GCM authentication tag, 16 bytes
//
// The key is derived with PBKDF2-HMAC-SHA-256 over a fixed salt. Any two
// implementations that use DefaultKeyParams derive byte-identical keys, so a
// container written by one can be opened by the other.
package container
