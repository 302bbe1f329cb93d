// Package content turns decrypted container bytes into a validated
// domain.ContentPackage. Parsing is all-or-nothing: any violation yields a
// domain.FormatError naming the offending field and no package at all.
package content
