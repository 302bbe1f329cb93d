// Package redact strips secrets from strings before they are logged or
// returned in error responses: passwords, derived keys, container bytes
// rendered as hex, file paths and stack traces.
package redact

import (
	"log/slog"
	"regexp"
)

// Constants for redaction placeholders
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
)

type rule struct {
	pattern     *regexp.Regexp
	placeholder string
}

// Applied in order; credential rules run before path rules so a password
// that looks like a path is reported as a credential.
var rules = []rule{
	// password=..., passphrase: ..., pwd ...
	{
		regexp.MustCompile(`(?i)(password|passphrase|passwd|pwd)([=:\s]+['"]?)[^'"&\s]{1,}`),
		"${1}${2}" + RedactedCredentialPlaceholder,
	},
	// key=..., secret: ..., token ...
	{
		regexp.MustCompile(`(?i)\b(key|secret|token)(['"\s:=]+)[A-Za-z0-9_\-.~+/=]{8,}`),
		"${1}${2}" + RedactedKeyPlaceholder,
	},
	// 128 bits or more of bare hex: derived keys, IVs, tags, ciphertext dumps
	{
		regexp.MustCompile(`\b[0-9a-fA-F]{32,}\b`),
		RedactedKeyPlaceholder,
	},
	{
		regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`),
		"[STACK_TRACE_REDACTED]",
	},
	{
		regexp.MustCompile(`(/[\w.-]+){2,}`),
		RedactedPathPlaceholder,
	},
	{
		regexp.MustCompile(`[A-Za-z]:\\[^\\]+(\\[^\\\s]+)+`),
		RedactedPathPlaceholder,
	},
}

// String redacts sensitive information from the input string
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.placeholder)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output
func Error(err error) string {
	if err == nil {
		return ""
	}

	return String(err.Error())
}

// ErrorAttr returns a redacted "error" attribute for structured logging.
func ErrorAttr(err error) slog.Attr {
	return slog.String("error", Error(err))
}
