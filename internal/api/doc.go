// Package api exposes study sessions over HTTP. Handlers decode and validate
// requests, call the study service and map its errors to status codes and
// messages that never reveal why an unlock failed.
package api
