// Package task runs slow work off the caller's goroutine. Its main job is
// unlocking a container: PBKDF2 key derivation with 100,000 iterations is the
// only latency-significant step in a study session, so it runs on a small
// worker pool while the caller stays responsive.
package task
