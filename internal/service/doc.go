// Package service holds the study use cases. It reads containers from a
// ContainerSource, unlocks them on the task worker pool through an Unlocker,
// and keeps live quiz sessions in memory behind the StudyService interface.
//
// Sessions are never persisted. Each one wraps a session.Engine and is
// serialised by its own mutex, so concurrent requests against different
// sessions do not contend.
package service
