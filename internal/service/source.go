package service

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrContainerMissing indicates the configured container file does not exist.
var ErrContainerMissing = errors.New("container not found")

// ContainerSource supplies the raw bytes of an encrypted container.
type ContainerSource interface {
	Load(ctx context.Context) ([]byte, error)
}

// FileSource reads the container from disk on every Load, so a container
// replaced by the producer is picked up without a restart.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the file the source reads.
func (s *FileSource) Path() string {
	return s.path
}

// Load implements ContainerSource.
func (s *FileSource) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrContainerMissing, s.path)
		}
		return nil, fmt.Errorf("read container %s: %w", s.path, err)
	}
	return data, nil
}

// StaticSource serves a fixed container held in memory. It is test support
// for callers that need a ContainerSource without a file.
type StaticSource []byte

// Load implements ContainerSource.
func (s StaticSource) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]byte(nil), s...), nil
}
