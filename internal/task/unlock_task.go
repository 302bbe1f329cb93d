package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-vault/internal/domain"
)

// Decrypter opens a container.
type Decrypter interface {
	Decrypt(blob []byte, password string) ([]byte, error)
}

// ContentParser turns plaintext into cards.
type ContentParser interface {
	Parse(data []byte) (*domain.ContentPackage, error)
}

// UnlockResult is delivered once per UnlockTask. Exactly one of Package and
// Err is set.
type UnlockResult struct {
	TaskID  uuid.UUID
	Attempt uint64
	Package *domain.ContentPackage
	Err     error
}

// UnlockTask decrypts a container and parses its content in one step, so a
// caller only ever sees a complete package or an error.
type UnlockTask struct {
	id        uuid.UUID
	attempt   uint64
	blob      []byte
	password  string
	decrypter Decrypter
	parser    ContentParser

	mu     sync.Mutex
	status TaskStatus
	result chan UnlockResult
}

// NewUnlockTask creates a pending unlock task. attempt is an opaque sequence
// number echoed back in the result.
func NewUnlockTask(attempt uint64, blob []byte, password string, decrypter Decrypter, parser ContentParser) *UnlockTask {
	return &UnlockTask{
		id:        uuid.New(),
		attempt:   attempt,
		blob:      blob,
		password:  password,
		decrypter: decrypter,
		parser:    parser,
		status:    TaskStatusPending,
		result:    make(chan UnlockResult, 1),
	}
}

// ID implements Task.
func (t *UnlockTask) ID() uuid.UUID {
	return t.id
}

// Type implements Task.
func (t *UnlockTask) Type() string {
	return TaskTypeUnlock
}

// Attempt returns the sequence number the task was created with.
func (t *UnlockTask) Attempt() uint64 {
	return t.attempt
}

// Status implements Task.
func (t *UnlockTask) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Result returns the channel that receives the task's single result.
func (t *UnlockTask) Result() <-chan UnlockResult {
	return t.result
}

// Execute implements Task. The error it returns is the same one delivered on
// the result channel.
func (t *UnlockTask) Execute(ctx context.Context) error {
	t.setStatus(TaskStatusProcessing)

	res := UnlockResult{TaskID: t.id, Attempt: t.attempt}
	res.Package, res.Err = t.safeUnlock()

	// The password is no longer needed once the key is derived
	t.password = ""

	if res.Err != nil {
		t.setStatus(TaskStatusFailed)
	} else {
		t.setStatus(TaskStatusCompleted)
	}

	t.result <- res
	return res.Err
}

// safeUnlock turns a panic into an error so the result channel is always fed.
func (t *UnlockTask) safeUnlock() (pkg *domain.ContentPackage, err error) {
	defer func() {
		if r := recover(); r != nil {
			pkg, err = nil, fmt.Errorf("unlock panicked: %v", r)
		}
	}()
	return t.unlock()
}

func (t *UnlockTask) unlock() (*domain.ContentPackage, error) {
	plaintext, err := t.decrypter.Decrypt(t.blob, t.password)
	if err != nil {
		return nil, fmt.Errorf("decrypt container: %w", err)
	}
	defer clear(plaintext)

	pkg, err := t.parser.Parse(plaintext)
	if err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}
	return pkg, nil
}

func (t *UnlockTask) setStatus(status TaskStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
}
