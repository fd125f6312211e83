package lock

import (
	"context"
	"sync"

	"github.com/lorrc/ticket-workflow/internal/core/ports"
)

// LocalRunLock serializes runs within one process. It is used when no Redis
// address is configured.
type LocalRunLock struct {
	mu sync.Mutex
}

var _ ports.RunLock = (*LocalRunLock)(nil)

// NewLocalRunLock creates an unlocked process-local lock.
func NewLocalRunLock() *LocalRunLock {
	return &LocalRunLock{}
}

func (l *LocalRunLock) TryAcquire(context.Context) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, true, nil
}
