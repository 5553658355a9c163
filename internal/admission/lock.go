package admission

import (
	"sync"
)

// LockTable is the per-principal login lock. At most one admission pipeline
// may hold an account's lock at a time; it guards Presence and capability
// grant mutation.
type LockTable struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLockTable() *LockTable {
	return &LockTable{held: make(map[string]struct{})}
}

// TryAcquire takes the account's lock. The returned release is idempotent
// and must be called on every exit path; callers defer it immediately.
func (t *LockTable) TryAcquire(principal string) (release func(), ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.held[principal]; busy {
		return nil, false
	}
	t.held[principal] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.held, principal)
			t.mu.Unlock()
		})
	}, true
}

// Held reports whether the account's lock is currently taken.
func (t *LockTable) Held(principal string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.held[principal]
	return ok
}
