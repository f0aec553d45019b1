package services

import "sync"

// AccountLocks serializes mutations per account. Different accounts proceed in
// parallel; two operations on the same account never overlap. All services
// mutating accounts must share one registry.
type AccountLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewAccountLocks() *AccountLocks {
	return &AccountLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for an account and returns the unlock function.
func (l *AccountLocks) Lock(accountID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[accountID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
