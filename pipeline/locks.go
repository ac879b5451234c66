package pipeline

import "sync"

// policyLocks is the advisory lock set guaranteeing at most one in-flight
// pipeline run per policy number. Locks are acquired without blocking; a
// failed acquisition means another run already holds the policy.
type policyLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newPolicyLocks() *policyLocks {
	return &policyLocks{held: make(map[string]struct{})}
}

// TryAcquire acquires the lock for policyNumber if it is free.
// Returns false without blocking when the policy is already held.
func (l *policyLocks) TryAcquire(policyNumber string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.held[policyNumber]; taken {
		return false
	}
	l.held[policyNumber] = struct{}{}
	return true
}

// Release frees the lock for policyNumber. Releasing an unheld lock is a
// no-op.
func (l *policyLocks) Release(policyNumber string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, policyNumber)
}

// Held reports whether the policy is currently locked.
func (l *policyLocks) Held(policyNumber string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, taken := l.held[policyNumber]
	return taken
}
