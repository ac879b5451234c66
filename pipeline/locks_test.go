package pipeline

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyLocks(t *testing.T) {
	locks := newPolicyLocks()

	assert.True(t, locks.TryAcquire("POL-1"))
	assert.True(t, locks.Held("POL-1"))
	assert.False(t, locks.TryAcquire("POL-1"))

	assert.True(t, locks.TryAcquire("POL-2"), "different policies do not contend")

	locks.Release("POL-1")
	assert.False(t, locks.Held("POL-1"))
	assert.True(t, locks.TryAcquire("POL-1"))

	// Releasing an unheld lock is a no-op.
	locks.Release("POL-404")
}

func TestPolicyLocksSingleWinner(t *testing.T) {
	locks := newPolicyLocks()

	const contenders = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if locks.TryAcquire("POL-1") {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}
