package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMutualExclusionPerKey(t *testing.T) {
	km := New()

	const workers = 32
	const iterations = 200
	var countA, countB int

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		key := "a"
		counter := &countA
		if i%2 == 1 {
			key = "b"
			counter = &countB
		}
		wg.Add(1)
		go func(key string, counter *int) {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				km.Lock(key)
				*counter++
				km.Unlock(key)
			}
		}(key, counter)
	}
	wg.Wait()

	require.Equal(t, workers/2*iterations, countA)
	require.Equal(t, workers/2*iterations, countB)
}

func TestEntriesAreReleased(t *testing.T) {
	km := New()
	km.Lock("order-1")
	km.Unlock("order-1")

	km.mu.Lock()
	defer km.mu.Unlock()
	require.Empty(t, km.locks)
}

func TestUnlockUnheldPanics(t *testing.T) {
	km := New()
	require.Panics(t, func() { km.Unlock("missing") })
}
