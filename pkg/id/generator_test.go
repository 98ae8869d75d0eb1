package id_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/identra/pkg/id"
)

func TestNextIsUniqueAndOrdered(t *testing.T) {
	gen := id.NewGenerator()

	prev := ""
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		next, err := gen.Next()
		require.NoError(t, err)
		require.Len(t, next, 26)

		_, dup := seen[next]
		require.False(t, dup, "duplicate id %s", next)
		seen[next] = struct{}{}

		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestNextConcurrent(t *testing.T) {
	gen := id.NewGenerator()

	const workers = 8
	const perWorker = 200

	var mu sync.Mutex
	seen := make(map[string]struct{})

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				next, err := gen.Next()
				if err != nil {
					t.Error(err)
					return
				}
				mu.Lock()
				seen[next] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}
