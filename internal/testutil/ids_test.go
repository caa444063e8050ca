package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/northwind/internal/model"
)

func TestDeterministicIDs_StartsAtZero(t *testing.T) {
	ids := NewDeterministicIDs()
	assert.Equal(t, int64(0), ids.Current())
}

func TestDeterministicIDs_NextIsMonotonic(t *testing.T) {
	ids := NewDeterministicIDs()

	assert.Equal(t, model.ID("00000000-0000-7000-8000-000000000001"), ids.Next())
	assert.Equal(t, model.ID("00000000-0000-7000-8000-000000000002"), ids.Next())
	assert.Equal(t, int64(2), ids.Current())
	assert.Less(t, string(SeqID(9)), string(SeqID(10)))
}

func TestDeterministicIDs_Reset(t *testing.T) {
	ids := NewDeterministicIDs()
	ids.Next()
	ids.Next()

	ids.Reset()
	assert.Equal(t, int64(0), ids.Current())
	assert.Equal(t, SeqID(1), ids.Next())
}

func TestDeterministicIDs_ConcurrentAccess(t *testing.T) {
	ids := NewDeterministicIDs()
	const goroutines = 50

	var wg sync.WaitGroup
	seen := make(chan model.ID, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- ids.Next()
		}()
	}
	wg.Wait()
	close(seen)

	unique := map[model.ID]bool{}
	for id := range seen {
		unique[id] = true
	}
	assert.Len(t, unique, goroutines)
	assert.Equal(t, int64(goroutines), ids.Current())
}
