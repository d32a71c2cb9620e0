package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCreatesOnFirstUse(t *testing.T) {
	store := NewStore(10, time.Minute)

	m := store.Get("conv-1")
	require.NotNil(t, m)
	assert.Equal(t, 0, m.Len())
}

func TestGetReturnsSameManager(t *testing.T) {
	store := NewStore(10, time.Minute)

	store.RecordExchange("conv-1", "Hvordan virker COAX?", "Den varmer vann direkte.")
	m := store.Get("conv-1")
	assert.Equal(t, 1, m.Len())
}

func TestConversationsAreIsolated(t *testing.T) {
	store := NewStore(10, time.Minute)

	store.RecordExchange("conv-1", "spørsmål", "svar")
	assert.Equal(t, 1, store.Get("conv-1").Len())
	assert.Equal(t, 0, store.Get("conv-2").Len())
}

func TestConcurrentFirstUseSettlesOnOneManager(t *testing.T) {
	store := NewStore(10, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.RecordExchange("conv-1", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
		}(i)
	}
	wg.Wait()

	// No exchange may be lost to a create race on first use.
	assert.Equal(t, 5, store.Get("conv-1").Len())
}

func TestHistoryCapacityApplied(t *testing.T) {
	store := NewStore(2, time.Minute)

	store.RecordExchange("conv-1", "a", "b")
	store.RecordExchange("conv-1", "c", "d")
	store.RecordExchange("conv-1", "e", "f")
	assert.Equal(t, 2, store.Get("conv-1").Len())
}
