package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDedupByMessageID(t *testing.T) {
	store := NewMemoryDedupStore(time.Minute, 100)
	now := time.Now()

	require.False(t, store.Seen("55500", "hola", "wam-1", now))
	require.True(t, store.Seen("55500", "hola", "wam-1", now.Add(time.Second)))

	// Different message id from the same conversation is not a duplicate.
	require.False(t, store.Seen("55500", "hola", "wam-2", now.Add(2*time.Second)))

	// Same message id from a different conversation is not a duplicate.
	require.False(t, store.Seen("55501", "hola", "wam-1", now.Add(3*time.Second)))
}

func TestDedupByNormalizedTextWindow(t *testing.T) {
	store := NewMemoryDedupStore(time.Minute, 100)
	now := time.Now()

	require.False(t, store.Seen("55500", "Mi comercio está activo?", "", now))

	// Whitespace and case differences collapse to the same key.
	require.True(t, store.Seen("55500", "  mi COMERCIO   está activo? ", "", now.Add(time.Second)))

	// Same text outside the window is a fresh message.
	require.False(t, store.Seen("55500", "Mi comercio está activo?", "", now.Add(2*time.Minute)))

	// Same text from another conversation is independent.
	require.False(t, store.Seen("55501", "Mi comercio está activo?", "", now))
}

func TestDedupEmptyTextNeverDuplicate(t *testing.T) {
	store := NewMemoryDedupStore(time.Minute, 100)
	now := time.Now()

	require.False(t, store.Seen("55500", "", "", now))
	require.False(t, store.Seen("55500", "", "", now))
	require.False(t, store.Seen("55500", "   ", "", now))
}

func TestDedupEvictsOldestFirst(t *testing.T) {
	store := NewMemoryDedupStore(time.Minute, 3)
	now := time.Now()

	for i := 0; i < 5; i++ {
		require.False(t, store.Seen("55500", "x", fmt.Sprintf("wam-%d", i), now))
	}

	records := store.Snapshot()
	require.Len(t, records, 3)

	// Only the most recently inserted entries remain, in insertion order.
	require.Equal(t, "55500|id|wam-2", records[0].Key)
	require.Equal(t, "55500|id|wam-3", records[1].Key)
	require.Equal(t, "55500|id|wam-4", records[2].Key)

	// Evicted entries are forgotten.
	require.False(t, store.Seen("55500", "x", "wam-0", now))
	// Retained ones still match.
	require.True(t, store.Seen("55500", "x", "wam-4", now))
}

func TestDedupClear(t *testing.T) {
	store := NewMemoryDedupStore(time.Minute, 100)
	now := time.Now()

	require.False(t, store.Seen("55500", "hola", "wam-1", now))
	store.Clear()
	require.Empty(t, store.Snapshot())
	require.False(t, store.Seen("55500", "hola", "wam-1", now))
}

func TestDedupConcurrentCheckAndRecord(t *testing.T) {
	store := NewMemoryDedupStore(time.Minute, 1000)
	now := time.Now()

	const workers = 32
	var wg sync.WaitGroup
	fresh := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !store.Seen("55500", "hola", "wam-1", now) {
				fresh <- true
			}
		}()
	}
	wg.Wait()
	close(fresh)

	// Exactly one concurrent delivery observes the message as new.
	require.Len(t, fresh, 1)
}

func TestNormalizeText(t *testing.T) {
	require.Equal(t, "hola mundo", normalizeText("  Hola   MUNDO "))
	require.Equal(t, "", normalizeText("   "))
	require.Equal(t, "¿está activo?", normalizeText("¿Está\tActivo?"))
}
