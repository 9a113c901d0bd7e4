package lock

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTakeAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.lock")
	f := New(path, "test artifact")

	require.NoError(t, f.Take())
	_, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, f.ReleaseAndKillRefresher())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRefreshUpdatesTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.lock")
	f := New(path, "test artifact")
	require.NoError(t, f.Take())
	defer f.ReleaseAndKillRefresher()

	first, err := os.ReadFile(path)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, f.Refresh())

	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, string(first), string(second))
}

func TestTakeAndSpawnRefresherSerializesAccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.lock")

	var mu sync.Mutex
	var activeCount, maxActive int
	var wg sync.WaitGroup

	critical := func() {
		f := New(path, "shared artifact")
		require.NoError(t, f.TakeAndSpawnRefresher())
		defer f.ReleaseAndKillRefresher()

		mu.Lock()
		activeCount++
		if activeCount > maxActive {
			maxActive = activeCount
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		activeCount--
		mu.Unlock()
	}

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			critical()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive, "only one goroutine should hold the lock at a time")
}

func TestWithLockReleasesOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.lock")

	err := WithLock(path, "test artifact", func() error {
		return assert.AnError
	})
	assert.Equal(t, assert.AnError, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
