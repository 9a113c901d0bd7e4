// Package lock implements the cross-process lockfile used to
// serialize concurrent downloads/uploads of the same artifact,
// grounded on ampm/utils.py's LockFile class: an exclusive-create
// lockfile holding a heartbeat timestamp, with stale-lock detection
// when the timestamp stops advancing.
package lock

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Wazzaps/ampm/internal/logger"
)

const (
	// heartbeatInterval matches the original's 1-second refresh cadence.
	heartbeatInterval = time.Second

	// staleStrikes matches the original's "after about 10 seconds...
	// force unlocking" policy (20 strikes at ~0.5s poll interval).
	staleStrikes = 20

	pollIntervalBase = 500 * time.Millisecond
	pollIntervalJitter = 250 * time.Millisecond
)

// File is a cross-process, heartbeat-backed lockfile. The zero value
// is not usable; construct with New.
type File struct {
	path        string
	description string

	mu       sync.Mutex
	handle   *os.File
	stop     chan struct{}
	stopped  chan struct{}
}

// New returns a lockfile at path, described by description for the
// "waiting for lockfile" progress messages.
func New(path, description string) *File {
	return &File{path: path, description: description}
}

// Take acquires the lockfile, creating it exclusively and writing an
// initial heartbeat. If another live process holds it, Take blocks,
// polling at ~0.5s intervals (matching the original's jittered sleep)
// until the lock is released or is judged abandoned (its timestamp
// has not advanced for staleStrikes consecutive polls), at which
// point Take force-removes it and retries.
func (f *File) Take() error {
	waitedFor := 0.0
	for {
		if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
			return fmt.Errorf("lock: create lock directory: %w", err)
		}

		handle, err := os.OpenFile(f.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			f.mu.Lock()
			f.handle = handle
			f.mu.Unlock()
			return f.Refresh()
		}
		if !os.IsExist(err) {
			return fmt.Errorf("lock: create %s: %w", f.path, err)
		}

		strikes := 0
		lastLockTime := ""
		for {
			data, readErr := os.ReadFile(f.path)
			if os.IsNotExist(readErr) {
				break // lockfile was deleted, we can take it
			}
			if readErr != nil {
				return fmt.Errorf("lock: read %s: %w", f.path, readErr)
			}

			newLockTime := string(data)
			if newLockTime != lastLockTime {
				lastLockTime = newLockTime
				strikes = 0
			} else {
				strikes++
				if strikes >= staleStrikes {
					logger.Infof("lock holder for %s seems to be dead, force unlocking", f.description)
					_ = os.Remove(f.path)
					break
				}
			}

			logger.Infof("[%0.1fs] waiting for lockfile on %s", waitedFor, f.description)
			wait := pollIntervalBase + time.Duration(rand.Int63n(int64(pollIntervalJitter)))
			time.Sleep(wait)
			waitedFor += wait.Seconds()
		}
	}
}

// Refresh overwrites the lockfile's contents with the current
// heartbeat timestamp. It panics if called before Take succeeds,
// mirroring the original's `assert self.lockfile`.
func (f *File) Refresh() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handle == nil {
		panic("lock: Refresh called before Take")
	}
	if _, err := f.handle.Seek(0, 0); err != nil {
		return err
	}
	if err := f.handle.Truncate(0); err != nil {
		return err
	}
	stamp := fmt.Sprintf("%0.2f", float64(time.Now().UnixNano())/1e9)
	if _, err := f.handle.WriteString(stamp); err != nil {
		return err
	}
	return f.handle.Sync()
}

// TakeAndSpawnRefresher acquires the lock and starts a background
// goroutine that refreshes the heartbeat every heartbeatInterval,
// mirroring take_and_spawn_refresher's daemon thread.
func (f *File) TakeAndSpawnRefresher() error {
	if err := f.Take(); err != nil {
		return err
	}

	f.stop = make(chan struct{})
	f.stopped = make(chan struct{})
	go func() {
		defer close(f.stopped)
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-f.stop:
				return
			case <-ticker.C:
				if err := f.Refresh(); err != nil {
					logger.Warnf("lock: heartbeat refresh failed for %s: %v", f.description, err)
				}
			}
		}
	}()
	return nil
}

// ReleaseAndKillRefresher stops the heartbeat goroutine and releases
// the lock, removing the lockfile.
func (f *File) ReleaseAndKillRefresher() error {
	if f.stop != nil {
		close(f.stop)
		<-f.stopped
	}

	f.mu.Lock()
	handle := f.handle
	f.handle = nil
	f.mu.Unlock()

	if handle != nil {
		_ = handle.Close()
	}
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lock: remove %s: %w", f.path, err)
	}
	return nil
}

// WithLock takes the lock, spawns the heartbeat refresher, runs fn,
// and unconditionally releases the lock afterward — the Go analogue
// of the original's `with LockFile(...):` context manager.
func WithLock(path, description string, fn func() error) error {
	f := New(path, description)
	if err := f.TakeAndSpawnRefresher(); err != nil {
		return err
	}
	defer func() {
		if err := f.ReleaseAndKillRefresher(); err != nil {
			logger.Warnf("lock: release failed for %s: %v", description, err)
		}
	}()
	return fn()
}
