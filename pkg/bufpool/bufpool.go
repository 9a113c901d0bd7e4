// Package bufpool provides reusable scratch buffers for
// internal/nfsclient's streaming READ/WRITE hot path, grounded on the
// teacher's own tiered buffer pool (pkg/bufpool) but trimmed to the
// one size class ampm's transport actually requests:
// internal/nfsclient.DefaultChunkSize (32 KiB). The configured chunk
// size may be anything up to 1 GiB and the adaptive retry policy
// shrinks it at runtime (down to 1 KiB), so Get falls back to a direct allocation outside the
// pooled size rather than adding size tiers nothing in this module
// calls with.
package bufpool

import "sync"

// PoolSize is the only pooled buffer size, matching
// internal/nfsclient.DefaultChunkSize.
const PoolSize = 32 << 10

var pool = sync.Pool{
	New: func() any {
		buf := make([]byte, PoolSize)
		return &buf
	},
}

// Get returns a byte slice of at least size bytes. Requests at or
// under PoolSize are served from the pool; larger requests are
// allocated directly so the pool never retains an oversized buffer.
func Get(size int) []byte {
	if size > PoolSize {
		return make([]byte, size)
	}
	bufPtr := pool.Get().(*[]byte)
	return (*bufPtr)[:size]
}

// Put returns buf to the pool if it has PoolSize capacity; anything
// else (including nil and oversized buffers from Get) is left for the
// garbage collector.
func Put(buf []byte) {
	if buf == nil || cap(buf) != PoolSize {
		return
	}
	full := buf[:PoolSize]
	pool.Put(&full)
}
