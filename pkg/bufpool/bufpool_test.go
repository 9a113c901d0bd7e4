package bufpool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPooledSize(t *testing.T) {
	buf := Get(100)
	defer Put(buf)

	assert.Len(t, buf, 100)
	assert.Equal(t, PoolSize, cap(buf))
}

func TestGetExactPoolSize(t *testing.T) {
	buf := Get(PoolSize)
	defer Put(buf)

	assert.Len(t, buf, PoolSize)
	assert.Equal(t, PoolSize, cap(buf))
}

func TestGetOversized(t *testing.T) {
	buf := Get(PoolSize + 1)
	defer Put(buf)

	assert.Len(t, buf, PoolSize+1)
	assert.Equal(t, PoolSize+1, cap(buf))
}

func TestGetZero(t *testing.T) {
	buf := Get(0)
	defer Put(buf)

	assert.NotNil(t, buf)
	assert.Equal(t, PoolSize, cap(buf))
}

func TestPutNilDoesNotPanic(t *testing.T) {
	require.NotPanics(t, func() {
		Put(nil)
	})
}

func TestPutOversizedIsNotPooled(t *testing.T) {
	oversized := Get(PoolSize * 4)
	require.NotPanics(t, func() {
		Put(oversized)
	})
}

func TestReusesReturnedBuffer(t *testing.T) {
	buf1 := Get(1024)
	Put(buf1)

	buf2 := Get(1024)
	defer Put(buf2)

	assert.Equal(t, PoolSize, cap(buf2))
}

func TestConcurrentGetAndPut(t *testing.T) {
	const numGoroutines = 10
	const iterations = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				size := (id*100 + j) % (PoolSize * 2)
				buf := Get(size)
				if len(buf) > 0 {
					buf[0] = byte(id)
				}
				Put(buf)
			}
		}(i)
	}

	wg.Wait()
}

func BenchmarkGet(b *testing.B) {
	for i := 0; i < b.N; i++ {
		buf := Get(PoolSize)
		Put(buf)
	}
}

func BenchmarkGetParallel(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			buf := Get(PoolSize)
			Put(buf)
		}
	})
}
