package wipe

import (
	"crypto/rand"
	"fmt"
	"sync"
)

// BufferPool hands out chunk buffers by size class so the adaptive
// algorithm's varying chunk sizes do not churn allocations.
type BufferPool struct {
	pools map[int]*sync.Pool
	mu    sync.RWMutex
}

var globalBufferPool = &BufferPool{
	pools: make(map[int]*sync.Pool),
}

// GetBuffer returns a buffer of exactly size bytes from the pool.
func GetBuffer(size int) []byte {
	if size <= 0 {
		return nil
	}

	return globalBufferPool.getBuffer(size)
}

// PutBuffer returns a buffer to the pool.
func PutBuffer(buf []byte) {
	if cap(buf) == 0 {
		return
	}

	globalBufferPool.putBuffer(buf)
}

func (bp *BufferPool) getBuffer(size int) []byte {
	poolSize := bp.poolSize(size)

	bp.mu.RLock()
	pool, exists := bp.pools[poolSize]
	bp.mu.RUnlock()

	if !exists {
		bp.mu.Lock()
		pool, exists = bp.pools[poolSize]
		if !exists {
			pool = &sync.Pool{
				New: func() interface{} {
					b := make([]byte, poolSize)
					return &b
				},
			}
			bp.pools[poolSize] = pool
		}
		bp.mu.Unlock()
	}

	buf := *pool.Get().(*[]byte)
	return buf[:size]
}

func (bp *BufferPool) putBuffer(buf []byte) {
	capacity := cap(buf)
	poolSize := bp.poolSize(capacity)

	bp.mu.RLock()
	pool, exists := bp.pools[poolSize]
	bp.mu.RUnlock()

	if exists {
		full := buf[:capacity]
		pool.Put(&full)
	}
}

// poolSize picks the size class for a buffer: power-of-two classes from
// 1MB up to MaxChunkSize, 4KB-rounded above that.
func (bp *BufferPool) poolSize(size int) int {
	for poolSize := MinChunkSize; poolSize <= MaxChunkSize; poolSize *= 2 {
		if size <= poolSize {
			return poolSize
		}
	}

	return ((size + 4095) / 4096) * 4096
}

// FillRandom fills buf with cryptographically secure random data.
func FillRandom(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}

	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("random data generation failed: %w", err)
	}

	return nil
}
