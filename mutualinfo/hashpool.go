// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mutualinfo

import (
	"crypto/md5"
	"hash"
	"sync/atomic"
)

// HashPool is a fixed-size pool of MD5 hashers used by the whole-trace
// and trace-prefix analyzers for chained hashing. Acquire blocks while
// the pool is exhausted. Hashers are handed out first-in, first-out:
// Acquire returns the hasher that has been in the pool longest, not the
// one most recently released. Grounded in the acquire/release accounting
// style of other_examples' generic object pool (bifrost's
// pool_debug.go), traded down from sync.Pool (which has no hard size
// cap) to a buffered channel acting as both free list and semaphore.
type HashPool struct {
	free     chan hash.Hash
	acquired atomic.Int64
	released atomic.Int64
}

// NewHashPool returns a pool of size hashers, matching the compress
// stage's configured parallelism.
func NewHashPool(size int) *HashPool {
	p := &HashPool{free: make(chan hash.Hash, size)}
	for i := 0; i < size; i++ {
		p.free <- md5.New()
	}
	return p
}

// Acquire blocks until a hasher is available, then returns it reset to
// its zero state.
func (p *HashPool) Acquire() hash.Hash {
	h := <-p.free
	h.Reset()
	p.acquired.Add(1)
	return h
}

// Release returns a hasher to the pool.
func (p *HashPool) Release(h hash.Hash) {
	p.released.Add(1)
	p.free <- h
}

// Stats reports the lifetime acquire/release counts, for tests and
// diagnostics.
func (p *HashPool) Stats() (acquired, released int64) {
	return p.acquired.Load(), p.released.Load()
}
