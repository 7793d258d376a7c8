// Package rng hands out named, seeded random streams.
//
// Every stream is derived from one base seed plus a name, so two runs with
// the same seed see identical sequences no matter in which order the streams
// are first requested.
package rng

import (
	"hash/fnv"
	"math/rand"
	"sync"
	"time"
)

type Mode int

const (
	Deterministic Mode = iota
	Real
)

// Factory caches one *rand.Rand per stream name. The returned streams are
// not safe for concurrent use; hand each goroutine its own name.
type Factory struct {
	baseSeed int64
	mode     Mode

	mu      sync.Mutex
	streams map[string]*rand.Rand
}

func New(mode Mode, seed int64) *Factory {
	if mode == Real {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		baseSeed: seed,
		mode:     mode,
		streams:  make(map[string]*rand.Rand),
	}
}

// Seed returns the base seed the factory derives streams from.
func (f *Factory) Seed() int64 {
	return f.baseSeed
}

// R returns the named stream, creating it on first use.
func (f *Factory) R(name string) *rand.Rand {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r, ok := f.streams[name]; ok {
		return r
	}
	r := rand.New(rand.NewSource(DeriveSeed(f.baseSeed, name)))
	f.streams[name] = r
	return r
}

// Fresh returns a new stream for name without caching it. Two calls with the
// same name start from the same state.
func (f *Factory) Fresh(name string) *rand.Rand {
	return rand.New(rand.NewSource(DeriveSeed(f.baseSeed, name)))
}

// DeriveSeed mixes a stream name into a base seed.
func DeriveSeed(base int64, name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64()) ^ base
}
