// Package cmap contains a thread-safe sharded map.
// It backs the target database, which is written while BUILD files are evaluated and
// read by everything that walks the graph afterwards.
package cmap

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultShardCount is a reasonable default shard count for large maps.
const DefaultShardCount = 1 << 6

// A Map is the top-level map type. All functions on it are threadsafe.
// It should be constructed via New() rather than creating an instance directly.
type Map[K comparable, V any] struct {
	shards []shard[K, V]
	hasher func(K) uint64
	mask   uint64
}

// New creates a new Map using the given hasher to hash items in it.
// The shard count must be a power of 2; it will panic if not.
func New[K comparable, V any](shardCount uint64, hasher func(K) uint64) *Map[K, V] {
	mask := shardCount - 1
	if shardCount == 0 || (shardCount&mask) != 0 {
		panic(fmt.Sprintf("Shard count %d is not a power of 2", shardCount))
	}
	m := &Map[K, V]{
		shards: make([]shard[K, V], shardCount),
		mask:   mask,
		hasher: hasher,
	}
	for i := range m.shards {
		m.shards[i].m = map[K]V{}
	}
	return m
}

// Add inserts the item if the key isn't already present.
// It returns true if the item was inserted, false if it already existed (in which case it won't be inserted)
func (m *Map[K, V]) Add(key K, val V) bool {
	return m.shard(key).Add(key, val)
}

// Get returns the value for a key, or the zero value if it isn't present.
func (m *Map[K, V]) Get(key K) V {
	return m.shard(key).Get(key)
}

// Values returns a slice of all the current values in the map.
// No particular ordering or consistency guarantees are made.
func (m *Map[K, V]) Values() []V {
	ret := []V{}
	for i := range m.shards {
		ret = append(ret, m.shards[i].Values()...)
	}
	return ret
}

// Len returns the number of items in the map.
func (m *Map[K, V]) Len() int {
	n := 0
	for i := range m.shards {
		n += m.shards[i].Len()
	}
	return n
}

func (m *Map[K, V]) shard(key K) *shard[K, V] {
	return &m.shards[m.hasher(key)&m.mask]
}

// A shard is one of the individual shards of a map.
type shard[K comparable, V any] struct {
	m map[K]V
	l sync.RWMutex
}

func (s *shard[K, V]) Add(key K, val V) bool {
	s.l.Lock()
	defer s.l.Unlock()
	if _, present := s.m[key]; present {
		return false
	}
	s.m[key] = val
	return true
}

func (s *shard[K, V]) Get(key K) V {
	s.l.RLock()
	defer s.l.RUnlock()
	return s.m[key]
}

func (s *shard[K, V]) Values() []V {
	s.l.RLock()
	defer s.l.RUnlock()
	ret := make([]V, 0, len(s.m))
	for _, v := range s.m {
		ret = append(ret, v)
	}
	return ret
}

func (s *shard[K, V]) Len() int {
	s.l.RLock()
	defer s.l.RUnlock()
	return len(s.m)
}

// XXHashes calculates the xxHash of a series of strings, eg. the parts of a composite key.
// Each string is separated from the next so ("ab", "c") and ("a", "bc") hash differently.
func XXHashes(s ...string) uint64 {
	d := xxhash.New()
	for _, x := range s {
		d.WriteString(x)
		d.Write([]byte{0})
	}
	return d.Sum64()
}
