// Package blockarrival implements the "locally observed" gating of
// spec.md §4.4: a bounded set of recently arrived block hashes that seeds
// whether an election starts eagerly for a freshly committed block.
package blockarrival

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/chratos-network/chratos/numeric"
)

const (
	// arrivalSizeMin is the floor below which the age-based eviction
	// sweep in recent() never runs, per spec.md §4.4.
	arrivalSizeMin = 4096
	// arrivalTimeMin bounds how long a hash is considered "recent".
	arrivalTimeMin = 5 * time.Minute
	// cacheCapacity bounds worst-case memory independent of the age
	// sweep, backed by an LRU so the oldest entry is evicted on overflow
	// even if recent() hasn't run in a while.
	cacheCapacity = 65536
)

// Set is the bounded recency set described in spec.md §4.4.
type Set struct {
	mu       sync.Mutex
	cache    *lru.Cache[numeric.Uint256, time.Time]
	sizeMin  int
	timeMin  time.Duration
}

// New builds an empty arrival set using the spec.md §4.4 defaults.
func New() *Set {
	cache, err := lru.New[numeric.Uint256, time.Time](cacheCapacity)
	if err != nil {
		// lru.New only errors on a non-positive size, which cacheCapacity
		// never is; a panic here would indicate a programming mistake.
		panic(err)
	}
	return &Set{cache: cache, sizeMin: arrivalSizeMin, timeMin: arrivalTimeMin}
}

// Add records hash as just-arrived, returning true when it was already
// present (spec.md §4.4: "add(hash) returns true when the hash was
// already present").
func (s *Set) Add(hash numeric.Uint256) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.cache.Get(hash)
	s.cache.Add(hash, time.Now())
	return existed
}

// Recent reports whether hash is in the set, first evicting entries older
// than arrivalTimeMin provided the set is larger than arrivalSizeMin
// (spec.md §4.4).
func (s *Set) Recent(hash numeric.Uint256) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache.Len() > s.sizeMin {
		s.evictOldLocked()
	}
	_, ok := s.cache.Get(hash)
	return ok
}

func (s *Set) evictOldLocked() {
	cutoff := time.Now().Add(-s.timeMin)
	for _, key := range s.cache.Keys() {
		arrivedAt, ok := s.cache.Peek(key)
		if !ok {
			continue
		}
		if arrivedAt.Before(cutoff) {
			s.cache.Remove(key)
		}
	}
}

// Len reports the number of tracked hashes.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}
