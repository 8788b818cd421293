// Package gapcache implements the bootstrap-trigger cache of spec.md
// §4.8: recently seen orphan blocks plus the voters observed for them,
// used to decide when missing history is worth pulling via bootstrap.
package gapcache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/holiman/uint256"

	"github.com/chratos-network/chratos/alarm"
	"github.com/chratos-network/chratos/numeric"
	"github.com/chratos-network/chratos/vote"
)

// bootstrapFractionNumerator is the spec.md §4.8 default: a block
// bootstraps once cumulative voter weight exceeds
// online_stake * numerator / 256.
const bootstrapFractionNumerator = 128 // one half

const defaultCapacity = 8192

// entry is one cached orphan block plus the voters seen for it.
type entry struct {
	hash    numeric.Uint256
	arrival time.Time
	voters  map[numeric.Uint256]struct{}
}

// WeightFunc looks up an account's ledger representative weight.
type WeightFunc func(account numeric.Uint256) numeric.Uint128

// OnlineStakeFunc returns the current online stake total.
type OnlineStakeFunc func() numeric.Uint128

// HasBlockFunc reports whether hash is already committed to the ledger.
type HasBlockFunc func(hash numeric.Uint256) bool

// BootstrapFunc triggers a bootstrap attempt for the peer/root associated
// with hash. What "bootstrap" means (batch history download) is out of
// scope per spec.md §1; this is the hook the node wires to it.
type BootstrapFunc func(hash numeric.Uint256)

// Cache is the gap cache of spec.md §4.8.
type Cache struct {
	mu    sync.Mutex
	cache *lru.Cache[numeric.Uint256, *entry]

	weight       WeightFunc
	onlineStake  OnlineStakeFunc
	hasBlock     HasBlockFunc
	bootstrap    BootstrapFunc
	alarmClock   *alarm.Alarm
	bootstrapDelay time.Duration
}

// Config configures the live/test-net bootstrap delay (spec.md §4.8:
// "5 s on live net, 5 ms on test net").
type Config struct {
	LiveNet bool
}

// New builds a gap cache. alarmClock schedules the delayed bootstrap
// check; weight, onlineStake, hasBlock, and bootstrap are collaborators
// supplied by the node (ledger weights, online-reps tracker, ledger
// lookup, and the bootstrap subsystem, respectively).
func New(cfg Config, alarmClock *alarm.Alarm, weight WeightFunc, onlineStake OnlineStakeFunc, hasBlock HasBlockFunc, bootstrap BootstrapFunc) *Cache {
	c, err := lru.New[numeric.Uint256, *entry](defaultCapacity)
	if err != nil {
		panic(err)
	}
	delay := 5 * time.Second
	if !cfg.LiveNet {
		delay = 5 * time.Millisecond
	}
	return &Cache{
		cache:          c,
		weight:         weight,
		onlineStake:    onlineStake,
		hasBlock:       hasBlock,
		bootstrap:      bootstrap,
		alarmClock:     alarmClock,
		bootstrapDelay: delay,
	}
}

// Add records hash as a recently seen orphan. On re-add, only the arrival
// timestamp is refreshed (spec.md §4.8).
func (c *Cache) Add(hash numeric.Uint256) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.cache.Get(hash); ok {
		e.arrival = time.Now()
		return
	}
	c.cache.Add(hash, &entry{hash: hash, arrival: time.Now(), voters: make(map[numeric.Uint256]struct{})})
}

// Vote intersects v's referenced hashes with the cache; for each hit it
// records the voter and, once cumulative voter weight crosses the
// bootstrap threshold, schedules a delayed bootstrap check (spec.md
// §4.8).
func (c *Cache) Vote(v *vote.Vote) {
	c.mu.Lock()
	var triggered []numeric.Uint256
	for _, ref := range v.Refs {
		hash := ref.HashOf()
		e, ok := c.cache.Get(hash)
		if !ok {
			continue
		}
		e.voters[v.Account] = struct{}{}
		if c.cumulativeWeightLocked(e) {
			triggered = append(triggered, hash)
		}
	}
	c.mu.Unlock()

	for _, hash := range triggered {
		h := hash
		c.alarmClock.Add(time.Now().Add(c.bootstrapDelay), func() {
			if !c.hasBlock(h) {
				c.bootstrap(h)
			}
		})
	}
}

// cumulativeWeightLocked reports whether e's voters collectively exceed
// online_stake * bootstrapFractionNumerator / 256. Must be called with
// c.mu held.
func (c *Cache) cumulativeWeightLocked(e *entry) bool {
	total := new(uint256.Int)
	for account := range e.voters {
		total.Add(total, c.weight(account).Big())
	}

	threshold := new(uint256.Int).Mul(c.onlineStake().Big(), uint256.NewInt(bootstrapFractionNumerator))
	threshold.Div(threshold, uint256.NewInt(256))

	return total.Cmp(threshold) > 0
}

// Len reports the number of cached orphan entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}

// Contains reports whether hash is currently cached.
func (c *Cache) Contains(hash numeric.Uint256) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Contains(hash)
}
