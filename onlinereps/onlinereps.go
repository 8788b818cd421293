// Package onlinereps implements the rolling representative-liveness
// tracker of spec.md §4.9: a set of (representative, last_heard) pairs
// plus a cached online stake total.
package onlinereps

import (
	"sync"
	"time"

	"github.com/chratos-network/chratos/numeric"
	"github.com/chratos-network/chratos/vote"
)

// cutoff is the liveness window: representatives not heard within cutoff
// are evicted (spec.md §4.9, sharing the period/cutoff design-level
// defaults of spec.md §6).
const cutoff = 5 * time.Minute

// recomputeInterval is how often the background task recomputes the
// online stake total from the authoritative ledger weights, protecting
// against drift (spec.md §4.9).
const recomputeInterval = 5 * time.Minute

// WeightFunc looks up an account's current ledger representative weight.
type WeightFunc func(account numeric.Uint256) numeric.Uint128

// Tracker is the online representatives set of spec.md §4.9.
type Tracker struct {
	mu         sync.Mutex
	lastHeard  map[numeric.Uint256]time.Time
	totalStake numeric.Uint128
	weightOf   WeightFunc
	minimum    numeric.Uint128

	stop chan struct{}
	done chan struct{}
}

// New builds a Tracker. onlineWeightMinimum is the floor OnlineStake()
// never returns below (spec.md §4.9: "online_stake() returns
// max(online_stake_total, online_weight_minimum)").
func New(weightOf WeightFunc, onlineWeightMinimum numeric.Uint128) *Tracker {
	return &Tracker{
		lastHeard: make(map[numeric.Uint256]time.Time),
		weightOf:  weightOf,
		minimum:   onlineWeightMinimum,
	}
}

// Vote evicts representatives not heard from within cutoff (deducting
// their weight, clamped at zero), then inserts or refreshes the sender's
// entry, adding its weight (saturating at the maximum 128-bit value).
func (t *Tracker) Vote(v *vote.Vote) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for account, last := range t.lastHeard {
		if now.Sub(last) > cutoff {
			delete(t.lastHeard, account)
			t.totalStake = saturatingSub(t.totalStake, t.weightOf(account))
		}
	}

	if _, known := t.lastHeard[v.Account]; !known {
		t.totalStake = saturatingAdd(t.totalStake, t.weightOf(v.Account))
	}
	t.lastHeard[v.Account] = now
}

// OnlineStake returns max(online_stake_total, online_weight_minimum).
func (t *Tracker) OnlineStake() numeric.Uint128 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.totalStake.Cmp(t.minimum) < 0 {
		return t.minimum
	}
	return t.totalStake
}

// Count reports the number of representatives currently considered
// online.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lastHeard)
}

// Recompute recomputes totalStake from scratch using the authoritative
// ledger weights, correcting for any drift accumulated through repeated
// saturating add/sub.
func (t *Tracker) Recompute() {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := numeric.ZeroUint128
	for account := range t.lastHeard {
		total = saturatingAdd(total, t.weightOf(account))
	}
	t.totalStake = total
}

// StartBackgroundRecompute launches the 5-minute drift-correction task
// described in spec.md §4.9, returning a stop function.
func (t *Tracker) StartBackgroundRecompute() (stop func()) {
	t.stop = make(chan struct{})
	t.done = make(chan struct{})

	go func() {
		defer close(t.done)
		ticker := time.NewTicker(recomputeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.Recompute()
			case <-t.stop:
				return
			}
		}
	}()

	return func() {
		close(t.stop)
		<-t.done
	}
}

func saturatingAdd(a, b numeric.Uint128) numeric.Uint128 {
	sum := a.Big()
	sum.Add(sum, b.Big())
	if sum.Cmp(maxUint128()) > 0 {
		return numeric.Uint128FromBig(maxUint128())
	}
	return numeric.Uint128FromBig(sum)
}

func saturatingSub(a, b numeric.Uint128) numeric.Uint128 {
	if b.Cmp(a) >= 0 {
		return numeric.ZeroUint128
	}
	return a.Sub(b)
}
