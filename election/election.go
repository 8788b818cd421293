// Package election implements the active elections manager of spec.md
// §4.6: the process by which the network converges on one winning block
// per root through representative voting. Grounded on peers.Container's
// dual-index shape (a primary map keyed by the thing elections are
// rooted on, plus a secondary index for alternate lookups) and on
// alarm.Alarm for the periodic announcement worker. The per-voter
// cooldown admission gates on the voter's share of the online stake that
// onlinereps.Tracker reports.
package election

import (
	"sort"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/chratos-network/chratos/block"
	"github.com/chratos-network/chratos/numeric"
	"github.com/chratos-network/chratos/vote"
	"github.com/chratos-network/chratos/wire"
)

const (
	// maxCandidatesBeforeStakeGate is spec.md §4.6's "≥ 10 candidates"
	// publish threshold.
	maxCandidatesBeforeStakeGate = 10

	// candidateStakeGateBp is the 10% online-stake share (in basis
	// points) a would-be 11th-plus candidate must already hold in the
	// tally to still be admitted.
	candidateStakeGateBp = 1000

	// Vote admission cooldown thresholds, in basis points of online
	// stake, and the cooldown each band carries (spec.md §4.6).
	voteIgnoreBp      = 10  // < 0.1%: ignored entirely
	voteCooldownLowBp = 100 // 0.1%-1%: 15s
	voteCooldownMidBp = 500 // 1%-5%: 5s
	// >= 5%: 1s

	voteCooldownLow  = 15 * time.Second
	voteCooldownMid  = 5 * time.Second
	voteCooldownHigh = 1 * time.Second

	// announcementMin and announcementLong are spec.md §6's design-level
	// defaults.
	announcementMin  = 4
	announcementLong = 20

	selfVoteBatchSize     = 12
	confirmReqFanout      = 10
	confirmReqPoolSize    = 40
	confirmReqStagger     = 50 * time.Millisecond
	confirmReqRetryLimit  = 20
	tallyLogInterval      = 50
	abortCheckAnnounceMin = 3

	liveAnnounceInterval = 16000 * time.Millisecond
	testAnnounceInterval = 16 * time.Millisecond
)

// notAnAccount is the placeholder voter seeded at election start (spec.md
// §4.6: "last_votes[not_an_account] = (now, 0, primary.hash)"); its
// weight is always zero since no real representative key maps to it.
var notAnAccount = numeric.ZeroUint256

// Config holds the manager's tunables. OnlineWeightMinimum and
// OnlineWeightQuorumPercent are spec.md §4.6's online_weight_minimum and
// online_weight_quorum, left as node-supplied parameters since spec.md
// §6's design-level defaults list does not fix numeric values for them.
type Config struct {
	LiveNet                   bool
	OnlineWeightMinimum       numeric.Uint128
	OnlineWeightQuorumPercent uint64
}

func (c Config) announceInterval() time.Duration {
	if c.LiveNet {
		return liveAnnounceInterval
	}
	return testAnnounceInterval
}

// WeightFunc looks up an account's current ledger representative weight.
type WeightFunc func(account numeric.Uint256) numeric.Uint128

// OnlineStakeFunc returns the current online stake total
// (onlinereps.Tracker.OnlineStake).
type OnlineStakeFunc func() numeric.Uint128

// Representative is the shape the manager needs out of the peer
// container's representative index: enough to target a confirm_req and
// to judge whether it is worth reaching out to at all.
type Representative struct {
	Account  numeric.Uint256
	Weight   numeric.Uint128
	Endpoint wire.Endpoint
}

// RepresentativesFunc returns up to n representatives, weight-descending
// (peers.Container.Representatives).
type RepresentativesFunc func(n int) []Representative

// ForceFunc force-injects a block into the block processor so the ledger
// can reconcile around a new election winner (blockprocessor.Force).
type ForceFunc func(b block.Block)

// ConfirmFunc is the on_confirm callback a caller registers with Start,
// invoked exactly once when the election reaches quorum.
type ConfirmFunc func(winner block.Block)

// BroadcastFunc fans a message out to a random peer subset
// (peers.Container.ListFanout-sized broadcast).
type BroadcastFunc func(msg wire.Message)

// SendFunc unicasts a message to one peer.
type SendFunc func(to wire.Endpoint, msg wire.Message)

// SelfVoteFunc asks the node to sign and broadcast a vote bundling refs
// for every local representative key it holds. A node with no local
// representative keys may pass a no-op.
type SelfVoteFunc func(refs []vote.Ref)

// FitFunc reports whether b's predecessor/source is resolvable against
// the ledger, used to detect a winner that can never actually commit
// (spec.md §4.6: "current winner does not fit the ledger").
type FitFunc func(b block.Block) bool

type voterRecord struct {
	sequence uint64
	hash     numeric.Uint256
	heardAt  time.Time
}

type tallyEntry struct {
	hash   numeric.Uint256
	weight numeric.Uint128
}

// Election is a single live election rooted at root, tracking candidate
// blocks, per-voter last-votes, and the current tally (spec.md §4.6).
type Election struct {
	root       numeric.Uint256
	winner     block.Block
	candidates map[numeric.Uint256]block.Block
	lastVotes  map[numeric.Uint256]voterRecord
	lastTally  []tallyEntry

	announcements      int
	confirmReqRetries  int
	confirmed, aborted bool
	onConfirm          ConfirmFunc
}

// Manager is the active elections manager of spec.md §4.6.
type Manager struct {
	log *logrus.Entry
	cfg Config

	mu     sync.Mutex
	byRoot map[numeric.Uint256]*Election
	byHash map[numeric.Uint256]numeric.Uint256 // candidate hash -> root

	weight          WeightFunc
	onlineStake     OnlineStakeFunc
	representatives RepresentativesFunc
	force           ForceFunc
	broadcast       BroadcastFunc
	send            SendFunc
	selfVote        SelfVoteFunc
	fit             FitFunc
}

// New builds a Manager. Any collaborator func may be nil, in which case
// the behavior it drives is skipped.
func New(cfg Config, log *logrus.Entry, weight WeightFunc, onlineStake OnlineStakeFunc, representatives RepresentativesFunc, force ForceFunc, broadcast BroadcastFunc, send SendFunc, selfVote SelfVoteFunc, fit FitFunc) *Manager {
	if log == nil {
		l := logrus.New()
		log = logrus.NewEntry(l)
	}
	return &Manager{
		log:             log,
		cfg:             cfg,
		byRoot:          make(map[numeric.Uint256]*Election),
		byHash:          make(map[numeric.Uint256]numeric.Uint256),
		weight:          weight,
		onlineStake:     onlineStake,
		representatives: representatives,
		force:           force,
		broadcast:       broadcast,
		send:            send,
		selfVote:        selfVote,
		fit:             fit,
	}
}

// Start creates an election rooted at primary.Root() if none exists,
// seeded with primary as the current winner. It reports true ("rejected")
// when an election for that root already exists, in which case onConfirm
// and alternate are ignored.
func (m *Manager) Start(primary, alternate block.Block, onConfirm ConfirmFunc) (rejected bool) {
	root := primary.Root()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byRoot[root]; exists {
		return true
	}

	e := &Election{
		root:       root,
		winner:     primary,
		candidates: map[numeric.Uint256]block.Block{primary.Hash(): primary},
		lastVotes: map[numeric.Uint256]voterRecord{
			notAnAccount: {sequence: 0, hash: primary.Hash(), heardAt: time.Now()},
		},
		onConfirm: onConfirm,
	}
	m.byRoot[root] = e
	m.byHash[primary.Hash()] = root
	if alternate != nil && alternate.Hash() != primary.Hash() {
		e.candidates[alternate.Hash()] = alternate
		m.byHash[alternate.Hash()] = root
	}
	electionsActive.Inc()
	return false
}

// Publish offers b to the election rooted at b.Root(), reporting true
// ("dropped") if there is no such election, or if the election already
// holds maxCandidatesBeforeStakeGate candidates and b's own tallied
// share of online stake is below candidateStakeGateBp.
func (m *Manager) Publish(b block.Block) (dropped bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.byRoot[b.Root()]
	if !ok {
		return true
	}
	if _, already := e.candidates[b.Hash()]; already {
		return false
	}
	if len(e.candidates) >= maxCandidatesBeforeStakeGate {
		share := m.tallyShareBpLocked(e, b.Hash())
		if share < candidateStakeGateBp {
			return true
		}
	}
	e.candidates[b.Hash()] = b
	m.byHash[b.Hash()] = e.root
	return false
}

func (m *Manager) tallyShareBpLocked(e *Election, hash numeric.Uint256) uint64 {
	online := m.onlineStakeLocked()
	for _, t := range e.lastTally {
		if t.hash == hash {
			return shareBasisPoints(t.weight, online)
		}
	}
	return 0
}

// Vote routes v to the election(s) referenced by its bundle, by exact
// hash when a ref carries only a hash, or by the ref's own root when it
// carries a full block. It reports true ("replay") unless at least one
// referenced root's election accepted the vote.
func (m *Manager) Vote(v *vote.Vote) (replay bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	accepted := false
	for _, ref := range v.Refs {
		var e *Election
		if ref.Block != nil {
			e = m.byRoot[ref.Block.Root()]
		} else if root, ok := m.byHash[ref.Hash]; ok {
			e = m.byRoot[root]
		}
		if e == nil {
			continue
		}
		if m.voteLocked(e, v.Account, v.Sequence, ref.HashOf()) {
			accepted = true
		}
	}
	return !accepted
}

func (m *Manager) voteLocked(e *Election, account numeric.Uint256, sequence uint64, hash numeric.Uint256) bool {
	weight := m.weightLocked(account)
	share := shareBasisPoints(weight, m.onlineStakeLocked())
	if share < voteIgnoreBp {
		return false
	}
	cooldown := cooldownFor(share)

	existing, known := e.lastVotes[account]
	now := time.Now()
	if known {
		if now.Sub(existing.heardAt) < cooldown {
			return false
		}
		if !vote.Supersedes(sequence, hash, existing.sequence, existing.hash) {
			return false
		}
	}

	e.lastVotes[account] = voterRecord{sequence: sequence, hash: hash, heardAt: now}
	if !e.confirmed {
		m.retallyLocked(e)
	}
	return true
}

func cooldownFor(shareBp uint64) time.Duration {
	switch {
	case shareBp < voteCooldownLowBp:
		return voteCooldownLow
	case shareBp < voteCooldownMidBp:
		return voteCooldownMid
	default:
		return voteCooldownHigh
	}
}

func (m *Manager) weightLocked(account numeric.Uint256) numeric.Uint128 {
	if m.weight == nil {
		return numeric.ZeroUint128
	}
	return m.weight(account)
}

func (m *Manager) onlineStakeLocked() numeric.Uint128 {
	if m.onlineStake == nil {
		return numeric.ZeroUint128
	}
	return m.onlineStake()
}

// retallyLocked groups e's last-votes by hash, sums ledger weight per
// group, and replaces the winner when the tallied leader differs and
// crosses online_weight_minimum. It then checks quorum (spec.md §4.6).
func (m *Manager) retallyLocked(e *Election) {
	sums := make(map[numeric.Uint256]numeric.Uint128)
	for account, rec := range e.lastVotes {
		sums[rec.hash] = saturatingAddUint128(sums[rec.hash], m.weightLocked(account))
	}

	tally := make([]tallyEntry, 0, len(sums))
	var total numeric.Uint128
	for hash, w := range sums {
		tally = append(tally, tallyEntry{hash: hash, weight: w})
		total = saturatingAddUint128(total, w)
	}
	sort.Slice(tally, func(i, j int) bool {
		if c := tally[i].weight.Cmp(tally[j].weight); c != 0 {
			return c > 0
		}
		return tally[i].hash.Cmp(tally[j].hash) > 0
	})
	e.lastTally = tally

	if len(tally) > 0 && total.Cmp(m.cfg.OnlineWeightMinimum) >= 0 {
		if cand, ok := e.candidates[tally[0].hash]; ok && tally[0].hash != e.winner.Hash() {
			e.winner = cand
			if m.force != nil {
				m.force(cand)
			}
		}
	}

	online := m.onlineStakeLocked()
	delta := bpOfUint128(online, m.cfg.OnlineWeightQuorumPercent*100)
	quorum := len(tally) == 1
	if len(tally) >= 2 {
		margin := tally[0].weight
		if margin.Cmp(tally[1].weight) > 0 {
			remainder := margin.Sub(tally[1].weight)
			quorum = remainder.Cmp(delta) > 0
		}
	}
	if quorum && len(tally) > 0 && !e.confirmed {
		e.confirmed = true
		confirmedTotal.Inc()
		if e.onConfirm != nil {
			e.onConfirm(e.winner)
		}
	}
}

// Erase removes the election rooted at b.Root(), used by the
// block-processor rollback path (spec.md §4.6).
func (m *Manager) Erase(b block.Block) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eraseLocked(b.Root())
}

func (m *Manager) eraseLocked(root numeric.Uint256) {
	e, ok := m.byRoot[root]
	if !ok {
		return
	}
	for hash := range e.candidates {
		delete(m.byHash, hash)
	}
	delete(m.byRoot, root)
	electionsActive.Dec()
}

// Active reports whether an election is live for b.Root().
func (m *Manager) Active(b block.Block) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byRoot[b.Root()]
	return ok
}

func shareBasisPoints(weight, onlineStake numeric.Uint128) uint64 {
	if onlineStake.IsZero() {
		return 10000
	}
	num := new(uint256.Int).Mul(weight.Big(), uint256.NewInt(10000))
	q := new(uint256.Int).Div(num, onlineStake.Big())
	if !q.IsUint64() {
		return ^uint64(0)
	}
	return q.Uint64()
}

// bpOfUint128 returns v * bp / 10000, used for the quorum delta
// (online_stake * online_weight_quorum / 100, expressed here in basis
// points so bp = quorumPercent*100).
func bpOfUint128(v numeric.Uint128, bp uint64) numeric.Uint128 {
	q := new(uint256.Int).Mul(v.Big(), uint256.NewInt(bp))
	q.Div(q, uint256.NewInt(10000))
	return numeric.Uint128FromBig(q)
}

func saturatingAddUint128(a, b numeric.Uint128) numeric.Uint128 {
	sum := a.Big()
	sum.Add(sum, b.Big())
	max := new(uint256.Int).Not(uint256.NewInt(0))
	max.Rsh(max, 128)
	if sum.Cmp(max) > 0 {
		return numeric.Uint128FromBig(max)
	}
	return numeric.Uint128FromBig(sum)
}
