package election

import (
	"time"

	"github.com/chratos-network/chratos/alarm"
	"github.com/chratos-network/chratos/numeric"
	"github.com/chratos-network/chratos/vote"
	"github.com/chratos-network/chratos/wire"
)

// StartAnnouncing schedules the announcement loop of spec.md §4.6 on
// clock, re-scheduling itself every announceInterval until clock is
// stopped. clock is expected to be shared with the rest of the node's
// scheduled work (spec.md §5: "A dedicated worker for the alarm").
func (m *Manager) StartAnnouncing(clock *alarm.Alarm) {
	var tick func()
	tick = func() {
		m.announceAll()
		clock.Add(time.Now().Add(m.cfg.announceInterval()), tick)
	}
	clock.Add(time.Now().Add(m.cfg.announceInterval()), tick)
}

// announceAll runs one pass of the announcement loop over every live
// election, then batches self-votes for the roots that were
// rebroadcast this pass into bundles of selfVoteBatchSize (spec.md §4.6:
// "self-vote (batched in bundles of 12 hashes)").
func (m *Manager) announceAll() {
	m.mu.Lock()
	live := make([]*Election, 0, len(m.byRoot))
	for _, e := range m.byRoot {
		live = append(live, e)
	}
	m.mu.Unlock()

	var batch []vote.Ref
	for _, e := range live {
		if hash, ok := m.announceOne(e); ok {
			batch = append(batch, vote.Ref{Hash: hash})
			if len(batch) == selfVoteBatchSize {
				m.selfVoteBatch(batch)
				batch = nil
			}
		}
	}
	if len(batch) > 0 {
		m.selfVoteBatch(batch)
	}
}

func (m *Manager) selfVoteBatch(refs []vote.Ref) {
	if m.selfVote != nil {
		m.selfVote(refs)
	}
}

// announceOne advances e by one announcement pass, returning the
// winner's hash and true when it was rebroadcast this pass (so
// announceAll can fold it into the self-vote batch).
func (m *Manager) announceOne(e *Election) (winnerHash numeric.Uint256, rebroadcast bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.announcements++

	if (e.confirmed || e.aborted) && e.announcements >= announcementMin-1 {
		m.eraseLocked(e.root)
		return numeric.Uint256{}, false
	}

	longPass := e.announcements <= announcementLong || e.announcements%announcementLong == 0
	if longPass {
		if m.broadcast != nil {
			m.broadcast(&wire.Publish{Block: e.winner})
		}
		rebroadcast = true
		winnerHash = e.winner.Hash()

		if e.announcements%4 == 0 {
			m.sendConfirmReqsLocked(e)
		}
	}

	if e.announcements > abortCheckAnnounceMin && m.fit != nil && !m.fit(e.winner) {
		e.aborted = true
	}

	if e.announcements > announcementLong && e.announcements%tallyLogInterval == 0 {
		m.log.WithField("root", e.root.Hex()).WithField("tally", e.lastTally).Debug("election tally")
	}

	return winnerHash, rebroadcast
}

// sendConfirmReqsLocked implements spec.md §4.6's every-fourth-
// announcement confirm_req round: up to confirmReqFanout representatives
// that have not yet voted for this root, staggered by confirmReqStagger,
// falling back to a BroadcastFunc broadcast if no candidate representative
// clears online_weight_minimum or the retry budget is exhausted. The node
// wires BroadcastFunc to a ListFanout-sized random peer subset, so the
// fallback does not reach every peer.
func (m *Manager) sendConfirmReqsLocked(e *Election) {
	var reps []Representative
	if m.representatives != nil {
		reps = m.representatives(confirmReqPoolSize)
	}

	anyAboveMinimum := false
	var targets []Representative
	for _, r := range reps {
		if r.Weight.Cmp(m.cfg.OnlineWeightMinimum) >= 0 {
			anyAboveMinimum = true
		}
		if _, voted := e.lastVotes[r.Account]; voted {
			continue
		}
		if len(targets) < confirmReqFanout {
			targets = append(targets, r)
		}
	}

	e.confirmReqRetries++
	if !anyAboveMinimum || e.confirmReqRetries > confirmReqRetryLimit {
		if m.broadcast != nil {
			m.broadcast(&wire.ConfirmReq{Block: e.winner})
		}
		return
	}
	if m.send == nil {
		return
	}
	winner := e.winner
	go func(targets []Representative) {
		for i, t := range targets {
			if i > 0 {
				time.Sleep(confirmReqStagger)
			}
			m.send(t.Endpoint, &wire.ConfirmReq{Block: winner})
		}
	}(targets)
}
