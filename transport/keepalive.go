package transport

import (
	"time"

	"github.com/chratos-network/chratos/alarm"
	"github.com/chratos-network/chratos/wire"
)

// keepaliveInterval is spec.md §6's period design-level default, reused
// here since no separate keepalive cadence is named.
const keepaliveInterval = 60 * time.Second

// handshakeRetryInterval and handshakeRetryLimit bound the syn-cookie
// handshake retry schedule (spec.md §2: "retry scheduling"); a peer that
// never answers is abandoned rather than retried forever.
const (
	handshakeRetryInterval = 5 * time.Second
	handshakeRetryLimit    = 3
)

// PeersFunc returns the current keepalive payload: up to
// wire.KeepalivePeerCount neighbours to announce (peers.Container's own
// random selection, zero-padded by the caller).
type PeersFunc func() [wire.KeepalivePeerCount]wire.Endpoint

// FanoutFunc returns the fanout-sized broadcast set for this round
// (peers.Container.ListFanout).
type FanoutFunc func() []wire.Endpoint

// StartKeepalive schedules the periodic keepalive broadcast of spec.md
// §2 on clock, re-scheduling itself every keepaliveInterval, following
// the same self-rescheduling alarm.Alarm idiom as election's
// announcement loop.
func (t *Transport) StartKeepalive(clock *alarm.Alarm, peers PeersFunc, fanout FanoutFunc) {
	var tick func()
	tick = func() {
		t.Broadcast(fanout(), &wire.Keepalive{Peers: peers()})
		clock.Add(time.Now().Add(keepaliveInterval), tick)
	}
	clock.Add(time.Now().Add(keepaliveInterval), tick)
}

// Reachout sends a syn-cookie query to a newly discovered endpoint and
// schedules up to handshakeRetryLimit retries on clock if no response
// arrives before handshakeRetryInterval elapses. stillPending reports
// whether the handshake is still outstanding (the caller's peer
// container clears it once a response is validated), so a retry that
// lost the race against a late response is a no-op.
func (t *Transport) Reachout(clock *alarm.Alarm, to wire.Endpoint, query *wire.NodeIDHandshake, stillPending func(wire.Endpoint) bool) {
	var retry func(attempt int)
	retry = func(attempt int) {
		if !stillPending(to) || attempt > handshakeRetryLimit {
			return
		}
		if err := t.Send(to, query); err != nil {
			t.log.WithError(err).WithField("peer", to.String()).Debug("handshake send")
		}
		clock.Add(time.Now().Add(handshakeRetryInterval), func() { retry(attempt + 1) })
	}
	retry(0)
}
