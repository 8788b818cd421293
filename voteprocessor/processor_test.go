package voteprocessor

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chratos-network/chratos/common"
	"github.com/chratos-network/chratos/crypto"
	"github.com/chratos-network/chratos/ledger"
	"github.com/chratos-network/chratos/numeric"
	"github.com/chratos-network/chratos/vote"
	"github.com/chratos-network/chratos/wire"
)

func openTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func mustKey(t *testing.T) *crypto.KeyPair {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	return kp
}

func hashN(b byte) numeric.Uint256 {
	var h numeric.Uint256
	for i := range h {
		h[i] = b
	}
	return h
}

func signedVote(t *testing.T, kp *crypto.KeyPair, sequence uint64, root numeric.Uint256) *vote.Vote {
	t.Helper()
	v := &vote.Vote{
		Account:  kp.Public,
		Sequence: sequence,
		Refs:     []vote.Ref{{Hash: root}},
	}
	v.Sign(kp.Private)
	return v
}

func waitIdle(t *testing.T, p *Processor) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.QueueLen() == 0 {
			time.Sleep(5 * time.Millisecond)
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("queue did not drain")
}

func TestAddAcceptsNewVoteAndRecordsMax(t *testing.T) {
	l := openTestLedger(t)
	kp := mustKey(t)
	root := hashN(0x11)
	v := signedVote(t, kp, 5, root)

	var notified *vote.Vote
	p := New(l, logrus.NewEntry(common.NewTestLogger(t)),
		func(*vote.Vote) bool { return true },
		func(nv *vote.Vote, _ wire.Endpoint) { notified = nv },
		nil,
	)
	go p.Run()
	t.Cleanup(p.Stop)

	sender := wire.NewEndpoint(nil, 7075)
	if ok := p.Add(v, sender); !ok {
		t.Fatalf("Add rejected the vote")
	}
	waitIdle(t, p)

	if notified != v {
		t.Fatalf("vote observer was not notified")
	}
	seq, hash, ok := l.MaxVote(kp.Public)
	if !ok || seq != 5 || hash != root {
		t.Fatalf("MaxVote = (%d, %x, %v), want (5, %x, true)", seq, hash, ok, root)
	}
}

func TestAddRejectsInvalidVote(t *testing.T) {
	l := openTestLedger(t)
	kp := mustKey(t)
	v := signedVote(t, kp, 5, hashN(0x11))
	v.Sequence = 6 // invalidates the signature without re-signing

	forwarded := false
	p := New(l, logrus.NewEntry(common.NewTestLogger(t)),
		func(*vote.Vote) bool { forwarded = true; return true },
		nil, nil,
	)
	go p.Run()
	t.Cleanup(p.Stop)

	p.Add(v, wire.NewEndpoint(nil, 7075))
	waitIdle(t, p)

	if forwarded {
		t.Fatalf("an invalid vote must not reach the forward collaborator")
	}
	if _, _, ok := l.MaxVote(kp.Public); ok {
		t.Fatalf("an invalid vote must not update MaxVote")
	}
}

func TestAddTreatsNonSupersedingVoteAsReplay(t *testing.T) {
	l := openTestLedger(t)
	kp := mustKey(t)
	root := hashN(0x11)
	if err := l.RecordMaxVote(kp.Public, 10, root); err != nil {
		t.Fatalf("RecordMaxVote: %v", err)
	}

	stale := signedVote(t, kp, 3, root)
	forwarded := false
	p := New(l, logrus.NewEntry(common.NewTestLogger(t)),
		func(*vote.Vote) bool { forwarded = true; return true },
		nil, nil,
	)
	go p.Run()
	t.Cleanup(p.Stop)

	p.Add(stale, wire.NewEndpoint(nil, 7075))
	waitIdle(t, p)

	if forwarded {
		t.Fatalf("a non-superseding vote must not be forwarded to elections")
	}
	seq, _, _ := l.MaxVote(kp.Public)
	if seq != 10 {
		t.Fatalf("MaxVote sequence changed to %d, want unchanged 10", seq)
	}
}

func TestAddRepliesWithKnownMaxOnLargeCatchupGap(t *testing.T) {
	l := openTestLedger(t)
	kp := mustKey(t)
	root := hashN(0x11)
	if err := l.RecordMaxVote(kp.Public, 20_000, root); err != nil {
		t.Fatalf("RecordMaxVote: %v", err)
	}

	stale := signedVote(t, kp, 1, root)

	var repliedTo wire.Endpoint
	var repliedSeq uint64
	sender := wire.NewEndpoint(nil, 7076)
	p := New(l, logrus.NewEntry(common.NewTestLogger(t)),
		nil, nil,
		func(to wire.Endpoint, seq uint64, _ numeric.Uint256) {
			repliedTo = to
			repliedSeq = seq
		},
	)
	go p.Run()
	t.Cleanup(p.Stop)

	p.Add(stale, sender)
	waitIdle(t, p)

	if repliedTo != sender || repliedSeq != 20_000 {
		t.Fatalf("reply = (%v, %d), want (%v, 20000)", repliedTo, repliedSeq, sender)
	}
}

func TestFlushWaitsForInFlightVote(t *testing.T) {
	l := openTestLedger(t)
	kp := mustKey(t)
	v := signedVote(t, kp, 1, hashN(0x11))

	done := make(chan struct{})
	p := New(l, logrus.NewEntry(common.NewTestLogger(t)),
		func(*vote.Vote) bool {
			time.Sleep(20 * time.Millisecond)
			close(done)
			return true
		},
		nil, nil,
	)
	go p.Run()
	t.Cleanup(p.Stop)

	p.Add(v, wire.NewEndpoint(nil, 7075))
	p.Flush()

	select {
	case <-done:
	default:
		t.Fatalf("Flush returned before the in-flight vote finished processing")
	}
}
