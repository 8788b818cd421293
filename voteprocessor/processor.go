// Package voteprocessor implements the vote processor of spec.md §4.7: a
// single dedicated worker that drains a bounded FIFO of incoming votes,
// checks each against the highest sequence number previously heard from
// its account, and forwards anything new to the active elections
// manager. Grounded on the same dedicated-worker-plus-signal-channel
// shape as blockprocessor (itself grounded on the teacher's
// node/event-processing loop), specialized here to per-vote rather than
// per-wake-batch processing since each vote's outcome (vote vs replay)
// can require an immediate direct reply to the sender.
package voteprocessor

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chratos-network/chratos/ledger"
	"github.com/chratos-network/chratos/numeric"
	"github.com/chratos-network/chratos/vote"
	"github.com/chratos-network/chratos/wire"
)

const (
	// queueCapacity bounds the incoming vote FIFO (spec.md §4.7: "A
	// bounded FIFO of (vote, sender_endpoint) pairs").
	queueCapacity = 16384

	// replayCatchupThreshold is how far ahead the known maximum sequence
	// must be before the processor bothers replying with it (spec.md
	// §4.7: "more than 10,000 sequence numbers ahead").
	replayCatchupThreshold = 10000
)

// ForwardFunc hands v to the active elections manager, reporting whether
// any of its referenced roots had an active election that accepted it
// (spec.md §4.7 step 3).
type ForwardFunc func(v *vote.Vote) (accepted bool)

// NotifyFunc is the vote observer of spec.md §4.7 step 4: it fans out
// into online-reps tracking, gap-cache voter accounting, and the observer
// registry's vote callback.
type NotifyFunc func(v *vote.Vote, sender wire.Endpoint)

// ReplyFunc sends a direct reply to sender carrying the known maximum
// vote for the account sender asked about (spec.md §4.7 step 5).
type ReplyFunc func(sender wire.Endpoint, knownSequence uint64, knownHash numeric.Uint256)

type item struct {
	vote   *vote.Vote
	sender wire.Endpoint
}

// Processor is the vote processor of spec.md §4.7.
type Processor struct {
	log   *logrus.Entry
	store *ledger.Ledger

	mu       sync.Mutex
	queue    []item
	inFlight bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}

	forward ForwardFunc
	notify  NotifyFunc
	reply   ReplyFunc
}

// New builds a Processor. Any collaborator func may be nil.
func New(store *ledger.Ledger, log *logrus.Entry, forward ForwardFunc, notify NotifyFunc, reply ReplyFunc) *Processor {
	if log == nil {
		l := logrus.New()
		log = logrus.NewEntry(l)
	}
	return &Processor{
		log:     log,
		store:   store,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		forward: forward,
		notify:  notify,
		reply:   reply,
	}
}

// Add admits v into the FIFO, reporting false if the queue is full or v
// carries no refs (a vote.Validate precondition the caller should already
// have checked at parse time, but re-checked here defensively since an
// empty-ref vote cannot be compared by vote.Supersedes).
func (p *Processor) Add(v *vote.Vote, sender wire.Endpoint) bool {
	if len(v.Refs) == 0 {
		return false
	}
	p.mu.Lock()
	if len(p.queue) >= queueCapacity {
		p.mu.Unlock()
		outcomeTotal.WithLabelValues("dropped_full").Inc()
		return false
	}
	p.queue = append(p.queue, item{vote: v, sender: sender})
	p.mu.Unlock()
	p.signal()
	return true
}

func (p *Processor) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// QueueLen reports the number of votes currently waiting, for tests and
// metrics.
func (p *Processor) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Run drains the queue until Stop is called.
func (p *Processor) Run() {
	for {
		select {
		case <-p.wake:
		case <-p.stop:
			close(p.done)
			return
		}
		p.drain()
	}
}

// Stop signals Run to exit and waits for it to do so.
func (p *Processor) Stop() {
	close(p.stop)
	<-p.done
}

// Flush blocks until the queue is empty and no vote is being processed
// (spec.md §4.7: "used by tests").
func (p *Processor) Flush() {
	for {
		p.mu.Lock()
		idle := len(p.queue) == 0 && !p.inFlight
		p.mu.Unlock()
		if idle {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func (p *Processor) drain() {
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		it := p.queue[0]
		p.queue = p.queue[1:]
		p.inFlight = true
		p.mu.Unlock()

		p.process(it)

		p.mu.Lock()
		p.inFlight = false
		p.mu.Unlock()
	}
}

// process implements spec.md §4.7's five-step pipeline for a single vote.
func (p *Processor) process(it item) {
	if !it.vote.Validate() {
		outcomeTotal.WithLabelValues("invalid").Inc()
		return
	}

	account := it.vote.Account
	refHash := it.vote.Refs[0].HashOf()
	maxSeq, maxHash, hasMax := p.store.MaxVote(account)

	if hasMax && !vote.Supersedes(it.vote.Sequence, refHash, maxSeq, maxHash) {
		p.replay(it, maxSeq, maxHash, hasMax)
		return
	}

	var accepted bool
	if p.forward != nil {
		accepted = p.forward(it.vote)
	}
	if !accepted {
		p.replay(it, maxSeq, maxHash, hasMax)
		return
	}

	if err := p.store.RecordMaxVote(account, it.vote.Sequence, refHash); err != nil {
		p.log.WithError(err).Error("record max vote")
	}
	outcomeTotal.WithLabelValues("vote").Inc()
	if p.notify != nil {
		p.notify(it.vote, it.sender)
	}
}

func (p *Processor) replay(it item, maxSeq uint64, maxHash numeric.Uint256, hasMax bool) {
	outcomeTotal.WithLabelValues("replay").Inc()
	if !hasMax || maxSeq <= it.vote.Sequence {
		return
	}
	if maxSeq-it.vote.Sequence > replayCatchupThreshold && p.reply != nil {
		p.reply(it.sender, maxSeq, maxHash)
	}
}
