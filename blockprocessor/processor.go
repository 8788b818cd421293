// Package blockprocessor implements the block processor of spec.md §4.5:
// the single consumer that takes newly arrived or locally produced blocks
// off a bounded ingress queue and commits them to the ledger, acting on
// the resulting ledger.ProcessResult. Grounded on the teacher's
// node/event-processing loop (src/node/node.go's doBackgroundWork,
// src/node/core.go's AddTransactions/Commit path): a dedicated goroutine
// woken by a buffered signal channel, draining a mutex-guarded queue
// under a single logical unit of work, exactly as babble's core commits
// a batch of transactions per consensus round.
package blockprocessor

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chratos-network/chratos/block"
	"github.com/chratos-network/chratos/ledger"
	"github.com/chratos-network/chratos/numeric"
)

const (
	// queueCapacity bounds the ingress queue (spec.md §4.5: "bounded
	// 16,384 ingress queue").
	queueCapacity = 16384

	// forceSuppressWindow is how long a fork/dividend_fork outcome is
	// suppressed (logged only) before it is handed to the fork resolver
	// (spec.md §4.5: "fork ... hand to fork resolver after 15s").
	forceSuppressWindow = 15 * time.Second

	liveTransactionTimeout = time.Second
	testTransactionTimeout = 5 * time.Millisecond
)

// Config holds the processor's network-scaled tunables, following the
// gapcache.Config{LiveNet bool} convention of scaling timing constants
// for test networks instead of parameterizing every duration by hand.
type Config struct {
	LiveNet bool
}

func (c Config) transactionTimeout() time.Duration {
	if c.LiveNet {
		return liveTransactionTimeout
	}
	return testTransactionTimeout
}

// RecentFunc reports whether hash was recently, locally observed
// (blockarrival.Set.Recent), gating eager election start on progress.
type RecentFunc func(hash numeric.Uint256) bool

// NotifyGapFunc tells the gap cache that dep is blocking at least one
// parked block, so it can decide whether to bootstrap (spec.md §4.8).
type NotifyGapFunc func(dep numeric.Uint256)

// ElectionStartFunc starts an election (if none exists yet) for a block that
// just made progress and was recently, locally observed (spec.md §4.5:
// "progress ... start election").
type ElectionStartFunc func(b block.Block)

// ForkResolveFunc hands a fork/dividend_fork outcome that has sat for
// more than forceSuppressWindow to the active elections manager's fork
// resolver (spec.md §4.5).
type ForkResolveFunc func(b block.Block)

type entry struct {
	block      block.Block
	originated time.Time
}

// Processor is the block processor of spec.md §4.5.
type Processor struct {
	log   *logrus.Entry
	store *ledger.Ledger
	cfg   Config

	workThreshold uint64

	mu     sync.Mutex
	queue  []entry
	forced []entry
	queued map[numeric.Uint256]struct{}

	wake chan struct{}
	stop chan struct{}
	done chan struct{}

	recent        RecentFunc
	notifyGap     NotifyGapFunc
	startElection ElectionStartFunc
	resolveFork   ForkResolveFunc
}

// New builds a Processor. Any collaborator func may be nil, in which case
// the corresponding action is skipped (useful for tests that only
// exercise the ledger-commit path).
func New(store *ledger.Ledger, cfg Config, workThreshold uint64, log *logrus.Entry, recent RecentFunc, notifyGap NotifyGapFunc, startElection ElectionStartFunc, resolveFork ForkResolveFunc) *Processor {
	if log == nil {
		l := logrus.New()
		log = logrus.NewEntry(l)
	}
	return &Processor{
		log:           log,
		store:         store,
		cfg:           cfg,
		workThreshold: workThreshold,
		queued:        make(map[numeric.Uint256]struct{}),
		wake:          make(chan struct{}, 1),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
		recent:        recent,
		notifyGap:     notifyGap,
		startElection: startElection,
		resolveFork:   resolveFork,
	}
}

// Add admits a newly observed block into the ingress queue, dropping it
// (reporting false) if its proof-of-work is insufficient, if it is
// already queued, or if the queue is full.
func (p *Processor) Add(b block.Block) bool {
	if !block.ValidateWork(b.Root(), b.Work(), p.workThreshold) {
		rejectedTotal.WithLabelValues("insufficient_work").Inc()
		return false
	}
	return p.enqueue(b, false)
}

// Force admits b bypassing the dedup check, for the successor-rollback
// reconciliation path (spec.md §4.5: "force bypasses dedup").
func (p *Processor) Force(b block.Block) {
	p.mu.Lock()
	p.forced = append(p.forced, entry{block: b, originated: time.Now()})
	p.mu.Unlock()
	p.signal()
}

func (p *Processor) enqueue(b block.Block, bypassCapCheck bool) bool {
	hash := b.Hash()
	p.mu.Lock()
	if !bypassCapCheck && len(p.queue) >= queueCapacity {
		p.mu.Unlock()
		rejectedTotal.WithLabelValues("queue_full").Inc()
		return false
	}
	if _, dup := p.queued[hash]; dup {
		p.mu.Unlock()
		return false
	}
	p.queued[hash] = struct{}{}
	p.queue = append(p.queue, entry{block: b, originated: time.Now()})
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

// QueueLen reports the number of blocks currently waiting in the
// non-forced ingress queue, for tests and metrics.
func (p *Processor) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Run drains the queue until Stop is called. It is meant to run on its
// own goroutine, owned by node.Node (spec.md §5: the block worker).
func (p *Processor) Run() {
	for {
		select {
		case <-p.wake:
		case <-p.stop:
			close(p.done)
			return
		}
		p.drainForced()
		p.drainQueue()
	}
}

// Stop signals Run to exit and waits for it to do so.
func (p *Processor) Stop() {
	close(p.stop)
	<-p.done
}

func (p *Processor) drainForced() {
	for {
		p.mu.Lock()
		if len(p.forced) == 0 {
			p.mu.Unlock()
			return
		}
		e := p.forced[0]
		p.forced = p.forced[1:]
		p.mu.Unlock()
		p.processForced(e)
	}
}

// processForced implements spec.md §4.5's forced-path reconciliation: if
// the ledger's successor(root) differs from the forced block's hash, the
// successor is rolled back before the forced block is (re)processed.
func (p *Processor) processForced(e entry) {
	root := e.block.Root()
	if succ, ok := p.store.Successor(root); ok && succ != e.block.Hash() {
		if err := p.store.RollbackSuccessor(root); err != nil {
			p.log.WithError(err).WithField("root", root.Hex()).Error("rollback successor")
			return
		}
	}
	result, unparked, err := p.store.Process(e.block)
	if err != nil {
		p.log.WithError(err).Error("process forced block")
		return
	}
	p.handleResult(result, e.block, e.originated)
	for _, child := range unparked {
		p.enqueueChild(child)
	}
}

// drainQueue pulls up to queueCapacity entries off the queue, bounded by
// a transaction_timeout wall-clock cutoff, and commits them in a single
// ledger.ProcessBatch call (spec.md §4.5: "drains up to 16384 entries per
// wake under one writable ledger transaction with a transaction_timeout
// wall-clock cutoff").
func (p *Processor) drainQueue() {
	deadline := time.Now().Add(p.cfg.transactionTimeout())
	var batch []entry
	for len(batch) < queueCapacity {
		p.mu.Lock()
		if len(p.queue) == 0 || time.Now().After(deadline) {
			p.mu.Unlock()
			break
		}
		e := p.queue[0]
		p.queue = p.queue[1:]
		delete(p.queued, e.block.Hash())
		p.mu.Unlock()
		batch = append(batch, e)
	}
	if len(batch) == 0 {
		return
	}

	blocks := make([]block.Block, len(batch))
	for i, e := range batch {
		blocks[i] = e.block
	}
	results, unparked, err := p.store.ProcessBatch(blocks)
	if err != nil {
		p.log.WithError(err).Error("process batch")
		return
	}
	for i, r := range results {
		p.handleResult(r, batch[i].block, batch[i].originated)
	}
	for _, child := range unparked {
		p.enqueueChild(child)
	}

	// entries left in the queue past the deadline wake the worker again
	// immediately rather than waiting for the next external Add/Force.
	p.mu.Lock()
	more := len(p.queue) > 0
	p.mu.Unlock()
	if more {
		p.signal()
	}
}

// enqueueChild re-admits a block drained from the unchecked index,
// bypassing the proof-of-work check (already validated when first seen)
// but still deduping against anything already queued.
func (p *Processor) enqueueChild(b block.Block) {
	p.enqueue(b, true)
}

// handleResult implements spec.md §4.5's post-outcome action table.
func (p *Processor) handleResult(result ledger.ProcessResult, b block.Block, originated time.Time) {
	processedTotal.WithLabelValues(result.String()).Inc()

	switch result {
	case ledger.Progress:
		if p.recent != nil && p.startElection != nil && p.recent(b.Hash()) {
			p.startElection(b)
		}

	case ledger.GapPrevious:
		if p.notifyGap != nil {
			p.notifyGap(b.Previous())
		}
	case ledger.GapSource:
		if p.notifyGap != nil {
			p.notifyGap(b.Source())
		}
	case ledger.IncorrectDividend:
		// parked under the network's current dividend epoch, not a
		// block hash; nothing for the gap cache (which tracks hashes)
		// to bootstrap toward.

	case ledger.Old:
		// the ledger already drained and returned this block's
		// unchecked children; nothing further to do here.

	case ledger.Fork, ledger.DividendFork:
		if time.Since(originated) > forceSuppressWindow && p.resolveFork != nil {
			p.resolveFork(b)
		} else {
			p.log.WithFields(logrus.Fields{"result": result.String(), "hash": b.Hash().Hex()}).Debug("fork suppressed")
		}

	default:
		// bad_signature, negative_spend, unreceivable,
		// opened_burn_account, balance_mismatch,
		// representative_mismatch, block_position,
		// outstanding_pendings, dividend_too_small,
		// invalid_dividend_account: log-only, already counted above.
		p.log.WithFields(logrus.Fields{"result": result.String(), "hash": b.Hash().Hex()}).Debug("block not committed")
	}
}
