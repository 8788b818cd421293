package blockprocessor

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chratos-network/chratos/block"
	"github.com/chratos-network/chratos/common"
	"github.com/chratos-network/chratos/crypto"
	"github.com/chratos-network/chratos/ledger"
	"github.com/chratos-network/chratos/numeric"
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

func waitForQueueDrain(t *testing.T, p *Processor) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.QueueLen() == 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("queue did not drain")
}

func TestAddCommitsProgressAndStartsElectionWhenRecent(t *testing.T) {
	l := openTestLedger(t)
	genesis := mustKey(t)
	supply := numeric.Uint128FromUint64(1_000_000)
	genesisHash, err := l.EnsureGenesis(genesis.Public, supply)
	if err != nil {
		t.Fatalf("EnsureGenesis: %v", err)
	}

	b := mustKey(t)
	send := &block.StateBlock{
		AccountField:        genesis.Public,
		PreviousField:       genesisHash,
		RepresentativeField: genesis.Public,
		BalanceField:        supply.Sub(numeric.Uint128FromUint64(1)),
		LinkField:           b.Public,
	}
	block.Sign(send, genesis.Private)

	var started []numeric.Uint256
	p := New(l, Config{LiveNet: false}, 0, logrus.NewEntry(common.NewTestLogger(t)),
		func(numeric.Uint256) bool { return true },
		nil,
		func(blk block.Block) { started = append(started, blk.Hash()) },
		nil,
	)
	go p.Run()
	t.Cleanup(p.Stop)

	if ok := p.Add(send); !ok {
		t.Fatalf("Add rejected the block")
	}
	waitForQueueDrain(t, p)
	// give the worker a moment to finish handleResult after the queue
	// empties (drainQueue dequeues before calling ProcessBatch).
	time.Sleep(10 * time.Millisecond)

	if got := l.Balance(genesis.Public); got != send.BalanceField {
		t.Fatalf("balance = %v, want %v", got, send.BalanceField)
	}
	if len(started) != 1 || started[0] != send.Hash() {
		t.Fatalf("started = %v, want [%x]", started, send.Hash())
	}
}

func TestAddDedupesQueuedBlock(t *testing.T) {
	l := openTestLedger(t)
	genesis := mustKey(t)
	supply := numeric.Uint128FromUint64(1_000_000)
	genesisHash, err := l.EnsureGenesis(genesis.Public, supply)
	if err != nil {
		t.Fatalf("EnsureGenesis: %v", err)
	}

	send := &block.StateBlock{
		AccountField:        genesis.Public,
		PreviousField:       genesisHash,
		RepresentativeField: genesis.Public,
		BalanceField:        supply.Sub(numeric.Uint128FromUint64(1)),
		LinkField:           numeric.ZeroUint256,
	}
	block.Sign(send, genesis.Private)

	p := New(l, Config{LiveNet: false}, 0, logrus.NewEntry(common.NewTestLogger(t)), nil, nil, nil, nil)
	// do not Run(): both Add calls race against an empty queue only.
	if ok := p.Add(send); !ok {
		t.Fatalf("first Add rejected")
	}
	if ok := p.Add(send); ok {
		t.Fatalf("second Add of the same block should be deduped")
	}
	if got := p.QueueLen(); got != 1 {
		t.Fatalf("QueueLen = %d, want 1", got)
	}
}

func TestForceRollsBackDivergentSuccessor(t *testing.T) {
	l := openTestLedger(t)
	genesis := mustKey(t)
	supply := numeric.Uint128FromUint64(1_000_000)
	genesisHash, err := l.EnsureGenesis(genesis.Public, supply)
	if err != nil {
		t.Fatalf("EnsureGenesis: %v", err)
	}

	losing := &block.StateBlock{
		AccountField:        genesis.Public,
		PreviousField:       genesisHash,
		RepresentativeField: genesis.Public,
		BalanceField:        supply.Sub(numeric.Uint128FromUint64(1)),
		LinkField:           numeric.ZeroUint256,
	}
	block.Sign(losing, genesis.Private)
	if res, _, err := l.Process(losing); err != nil || res != ledger.Progress {
		t.Fatalf("seed Process(losing) = %v, %v", res, err)
	}

	winning := &block.StateBlock{
		AccountField:        genesis.Public,
		PreviousField:       genesisHash,
		RepresentativeField: genesis.Public,
		BalanceField:        supply.Sub(numeric.Uint128FromUint64(2)),
		LinkField:           numeric.ZeroUint256,
	}
	block.Sign(winning, genesis.Private)

	p := New(l, Config{LiveNet: false}, 0, logrus.NewEntry(common.NewTestLogger(t)), nil, nil, nil, nil)
	go p.Run()
	t.Cleanup(p.Stop)

	p.Force(winning)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if head, ok := l.Latest(genesis.Public); ok && head == winning.Hash() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("winning block was never committed after forced rollback")
		}
		time.Sleep(time.Millisecond)
	}
}
