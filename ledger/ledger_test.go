package ledger

import (
	"testing"

	badger "github.com/dgraph-io/badger"

	"github.com/chratos-network/chratos/block"
	"github.com/chratos-network/chratos/crypto"
	"github.com/chratos-network/chratos/numeric"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
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

// TestEnsureGenesis covers spec.md §8 scenario 1: on an empty ledger,
// bootstrapping the genesis account makes it the chain's first block at
// its full supply.
func TestEnsureGenesis(t *testing.T) {
	l := openTestLedger(t)
	genesis := mustKey(t)
	supply := numeric.Uint128FromUint64(1_000_000)

	hash, err := l.EnsureGenesis(genesis.Public, supply)
	if err != nil {
		t.Fatalf("EnsureGenesis: %v", err)
	}

	head, ok := l.Latest(genesis.Public)
	if !ok {
		t.Fatalf("genesis account has no frontier")
	}
	if head != hash {
		t.Fatalf("latest = %x, want %x", head, hash)
	}
	if bal := l.Balance(genesis.Public); bal != supply {
		t.Fatalf("balance = %v, want %v", bal, supply)
	}

	// a second call is a no-op returning the same hash
	again, err := l.EnsureGenesis(genesis.Public, supply)
	if err != nil {
		t.Fatalf("EnsureGenesis (second): %v", err)
	}
	if again != hash {
		t.Fatalf("second EnsureGenesis hash = %x, want %x", again, hash)
	}
}

// TestSendReceivePair covers spec.md §8 scenario 2.
func TestSendReceivePair(t *testing.T) {
	l := openTestLedger(t)
	genesis := mustKey(t)
	b := mustKey(t)
	supply := numeric.Uint128FromUint64(1_000_000)

	genesisHash, err := l.EnsureGenesis(genesis.Public, supply)
	if err != nil {
		t.Fatalf("EnsureGenesis: %v", err)
	}

	amount := numeric.Uint128FromUint64(100)
	newBalance := supply.Sub(amount)

	send := &block.StateBlock{
		AccountField:        genesis.Public,
		PreviousField:       genesisHash,
		RepresentativeField: genesis.Public,
		BalanceField:        newBalance,
		LinkField:           b.Public,
	}
	block.Sign(send, genesis.Private)

	res, _, err := l.Process(send)
	if err != nil {
		t.Fatalf("Process(send): %v", err)
	}
	if res != Progress {
		t.Fatalf("Process(send) = %v, want progress", res)
	}

	if got := l.Balance(genesis.Public); got != newBalance {
		t.Fatalf("balance(A) = %v, want %v", got, newBalance)
	}

	receive := &block.StateBlock{
		AccountField:        b.Public,
		PreviousField:       numeric.ZeroUint256,
		RepresentativeField: b.Public,
		BalanceField:        amount,
		LinkField:           send.Hash(),
	}
	block.Sign(receive, b.Private)

	res, _, err = l.Process(receive)
	if err != nil {
		t.Fatalf("Process(receive): %v", err)
	}
	if res != Progress {
		t.Fatalf("Process(receive) = %v, want progress", res)
	}

	if got := l.Balance(b.Public); got != amount {
		t.Fatalf("balance(B) = %v, want %v", got, amount)
	}

	var pendingStillThere bool
	if err := l.db.View(func(txn *badger.Txn) error {
		_, ok, err := getPending(txn, b.Public, send.Hash())
		pendingStillThere = ok
		return err
	}); err != nil {
		t.Fatalf("pending lookup: %v", err)
	}
	if pendingStillThere {
		t.Fatalf("pending(A->B) still present after receive")
	}
}

// TestProcessIdempotent covers the quantified property: processing the
// same block twice in succession yields progress then old, without
// mutating state the second time.
func TestProcessIdempotent(t *testing.T) {
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

	res, _, err := l.Process(send)
	if err != nil || res != Progress {
		t.Fatalf("first Process = %v, %v, want progress", res, err)
	}
	balanceAfterFirst := l.Balance(genesis.Public)

	res, unparked, err := l.Process(send)
	if err != nil {
		t.Fatalf("second Process: %v", err)
	}
	if res != Old {
		t.Fatalf("second Process = %v, want old", res)
	}
	if len(unparked) != 0 {
		t.Fatalf("second Process unparked %d blocks, want 0", len(unparked))
	}
	if got := l.Balance(genesis.Public); got != balanceAfterFirst {
		t.Fatalf("balance mutated by duplicate process: got %v, want %v", got, balanceAfterFirst)
	}
}

// TestGapThenFill covers spec.md §8 scenario 5.
func TestGapThenFill(t *testing.T) {
	l := openTestLedger(t)
	genesis := mustKey(t)
	supply := numeric.Uint128FromUint64(1_000_000)
	genesisHash, err := l.EnsureGenesis(genesis.Public, supply)
	if err != nil {
		t.Fatalf("EnsureGenesis: %v", err)
	}

	b1 := &block.StateBlock{
		AccountField:        genesis.Public,
		PreviousField:       genesisHash,
		RepresentativeField: genesis.Public,
		BalanceField:        supply.Sub(numeric.Uint128FromUint64(10)),
		LinkField:           numeric.ZeroUint256,
	}
	block.Sign(b1, genesis.Private)

	b2 := &block.StateBlock{
		AccountField:        genesis.Public,
		PreviousField:       b1.Hash(),
		RepresentativeField: genesis.Public,
		BalanceField:        supply.Sub(numeric.Uint128FromUint64(20)),
		LinkField:           numeric.ZeroUint256,
	}
	block.Sign(b2, genesis.Private)

	res, _, err := l.Process(b2)
	if err != nil {
		t.Fatalf("Process(b2): %v", err)
	}
	if res != GapPrevious {
		t.Fatalf("Process(b2) = %v, want gap_previous", res)
	}

	res, unparked, err := l.Process(b1)
	if err != nil {
		t.Fatalf("Process(b1): %v", err)
	}
	if res != Progress {
		t.Fatalf("Process(b1) = %v, want progress", res)
	}
	if len(unparked) != 1 || unparked[0].Hash() != b2.Hash() {
		t.Fatalf("Process(b1) unparked = %v, want [b2]", unparked)
	}

	// Process hands unparked children back to the caller (the block
	// processor re-queues them); re-process b2 as that caller would.
	res, _, err = l.Process(unparked[0])
	if err != nil {
		t.Fatalf("Process(unparked b2): %v", err)
	}
	if res != Progress {
		t.Fatalf("Process(unparked b2) = %v, want progress", res)
	}

	if head, ok := l.Latest(genesis.Public); !ok || head != b2.Hash() {
		t.Fatalf("latest = %x, ok=%v, want %x", head, ok, b2.Hash())
	}
}

// TestDividendClaimFlow exercises a DividendBlock opening an epoch, a
// StateBlock rejected as incorrect_dividend while the claim is
// outstanding, and a ClaimBlock that both credits the claimant and
// unblocks the parked StateBlock.
func TestDividendClaimFlow(t *testing.T) {
	l := openTestLedger(t)
	dividendAcct := mustKey(t)
	if err := l.SetDividendAccount(dividendAcct.Public); err != nil {
		t.Fatalf("SetDividendAccount: %v", err)
	}
	if err := l.SetMinDividendAmount(numeric.Uint128FromUint64(1)); err != nil {
		t.Fatalf("SetMinDividendAmount: %v", err)
	}

	supply := numeric.Uint128FromUint64(1_000_000)
	genesisHash, err := l.EnsureGenesis(dividendAcct.Public, supply)
	if err != nil {
		t.Fatalf("EnsureGenesis: %v", err)
	}

	pool := numeric.Uint128FromUint64(500)
	dividend := &block.DividendBlock{
		AccountField:  dividendAcct.Public,
		PreviousField: genesisHash,
		DividendField: 1,
		AmountField:   pool,
		LinkField:     numeric.ZeroUint256,
	}
	block.Sign(dividend, dividendAcct.Private)

	res, _, err := l.Process(dividend)
	if err != nil {
		t.Fatalf("Process(dividend): %v", err)
	}
	if res != Progress {
		t.Fatalf("Process(dividend) = %v, want progress", res)
	}
	if epoch := l.CurrentDividendEpoch(); epoch != 1 {
		t.Fatalf("CurrentDividendEpoch = %d, want 1", epoch)
	}

	// the dividend account tries to move before claiming epoch 1: rejected
	// as incorrect_dividend and parked.
	stale := &block.StateBlock{
		AccountField:        dividendAcct.Public,
		PreviousField:       dividend.Hash(),
		RepresentativeField: dividendAcct.Public,
		BalanceField:        supply,
		LinkField:           numeric.ZeroUint256,
		DividendField:       0,
	}
	block.Sign(stale, dividendAcct.Private)

	res, _, err = l.Process(stale)
	if err != nil {
		t.Fatalf("Process(stale): %v", err)
	}
	if res != IncorrectDividend {
		t.Fatalf("Process(stale) = %v, want incorrect_dividend", res)
	}

	claim := &block.ClaimBlock{
		AccountField:  dividendAcct.Public,
		PreviousField: dividend.Hash(),
		DividendField: 1,
		SourceField:   dividend.Hash(),
		BalanceField:  supply.Add(numeric.Uint128FromUint64(50)),
		LinkField:     numeric.ZeroUint256,
	}
	block.Sign(claim, dividendAcct.Private)

	res, unparked, err := l.Process(claim)
	if err != nil {
		t.Fatalf("Process(claim): %v", err)
	}
	if res != Progress {
		t.Fatalf("Process(claim) = %v, want progress", res)
	}
	if len(unparked) != 1 || unparked[0].Hash() != stale.Hash() {
		t.Fatalf("Process(claim) unparked = %v, want [stale]", unparked)
	}
	if got := l.Balance(dividendAcct.Public); got != claim.BalanceField {
		t.Fatalf("balance after claim = %v, want %v", got, claim.BalanceField)
	}
	if epoch := l.LastClaimedDividendEpoch(dividendAcct.Public); epoch != 1 {
		t.Fatalf("LastClaimedDividendEpoch = %d, want 1", epoch)
	}
}
