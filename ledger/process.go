package ledger

import (
	badger "github.com/dgraph-io/badger"

	"github.com/chratos-network/chratos/block"
	"github.com/chratos-network/chratos/numeric"
)

// ProcessResult is the outcome of ledger.process named in spec.md §4.5.
type ProcessResult int

// Process outcomes, spec.md §4.5.
const (
	Progress ProcessResult = iota
	GapPrevious
	GapSource
	Old
	BadSignature
	NegativeSpend
	Unreceivable
	Fork
	OpenedBurnAccount
	BalanceMismatch
	RepresentativeMismatch
	BlockPosition
	OutstandingPendings
	DividendTooSmall
	IncorrectDividend
	DividendFork
	InvalidDividendAccount
)

// String names a ProcessResult for logging.
func (r ProcessResult) String() string {
	switch r {
	case Progress:
		return "progress"
	case GapPrevious:
		return "gap_previous"
	case GapSource:
		return "gap_source"
	case Old:
		return "old"
	case BadSignature:
		return "bad_signature"
	case NegativeSpend:
		return "negative_spend"
	case Unreceivable:
		return "unreceivable"
	case Fork:
		return "fork"
	case OpenedBurnAccount:
		return "opened_burn_account"
	case BalanceMismatch:
		return "balance_mismatch"
	case RepresentativeMismatch:
		return "representative_mismatch"
	case BlockPosition:
		return "block_position"
	case OutstandingPendings:
		return "outstanding_pendings"
	case DividendTooSmall:
		return "dividend_too_small"
	case IncorrectDividend:
		return "incorrect_dividend"
	case DividendFork:
		return "dividend_fork"
	case InvalidDividendAccount:
		return "invalid_dividend_account"
	default:
		return "unknown"
	}
}

// Process runs the ledger.process state machine of spec.md §4.5 for a
// single block, inside its own writable transaction. unparked carries any
// previously-parked blocks that became processable as a side effect
// (drained from the unchecked index), for the caller to re-add to the
// block processor.
func (l *Ledger) Process(b block.Block) (result ProcessResult, unparked []block.Block, err error) {
	err = l.db.Update(func(txn *badger.Txn) error {
		var txErr error
		result, unparked, txErr = l.processInTxn(txn, b)
		return txErr
	})
	return result, unparked, err
}

// ProcessBatch runs Process for every block in blocks under a single
// writable transaction, matching spec.md §4.5's "drains up to 16384
// entries per wake under one writable ledger transaction".
func (l *Ledger) ProcessBatch(blocks []block.Block) (results []ProcessResult, unparked []block.Block, err error) {
	results = make([]ProcessResult, len(blocks))
	err = l.db.Update(func(txn *badger.Txn) error {
		for i, b := range blocks {
			r, u, txErr := l.processInTxn(txn, b)
			if txErr != nil {
				return txErr
			}
			results[i] = r
			unparked = append(unparked, u...)
		}
		return nil
	})
	return results, unparked, err
}

func (l *Ledger) processInTxn(txn *badger.Txn, b block.Block) (ProcessResult, []block.Block, error) {
	hash := b.Hash()

	if _, found, err := getBlock(txn, hash); err != nil {
		return 0, nil, err
	} else if found {
		unparked, err := l.drainUnchecked(txn, hash)
		return Old, unparked, err
	}

	if !block.VerifySignature(accountOf(b), b) {
		return BadSignature, nil, nil
	}

	v := &processVisitor{ledger: l, txn: txn, hash: hash}
	b.Visit(v)
	if v.err != nil {
		return 0, nil, v.err
	}
	if v.result != Progress {
		return v.result, nil, nil
	}

	unparked, err := l.drainUnchecked(txn, hash)
	if err != nil {
		return 0, nil, err
	}
	if v.extraDrainKey != nil {
		more, err := l.drainUnchecked(txn, *v.extraDrainKey)
		if err != nil {
			return 0, nil, err
		}
		unparked = append(unparked, more...)
	}
	return Progress, unparked, nil
}

// processVisitor implements block.Visitor, dispatching ledger.process to
// the validation routine matching the block's concrete kind (spec.md §9
// "Polymorphic blocks": the visitor replaces virtual dispatch).
type processVisitor struct {
	ledger *Ledger
	txn    *badger.Txn
	hash   numeric.Uint256

	result        ProcessResult
	err           error
	extraDrainKey *numeric.Uint256
}

// resolvePosition runs checkPosition and, on gap_previous, parks b under
// the missing previous hash so a later commit of that block drains it
// (spec.md §4.5: "gap_previous ... park the block under the missing
// dependency"). It returns ok=false (with v.result/v.err already set) when
// the caller should stop processing.
func (v *processVisitor) resolvePosition(account, previous numeric.Uint256, b block.Block) (ok bool) {
	pos, err := checkPosition(v.txn, account, previous)
	if err != nil {
		v.err = err
		return false
	}
	if pos != Progress {
		v.result = pos
		if pos == GapPrevious {
			if err := v.ledger.parkUnchecked(v.txn, previous, b); err != nil {
				v.err = err
			}
		}
		return false
	}
	return true
}

// checkPosition validates a block's attachment point on its account's
// chain, shared by all three block kinds. A previous of the zero hash
// marks an account-opening block.
func checkPosition(txn *badger.Txn, account, previous numeric.Uint256) (ProcessResult, error) {
	if previous.IsZero() {
		if _, ok, err := getAccount(txn, account); err != nil {
			return 0, err
		} else if ok {
			return Fork, nil
		}
		return Progress, nil
	}

	prevBlock, found, err := getBlock(txn, previous)
	if err != nil {
		return 0, err
	}
	if !found {
		return GapPrevious, nil
	}
	if accountOf(prevBlock) != account {
		return BlockPosition, nil
	}
	if _, ok, err := getSuccessor(txn, previous); err != nil {
		return 0, err
	} else if ok {
		return Fork, nil
	}
	return Progress, nil
}

func (v *processVisitor) VisitState(b *block.StateBlock) {
	isOpen := b.PreviousField.IsZero()
	if isOpen && b.AccountField.IsZero() {
		v.result = OpenedBurnAccount
		return
	}

	if !v.resolvePosition(b.AccountField, b.PreviousField, b) {
		return
	}

	var prevBalance numeric.Uint128
	var lastClaimed uint64
	if !isOpen {
		rec, _, err := getAccount(v.txn, b.AccountField)
		if err != nil {
			v.err = err
			return
		}
		prevBalance = rec.balance()
		lastClaimed = rec.LastClaimedDividendEpoch
	}

	if b.RepresentativeField.IsZero() {
		v.result = RepresentativeMismatch
		return
	}

	// every state block declares the dividend epoch it is transacting as
	// of (glossary: "which dividend epoch this block claims"); it must
	// match the network's current epoch, which forces an account sitting
	// behind a newly-opened epoch to claim before it can transact again.
	current := v.ledger.currentDividendEpochTxn(v.txn)
	if b.DividendField != current {
		v.result = IncorrectDividend
		if err := v.ledger.parkUnchecked(v.txn, epochKey(current), b); err != nil {
			v.err = err
			return
		}
		return
	}

	newBalance := b.BalanceField
	switch newBalance.Cmp(prevBalance) {
	case -1: // send
		amount := prevBalance.Sub(newBalance)
		dest := b.LinkField
		if err := putPending(v.txn, dest, v.hash, pendingRecord{Source: b.AccountField.Bytes(), Amount: amount.Bytes()}); err != nil {
			v.err = err
			return
		}
	case 1: // receive
		amount := newBalance.Sub(prevBalance)
		source := b.LinkField
		pend, ok, err := getPending(v.txn, b.AccountField, source)
		if err != nil {
			v.err = err
			return
		}
		if !ok {
			v.result = GapSource
			if err := v.ledger.parkUnchecked(v.txn, source, b); err != nil {
				v.err = err
				return
			}
			return
		}
		if uint128Of(pend.Amount) != amount {
			v.result = BalanceMismatch
			return
		}
		if err := deletePending(v.txn, b.AccountField, source); err != nil {
			v.err = err
			return
		}
	}

	if err := v.commitChain(b, b.AccountField, b.PreviousField, b.RepresentativeField, newBalance, lastClaimed, isOpen); err != nil {
		v.err = err
		return
	}
	v.result = Progress
}

func (v *processVisitor) VisitDividend(b *block.DividendBlock) {
	isOpen := b.PreviousField.IsZero()
	if !v.resolvePosition(b.AccountField, b.PreviousField, b) {
		return
	}

	if b.AccountField != v.ledger.dividendAccount {
		v.result = InvalidDividendAccount
		return
	}
	if b.AmountField.Cmp(v.ledger.minDividendAmount) < 0 {
		v.result = DividendTooSmall
		return
	}

	current := v.ledger.currentDividendEpochTxn(v.txn)
	newEpoch := b.DividendField
	if newEpoch != current+1 {
		v.result = DividendFork
		return
	}

	if current > 0 {
		outstanding, err := v.ledger.hasOutstandingClaimsTxn(v.txn, current)
		if err != nil {
			v.err = err
			return
		}
		if outstanding {
			v.result = OutstandingPendings
			return
		}
	}

	if err := putDividendPool(v.txn, newEpoch, dividendPoolRecord{Remaining: b.AmountField.Bytes()}); err != nil {
		v.err = err
		return
	}
	if err := v.txn.Set([]byte(metaDividendEpochKey), uint64Bytes(newEpoch)); err != nil {
		v.err = err
		return
	}

	var prevBalance numeric.Uint128
	var lastClaimed uint64
	if !isOpen {
		rec, _, err := getAccount(v.txn, b.AccountField)
		if err != nil {
			v.err = err
			return
		}
		prevBalance = rec.balance()
		lastClaimed = rec.LastClaimedDividendEpoch
	}
	// a dividend block only announces newEpoch's pool; it does not itself
	// move the issuing account's own balance.
	if err := v.commitChain(b, b.AccountField, b.PreviousField, v.ledger.dividendAccount, prevBalance, lastClaimed, isOpen); err != nil {
		v.err = err
		return
	}
	v.result = Progress
}

func (v *processVisitor) VisitClaim(b *block.ClaimBlock) {
	isOpen := b.PreviousField.IsZero()
	if !v.resolvePosition(b.AccountField, b.PreviousField, b) {
		return
	}

	dividendBlk, found, err := getBlock(v.txn, b.SourceField)
	if err != nil {
		v.err = err
		return
	}
	if !found {
		v.result = GapSource
		if err := v.ledger.parkUnchecked(v.txn, b.SourceField, b); err != nil {
			v.err = err
			return
		}
		return
	}
	dividendBlock, ok := dividendBlk.(*block.DividendBlock)
	if !ok {
		v.result = GapSource
		return
	}
	epoch := dividendBlock.DividendField
	if b.DividendField != epoch {
		v.result = DividendFork
		return
	}

	var prevBalance numeric.Uint128
	var lastClaimed uint64
	if !isOpen {
		rec, _, err := getAccount(v.txn, b.AccountField)
		if err != nil {
			v.err = err
			return
		}
		prevBalance = rec.balance()
		lastClaimed = rec.LastClaimedDividendEpoch
	}
	if lastClaimed >= epoch {
		v.result = DividendFork
		return
	}

	if b.BalanceField.Cmp(prevBalance) <= 0 {
		v.result = Unreceivable
		return
	}
	amount := b.BalanceField.Sub(prevBalance)

	pool, ok, err := getDividendPool(v.txn, epoch)
	if err != nil {
		v.err = err
		return
	}
	if !ok {
		v.result = GapSource
		return
	}
	remaining := uint128Of(pool.Remaining)
	if amount.Cmp(remaining) > 0 {
		v.result = Unreceivable
		return
	}
	if err := putDividendPool(v.txn, epoch, dividendPoolRecord{Remaining: remaining.Sub(amount).Bytes()}); err != nil {
		v.err = err
		return
	}

	if err := v.commitChain(b, b.AccountField, b.PreviousField, numeric.ZeroUint256, b.BalanceField, epoch, isOpen); err != nil {
		v.err = err
		return
	}
	ek := epochKey(epoch)
	v.extraDrainKey = &ek
	v.result = Progress
}

// commitChain writes blk and advances account's frontier. representative
// of numeric.ZeroUint256 means "leave unchanged" (claim blocks do not
// carry a representative field and pass zero; VisitDividend passes the
// dividend account itself).
func (v *processVisitor) commitChain(blk block.Block, account, previous, representative numeric.Uint256, balance numeric.Uint128, lastClaimed uint64, isOpen bool) error {
	hash := v.hash
	if err := putBlock(v.txn, blk); err != nil {
		return err
	}
	if !isOpen {
		if err := putSuccessor(v.txn, previous, hash); err != nil {
			return err
		}
	}

	rec, ok, err := getAccount(v.txn, account)
	if err != nil {
		return err
	}
	if !ok {
		rec = accountRecord{OpenBlock: hash.Bytes()}
	}
	rec.Head = hash.Bytes()
	rec.Balance = balance.Bytes()
	rec.BlockCount++
	rec.LastClaimedDividendEpoch = lastClaimed
	if !representative.IsZero() {
		rec.Representative = representative.Bytes()
	} else if rec.Representative == nil {
		rec.Representative = numeric.ZeroUint256.Bytes()
	}
	return putAccount(v.txn, account, rec)
}
