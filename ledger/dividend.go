package ledger

import (
	badger "github.com/dgraph-io/badger"
)

func uint64Bytes(v uint64) []byte {
	var b [8]byte
	putUint64(b[:], v)
	return b[:]
}

// currentDividendEpochTxn is CurrentDividendEpoch's in-transaction form,
// used by VisitDividend while it already holds a writable transaction.
func (l *Ledger) currentDividendEpochTxn(txn *badger.Txn) uint64 {
	v, err := getValue(txn, []byte(metaDividendEpochKey))
	if err != nil {
		return 0
	}
	_, epoch := readUint64(v, 0)
	return epoch
}

// hasOutstandingClaimsTxn reports whether any account with a nonzero
// balance has not yet claimed epoch (spec.md §4.5 outstanding_pendings):
// a new DividendBlock cannot open the next epoch while a prior one still
// has unclaimed stakeholders. Implemented as a prefix scan of accounts/,
// acceptable at the network scale this implementation targets.
func (l *Ledger) hasOutstandingClaimsTxn(txn *badger.Txn, epoch uint64) (bool, error) {
	opts := badger.DefaultIteratorOptions
	it := txn.NewIterator(opts)
	defer it.Close()
	prefix := []byte(accountPrefix)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().Key()
		account := uint256Of(key[len(prefix):])
		if account == l.dividendAccount {
			continue
		}
		v, err := it.Item().Value()
		if err != nil {
			return false, err
		}
		var rec accountRecord
		if err := decode(v, &rec); err != nil {
			return false, err
		}
		if uint128Of(rec.Balance).IsZero() {
			continue
		}
		if rec.LastClaimedDividendEpoch < epoch {
			return true, nil
		}
	}
	return false, nil
}
