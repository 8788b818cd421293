package ledger

import (
	badger "github.com/dgraph-io/badger"

	"github.com/chratos-network/chratos/block"
	"github.com/chratos-network/chratos/numeric"
)

// uncheckedRecord is the unchecked/ store's value: every block currently
// parked under one missing dependency (spec.md §4.5: "park the block
// under the missing dependency in the unchecked index").
type uncheckedRecord struct {
	Blocks []storedBlock
}

// parkUnchecked records b as waiting on dep (a block hash for
// gap_previous/gap_source, or a synthetic epoch key for
// incorrect_dividend; see epochKey).
func (l *Ledger) parkUnchecked(txn *badger.Txn, dep numeric.Uint256, b block.Block) error {
	var rec uncheckedRecord
	v, err := getValue(txn, uncheckedKey(dep))
	if err != nil && !isNotFound(err) {
		return err
	}
	if err == nil {
		if err := decode(v, &rec); err != nil {
			return err
		}
	}
	rec.Blocks = append(rec.Blocks, toStoredBlock(b))
	encoded, err := encode(rec)
	if err != nil {
		return err
	}
	return txn.Set(uncheckedKey(dep), encoded)
}

// drainUnchecked removes and returns every block parked under dep.
func (l *Ledger) drainUnchecked(txn *badger.Txn, dep numeric.Uint256) ([]block.Block, error) {
	v, err := getValue(txn, uncheckedKey(dep))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var rec uncheckedRecord
	if err := decode(v, &rec); err != nil {
		return nil, err
	}
	if err := txn.Delete(uncheckedKey(dep)); err != nil {
		return nil, err
	}
	out := make([]block.Block, 0, len(rec.Blocks))
	for _, s := range rec.Blocks {
		out = append(out, fromStoredBlock(s))
	}
	return out, nil
}
