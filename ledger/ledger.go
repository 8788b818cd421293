// Package ledger implements the storage engine contract of spec.md §6 and
// §4.11: the keyed stores (accounts, blocks, pending, frontiers/successors,
// unchecked, votes, and a misc bucket) and the ledger.process state
// machine the block and vote processors depend on. Grounded on the
// teacher's own storage choice, github.com/dgraph-io/badger v1, following
// the BadgerStore idiom of src/hashgraph/badger_store.go (DefaultOptions
// struct copy, db.View/db.NewTransaction(true) + tx.Commit(nil), a
// isDBKeyNotFound helper), with values encoded via github.com/ugorji/go/codec
// instead of the teacher's JSON handle (spec.md §4.11: "not encoding/json").
package ledger

import (
	"sync"

	badger "github.com/dgraph-io/badger"
	"github.com/sirupsen/logrus"

	"github.com/chratos-network/chratos/block"
	"github.com/chratos-network/chratos/common"
	"github.com/chratos-network/chratos/numeric"
)

const (
	accountPrefix      = "accounts/"
	blockPrefix        = "blocks/"
	pendingPrefix      = "pending/"
	successorPrefix    = "frontiers/" // spec.md §6 calls this store "frontiers"; it maps a root/previous hash to its successor
	uncheckedPrefix    = "unchecked/"
	votePrefix         = "votes/"
	dividendPoolPrefix = "dividendpool/"
	metaPrefix         = "meta/"
)

const metaDividendEpochKey = metaPrefix + "dividend_epoch"
const metaDividendAccountKey = metaPrefix + "dividend_account"
const metaMinDividendKey = metaPrefix + "min_dividend"

// Ledger is the storage engine of spec.md §4.11, wrapping a single badger
// database. Block and account-chain mutation happens through
// Process/ProcessBatch, EnsureGenesis and RollbackSuccessor; the setters
// (SetDividendAccount, SetMinDividendAmount, RecordMaxVote) write their
// own records. The accessor methods (Successor, Latest, Balance, Weight) take their own
// read-only transactions.
type Ledger struct {
	db  *badger.DB
	log *logrus.Entry

	mu               sync.Mutex
	dividendAccount  numeric.Uint256
	minDividendAmount numeric.Uint128
}

// Open opens (creating if necessary) a badger-backed ledger at path,
// following the teacher's BadgerStore construction idiom.
func Open(path string, log *logrus.Entry) (*Ledger, error) {
	opts := badger.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.SyncWrites = false
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	l := &Ledger{db: db, log: log}
	if err := l.loadDividendConfig(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// Close releases the underlying badger database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// SetDividendAccount configures the single account permitted to post
// DividendBlocks (spec.md §4.12's designated dividend-issuing account).
// It persists to the misc bucket so it survives a restart.
func (l *Ledger) SetDividendAccount(account numeric.Uint256) error {
	l.mu.Lock()
	l.dividendAccount = account
	l.mu.Unlock()
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(metaDividendAccountKey), account.Bytes())
	})
}

// SetMinDividendAmount configures the minimum acceptable DividendBlock
// amount (spec.md §4.5 dividend_too_small).
func (l *Ledger) SetMinDividendAmount(min numeric.Uint128) error {
	l.mu.Lock()
	l.minDividendAmount = min
	l.mu.Unlock()
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(metaMinDividendKey), min.Bytes())
	})
}

func (l *Ledger) loadDividendConfig() error {
	return l.db.View(func(txn *badger.Txn) error {
		if item, err := txn.Get([]byte(metaDividendAccountKey)); err == nil {
			v, err := item.Value()
			if err != nil {
				return err
			}
			l.dividendAccount = uint256Of(v)
		} else if !isNotFound(err) {
			return err
		}
		if item, err := txn.Get([]byte(metaMinDividendKey)); err == nil {
			v, err := item.Value()
			if err != nil {
				return err
			}
			l.minDividendAmount = uint128Of(v)
		} else if !isNotFound(err) {
			return err
		}
		return nil
	})
}

//==============================================================================
// Keys

func accountKey(a numeric.Uint256) []byte { return append([]byte(accountPrefix), a.Bytes()...) }
func blockKey(h numeric.Uint256) []byte   { return append([]byte(blockPrefix), h.Bytes()...) }
func pendingKey(dest, sourceHash numeric.Uint256) []byte {
	k := append([]byte(pendingPrefix), dest.Bytes()...)
	return append(k, sourceHash.Bytes()...)
}
func successorKey(root numeric.Uint256) []byte { return append([]byte(successorPrefix), root.Bytes()...) }
func uncheckedKey(dep numeric.Uint256) []byte  { return append([]byte(uncheckedPrefix), dep.Bytes()...) }
func voteKey(account numeric.Uint256) []byte   { return append([]byte(votePrefix), account.Bytes()...) }
func dividendPoolKey(epoch uint64) []byte {
	var e [8]byte
	putUint64(e[:], epoch)
	return append([]byte(dividendPoolPrefix), e[:]...)
}

// epochKey encodes a dividend epoch number as a Uint256 so it can share
// the unchecked/ store's (numeric.Uint256 → parked blocks) keying with
// real block hashes (spec.md §4.12's incorrect_dividend parking).
func epochKey(epoch uint64) numeric.Uint256 {
	var u numeric.Uint256
	putUint64(u[24:], epoch)
	return u
}

func putUint64(dst []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		dst[i] = byte(v)
		v >>= 8
	}
}

func isNotFound(err error) bool {
	return err != nil && err.Error() == badger.ErrKeyNotFound.Error()
}

func mapErr(err error, kind, key string) error {
	if isNotFound(err) {
		return common.NewStoreErr(kind, common.KeyNotFound, key)
	}
	return err
}

//==============================================================================
// Generic get/put helpers (operate inside a caller-supplied transaction)

func getValue(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.Value()
}

func getAccount(txn *badger.Txn, account numeric.Uint256) (accountRecord, bool, error) {
	var rec accountRecord
	v, err := getValue(txn, accountKey(account))
	if err != nil {
		if isNotFound(err) {
			return rec, false, nil
		}
		return rec, false, err
	}
	if err := decode(v, &rec); err != nil {
		return rec, false, err
	}
	return rec, true, nil
}

func putAccount(txn *badger.Txn, account numeric.Uint256, rec accountRecord) error {
	v, err := encode(rec)
	if err != nil {
		return err
	}
	return txn.Set(accountKey(account), v)
}

// Block returns the committed block identified by hash, or a
// common.StoreErr(KeyNotFound) if no such block has been committed. Used by
// callers (block processor fork resolution, future RPC surfaces) that want
// a typed error rather than the internal get/ok form.
func (l *Ledger) Block(hash numeric.Uint256) (block.Block, error) {
	var v []byte
	err := l.db.View(func(txn *badger.Txn) error {
		var err error
		v, err = getValue(txn, blockKey(hash))
		return err
	})
	if err != nil {
		return nil, mapErr(err, "block", hash.Hex())
	}
	var s storedBlock
	if err := decode(v, &s); err != nil {
		return nil, err
	}
	return fromStoredBlock(s), nil
}

func getBlock(txn *badger.Txn, hash numeric.Uint256) (block.Block, bool, error) {
	v, err := getValue(txn, blockKey(hash))
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var s storedBlock
	if err := decode(v, &s); err != nil {
		return nil, false, err
	}
	return fromStoredBlock(s), true, nil
}

func putBlock(txn *badger.Txn, b block.Block) error {
	v, err := encode(toStoredBlock(b))
	if err != nil {
		return err
	}
	return txn.Set(blockKey(b.Hash()), v)
}

func deleteBlock(txn *badger.Txn, hash numeric.Uint256) error {
	return txn.Delete(blockKey(hash))
}

func getSuccessor(txn *badger.Txn, root numeric.Uint256) (numeric.Uint256, bool, error) {
	v, err := getValue(txn, successorKey(root))
	if err != nil {
		if isNotFound(err) {
			return numeric.ZeroUint256, false, nil
		}
		return numeric.ZeroUint256, false, err
	}
	return uint256Of(v), true, nil
}

func putSuccessor(txn *badger.Txn, root, next numeric.Uint256) error {
	return txn.Set(successorKey(root), next.Bytes())
}

func deleteSuccessor(txn *badger.Txn, root numeric.Uint256) error {
	return txn.Delete(successorKey(root))
}

func getPending(txn *badger.Txn, dest, sourceHash numeric.Uint256) (pendingRecord, bool, error) {
	var rec pendingRecord
	v, err := getValue(txn, pendingKey(dest, sourceHash))
	if err != nil {
		if isNotFound(err) {
			return rec, false, nil
		}
		return rec, false, err
	}
	if err := decode(v, &rec); err != nil {
		return rec, false, err
	}
	return rec, true, nil
}

func putPending(txn *badger.Txn, dest, sourceHash numeric.Uint256, rec pendingRecord) error {
	v, err := encode(rec)
	if err != nil {
		return err
	}
	return txn.Set(pendingKey(dest, sourceHash), v)
}

func deletePending(txn *badger.Txn, dest, sourceHash numeric.Uint256) error {
	return txn.Delete(pendingKey(dest, sourceHash))
}

func getDividendPool(txn *badger.Txn, epoch uint64) (dividendPoolRecord, bool, error) {
	var rec dividendPoolRecord
	v, err := getValue(txn, dividendPoolKey(epoch))
	if err != nil {
		if isNotFound(err) {
			return rec, false, nil
		}
		return rec, false, err
	}
	if err := decode(v, &rec); err != nil {
		return rec, false, err
	}
	return rec, true, nil
}

func putDividendPool(txn *badger.Txn, epoch uint64, rec dividendPoolRecord) error {
	v, err := encode(rec)
	if err != nil {
		return err
	}
	return txn.Set(dividendPoolKey(epoch), v)
}

//==============================================================================
// Public read accessors

// Successor returns the hash of the block committed immediately after
// root (root is either a previous-block hash or, for an account-opening
// block, the account itself).
func (l *Ledger) Successor(root numeric.Uint256) (numeric.Uint256, bool) {
	var next numeric.Uint256
	var ok bool
	_ = l.db.View(func(txn *badger.Txn) error {
		var err error
		next, ok, err = getSuccessor(txn, root)
		return err
	})
	return next, ok
}

// Latest returns account's current frontier (head block hash).
func (l *Ledger) Latest(account numeric.Uint256) (numeric.Uint256, bool) {
	var head numeric.Uint256
	var ok bool
	_ = l.db.View(func(txn *badger.Txn) error {
		rec, found, err := getAccount(txn, account)
		if err != nil {
			return err
		}
		ok = found
		if found {
			head = rec.head()
		}
		return nil
	})
	return head, ok
}

// Balance returns account's current balance, or zero if the account has
// never been opened.
func (l *Ledger) Balance(account numeric.Uint256) numeric.Uint128 {
	var bal numeric.Uint128
	_ = l.db.View(func(txn *badger.Txn) error {
		rec, found, err := getAccount(txn, account)
		if err != nil {
			return err
		}
		if found {
			bal = rec.balance()
		}
		return nil
	})
	return bal
}

// Weight returns the total delegated balance for representative: the sum
// of every account's balance whose Representative field names it. This is
// computed by a prefix scan of the accounts/ store (small-network scale;
// spec.md places no bound on this beyond "ledger weight of representatives").
func (l *Ledger) Weight(representative numeric.Uint256) numeric.Uint128 {
	total := numeric.ZeroUint128
	_ = l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(accountPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			v, err := it.Item().Value()
			if err != nil {
				return err
			}
			var rec accountRecord
			if err := decode(v, &rec); err != nil {
				return err
			}
			if rec.representative() == representative {
				total = total.Add(rec.balance())
			}
		}
		return nil
	})
	return total
}

// CurrentDividendEpoch returns the most recently opened dividend epoch
// number, or 0 if no DividendBlock has ever been committed (spec.md
// §4.12).
func (l *Ledger) CurrentDividendEpoch() uint64 {
	var epoch uint64
	_ = l.db.View(func(txn *badger.Txn) error {
		v, err := getValue(txn, []byte(metaDividendEpochKey))
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}
		_, epoch = readUint64(v, 0)
		return nil
	})
	return epoch
}

func readUint64(src []byte, off int) (int, uint64) {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(src[off+i])
	}
	return off + 8, v
}

// LastClaimedDividendEpoch returns the dividend epoch through which
// account has claimed, or 0 if the account has never claimed (or never
// been opened).
func (l *Ledger) LastClaimedDividendEpoch(account numeric.Uint256) uint64 {
	var epoch uint64
	_ = l.db.View(func(txn *badger.Txn) error {
		rec, ok, err := getAccount(txn, account)
		if err != nil {
			return err
		}
		if ok {
			epoch = rec.LastClaimedDividendEpoch
		}
		return nil
	})
	return epoch
}

// MaxVote returns the highest (sequence, hash) pair ever recorded for
// account by RecordMaxVote, used by the vote processor's replay check
// (spec.md §4.7).
func (l *Ledger) MaxVote(account numeric.Uint256) (sequence uint64, hash numeric.Uint256, ok bool) {
	_ = l.db.View(func(txn *badger.Txn) error {
		v, err := getValue(txn, voteKey(account))
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}
		var rec voteRecord
		if err := decode(v, &rec); err != nil {
			return err
		}
		sequence = rec.Sequence
		hash = uint256Of(rec.Hash)
		ok = true
		return nil
	})
	return sequence, hash, ok
}

// RecordMaxVote persists (sequence, hash) as account's new highest-known
// vote. Callers are expected to have already checked vote.Supersedes
// against the prior MaxVote.
func (l *Ledger) RecordMaxVote(account numeric.Uint256, sequence uint64, hash numeric.Uint256) error {
	rec := voteRecord{Sequence: sequence, Hash: hash.Bytes()}
	v, err := encode(rec)
	if err != nil {
		return err
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(voteKey(account), v)
	})
}

// RollbackSuccessor removes the block committed immediately after root
// from the ledger (restoring the account to root's position), used by the
// block processor's forced-path reconciliation (spec.md §4.5: "if the
// ledger's successor(root) differs from the forced block's hash, the
// successor is rolled back before the forced block is processed").
func (l *Ledger) RollbackSuccessor(root numeric.Uint256) error {
	return l.db.Update(func(txn *badger.Txn) error {
		next, ok, err := getSuccessor(txn, root)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		b, found, err := getBlock(txn, next)
		if err != nil {
			return err
		}
		if !found {
			return deleteSuccessor(txn, root)
		}
		acc := accountOf(b)
		rec, ok, err := getAccount(txn, acc)
		if err != nil {
			return err
		}
		if ok {
			if rec.head() == next {
				if root.IsZero() || rec.openBlock() == next {
					// rolling back the account's only block: drop the account entirely
					if err := txn.Delete(accountKey(acc)); err != nil {
						return err
					}
				} else {
					rec.Head = root.Bytes()
					rec.BlockCount--
					if err := putAccount(txn, acc, rec); err != nil {
						return err
					}
				}
			}
		}
		if err := deleteBlock(txn, next); err != nil {
			return err
		}
		return deleteSuccessor(txn, root)
	})
}

// EnsureGenesis bootstraps an empty ledger with the genesis account
// holding totalSupply, exactly as chratos::node::node does during
// construction (spec.md §8 scenario 1). It is a no-op if the genesis
// account already has a frontier.
func (l *Ledger) EnsureGenesis(genesisAccount numeric.Uint256, totalSupply numeric.Uint128) (numeric.Uint256, error) {
	var genesisHash numeric.Uint256
	err := l.db.Update(func(txn *badger.Txn) error {
		if rec, ok, err := getAccount(txn, genesisAccount); err != nil {
			return err
		} else if ok {
			genesisHash = rec.head()
			return nil
		}

		genesis := &block.StateBlock{
			AccountField:        genesisAccount,
			PreviousField:       numeric.ZeroUint256,
			RepresentativeField: genesisAccount,
			BalanceField:        totalSupply,
			LinkField:           numeric.ZeroUint256,
		}
		genesisHash = genesis.Hash()

		if err := putBlock(txn, genesis); err != nil {
			return err
		}
		rec := accountRecord{
			Head:           genesisHash.Bytes(),
			OpenBlock:      genesisHash.Bytes(),
			Representative: genesisAccount.Bytes(),
			Balance:        totalSupply.Bytes(),
			BlockCount:     1,
		}
		return putAccount(txn, genesisAccount, rec)
	})
	return genesisHash, err
}
