package db

import (
	"encoding/binary"
	"errors"

	"github.com/dgraph-io/badger/v3"
	lru "github.com/hashicorp/golang-lru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	noncesCommittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snowbridge_inbound_nonces_committed_total",
			Help: "Total number of inbound nonces marked consumed",
		})
	noncesDiscardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snowbridge_inbound_nonces_discarded_total",
			Help: "Total number of staged inbound nonces that were rolled back",
		})
)

const (
	noncePrefix = "INBOUND:NONCE:V1:"

	// committedNonceCacheSize is the number of recently consumed nonces answered without a database read.
	committedNonceCacheSize = 4096
)

var (
	ErrNonceConsumed = errors.New("nonce registry: nonce already consumed")
	ErrTxnClosed     = errors.New("nonce registry: transaction already committed or discarded")
)

// NonceDB is the persistent set of consumed inbound nonces. A nonce goes from unseen to consumed at most once and
// is never removed.
type NonceDB struct {
	db        *badger.DB
	committed *lru.Cache
}

func NewNonceDB(dbConn *badger.DB) *NonceDB {
	// lru.New only fails for a non-positive size.
	committed, _ := lru.New(committedNonceCacheSize)
	return &NonceDB{
		db:        dbConn,
		committed: committed,
	}
}

func nonceKey(nonce uint64) []byte {
	key := make([]byte, len(noncePrefix)+8)
	copy(key, noncePrefix)
	binary.BigEndian.PutUint64(key[len(noncePrefix):], nonce)
	return key
}

// HasNonce reports whether the nonce has been consumed by a committed transaction.
func (d *NonceDB) HasNonce(nonce uint64) (bool, error) {
	if d.committed.Contains(nonce) {
		return true, nil
	}

	key := nonceKey(nonce)
	err := d.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	if err == nil {
		d.committed.Add(nonce, struct{}{})
		return true, nil
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return false, &DBError{Op: OpRead, Key: key, Err: err}
}

// NonceTxn is a staged, uncommitted nonce insert.
type NonceTxn struct {
	nonce  uint64
	txn    *badger.Txn
	parent *NonceDB
	closed bool
}

// StageNonce marks the nonce consumed inside a new write transaction. The mark is invisible to every reader until
// Commit is called; Discard drops it.
func (d *NonceDB) StageNonce(nonce uint64) (*NonceTxn, error) {
	key := nonceKey(nonce)
	txn := d.db.NewTransaction(true)

	_, err := txn.Get(key)
	switch {
	case err == nil:
		txn.Discard()
		return nil, ErrNonceConsumed
	case !errors.Is(err, badger.ErrKeyNotFound):
		txn.Discard()
		return nil, &DBError{Op: OpRead, Key: key, Err: err}
	}

	if err := txn.Set(key, []byte{1}); err != nil {
		txn.Discard()
		return nil, &DBError{Op: OpUpdate, Key: key, Err: err}
	}

	return &NonceTxn{nonce: nonce, txn: txn, parent: d}, nil
}

func (t *NonceTxn) Nonce() uint64 {
	return t.nonce
}

// Commit makes the staged nonce durable. A concurrent commit of the same nonce surfaces as badger.ErrConflict.
func (t *NonceTxn) Commit() error {
	if t.closed {
		return ErrTxnClosed
	}
	t.closed = true

	if err := t.txn.Commit(); err != nil {
		t.txn.Discard()
		noncesDiscardedTotal.Inc()
		return &DBError{Op: OpCommit, Key: nonceKey(t.nonce), Err: err}
	}

	t.parent.committed.Add(t.nonce, struct{}{})
	noncesCommittedTotal.Inc()
	return nil
}

// Discard drops the staged nonce. It is a no-op after Commit.
func (t *NonceTxn) Discard() {
	if t.closed {
		return
	}
	t.closed = true
	t.txn.Discard()
	noncesDiscardedTotal.Inc()
}

// MarkNonce stages and commits the nonce in one step.
func (d *NonceDB) MarkNonce(nonce uint64) error {
	txn, err := d.StageNonce(nonce)
	if err != nil {
		return err
	}
	return txn.Commit()
}
