package db

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var deliveredMessagesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "snowbridge_outbound_messages_committed_total",
		Help: "Total number of outbound messages committed for the gateway",
	})

// Define prefixes used to isolate the outbound queue's records.
const (
	ticketPrefix  = "OUTBOUND:TICKET:V1:"
	messagePrefix = "OUTBOUND:MESSAGE:V1:"
)

var (
	outboundNonceKey = []byte("OUTBOUND:NONCE:V1")

	ErrTicketSpent     = errors.New("outbound queue: ticket already delivered")
	ErrMessageNotFound = errors.New("outbound queue: message not found")
	ErrMaxNonceReached = errors.New("outbound queue: max nonce reached")
)

// QueueDB stores committed outbound messages and the tickets they were delivered with.
type QueueDB struct {
	db *badger.DB
}

func NewQueueDB(dbConn *badger.DB) *QueueDB {
	return &QueueDB{db: dbConn}
}

func ticketKey(ticketID []byte) []byte {
	return append([]byte(ticketPrefix), ticketID...)
}

func messageKey(nonce uint64) []byte {
	key := make([]byte, len(messagePrefix)+8)
	copy(key, messagePrefix)
	binary.BigEndian.PutUint64(key[len(messagePrefix):], nonce)
	return key
}

// CommitMessage records the ticket as spent and stores the message built for the next outbound nonce, atomically.
// Returns ErrTicketSpent if the ticket was delivered before. Nothing is written if build fails.
func (d *QueueDB) CommitMessage(ticketID []byte, build func(nonce uint64) ([]byte, error)) (uint64, error) {
	var nonce uint64
	err := d.db.Update(func(txn *badger.Txn) error {
		tk := ticketKey(ticketID)
		if _, err := txn.Get(tk); err == nil {
			return ErrTicketSpent
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return &DBError{Op: OpRead, Key: tk, Err: err}
		}

		next, err := readNonce(txn)
		if err != nil {
			return err
		}
		if next == math.MaxUint64 {
			return ErrMaxNonceReached
		}
		nonce = next + 1

		message, err := build(nonce)
		if err != nil {
			return err
		}

		var nb [8]byte
		binary.BigEndian.PutUint64(nb[:], nonce)
		if err := txn.Set(outboundNonceKey, nb[:]); err != nil {
			return &DBError{Op: OpUpdate, Key: outboundNonceKey, Err: err}
		}
		if err := txn.Set(messageKey(nonce), message); err != nil {
			return &DBError{Op: OpUpdate, Key: messageKey(nonce), Err: err}
		}
		if err := txn.Set(tk, nb[:]); err != nil {
			return &DBError{Op: OpUpdate, Key: tk, Err: err}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	deliveredMessagesTotal.Inc()
	return nonce, nil
}

func readNonce(txn *badger.Txn) (uint64, error) {
	item, err := txn.Get(outboundNonceKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, &DBError{Op: OpRead, Key: outboundNonceKey, Err: err}
	}
	var nonce uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("malformed outbound nonce of length %d", len(val))
		}
		nonce = binary.BigEndian.Uint64(val)
		return nil
	})
	if err != nil {
		return 0, &DBError{Op: OpRead, Key: outboundNonceKey, Err: err}
	}
	return nonce, nil
}

// OutboundNonce returns the nonce of the last committed message, or zero.
func (d *QueueDB) OutboundNonce() (nonce uint64, err error) {
	err = d.db.View(func(txn *badger.Txn) error {
		nonce, err = readNonce(txn)
		return err
	})
	return
}

// GetMessage returns the message committed under nonce.
func (d *QueueDB) GetMessage(nonce uint64) (b []byte, err error) {
	key := messageKey(nonce)
	if err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		b, err = item.ValueCopy(nil)
		return err
	}); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, &DBError{Op: OpRead, Key: key, Err: err}
	}
	return
}
