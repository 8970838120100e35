package db

import (
	"testing"

	"github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openNonceDB(t *testing.T) *NonceDB {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	badgerDB, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { badgerDB.Close() })
	return NewNonceDB(badgerDB)
}

func TestNonceKey(t *testing.T) {
	assert.Equal(t, []byte("INBOUND:NONCE:V1:\x00\x00\x00\x00\x00\x00\x00\x05"), nonceKey(5))
}

func TestNonceDBMarkAndHas(t *testing.T) {
	d := openNonceDB(t)

	has, err := d.HasNonce(5)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, d.MarkNonce(5))

	has, err = d.HasNonce(5)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = d.HasNonce(6)
	require.NoError(t, err)
	assert.False(t, has)

	// A consumed nonce can never be consumed again.
	assert.ErrorIs(t, d.MarkNonce(5), ErrNonceConsumed)
}

func TestNonceDBStagedIsInvisibleUntilCommit(t *testing.T) {
	d := openNonceDB(t)

	txn, err := d.StageNonce(7)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), txn.Nonce())

	has, err := d.HasNonce(7)
	require.NoError(t, err)
	assert.False(t, has, "staged nonce must not be visible before commit")

	require.NoError(t, txn.Commit())

	has, err = d.HasNonce(7)
	require.NoError(t, err)
	assert.True(t, has)

	// Discard after commit is a no-op and a second commit is refused.
	txn.Discard()
	assert.ErrorIs(t, txn.Commit(), ErrTxnClosed)

	has, err = d.HasNonce(7)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestNonceDBDiscardRollsBack(t *testing.T) {
	d := openNonceDB(t)

	txn, err := d.StageNonce(9)
	require.NoError(t, err)
	txn.Discard()

	has, err := d.HasNonce(9)
	require.NoError(t, err)
	assert.False(t, has)

	// The nonce can be consumed by a later attempt.
	require.NoError(t, d.MarkNonce(9))
	has, err = d.HasNonce(9)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestNonceDBConcurrentStageConflicts(t *testing.T) {
	d := openNonceDB(t)

	first, err := d.StageNonce(11)
	require.NoError(t, err)
	second, err := d.StageNonce(11)
	require.NoError(t, err)

	require.NoError(t, first.Commit())

	err = second.Commit()
	require.Error(t, err)
	assert.ErrorIs(t, err, badger.ErrConflict)
}

func TestNonceDBSurvivesCacheMiss(t *testing.T) {
	d := openNonceDB(t)
	require.NoError(t, d.MarkNonce(3))

	d.committed.Purge()

	has, err := d.HasNonce(3)
	require.NoError(t, err)
	assert.True(t, has)
	assert.True(t, d.committed.Contains(uint64(3)))
}
