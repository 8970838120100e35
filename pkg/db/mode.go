package db

import (
	"errors"

	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/common"
	"github.com/dgraph-io/badger/v3"
)

var operatingModeKey = []byte("INBOUND:OPERATING_MODE:V1")

// ModeDB persists the inbound operating mode.
type ModeDB struct {
	db *badger.DB
}

func NewModeDB(dbConn *badger.DB) *ModeDB {
	return &ModeDB{db: dbConn}
}

// OperatingMode returns the stored mode, defaulting to Normal when none was ever set.
func (d *ModeDB) OperatingMode() (common.OperatingMode, error) {
	mode := common.Normal
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(operatingModeKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 1 {
				return errors.New("malformed operating mode value")
			}
			mode = common.OperatingMode(val[0])
			return nil
		})
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return common.Normal, &DBError{Op: OpRead, Key: operatingModeKey, Err: err}
	}
	return mode, nil
}

func (d *ModeDB) SetOperatingMode(mode common.OperatingMode) error {
	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(operatingModeKey, []byte{byte(mode)})
	})
	if err != nil {
		return &DBError{Op: OpUpdate, Key: operatingModeKey, Err: err}
	}
	return nil
}
