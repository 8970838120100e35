package bridge

import (
	"encoding/hex"

	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/xcm"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const devwarning = `
        +++++++++++++++++++++++++++++++++++++++++++++++++++
        |   NODE IS RUNNING IN INSECURE DEVELOPMENT MODE  |
        |                                                 |
        |   Inbound proofs are NOT verified. Do not use   |
        |   this mode with real funds.                    |
        +++++++++++++++++++++++++++++++++++++++++++++++++++

`

// acceptAllVerifier stands in for the light client in development mode.
type acceptAllVerifier struct{}

func (acceptAllVerifier) Verify(eventLog, proof []byte) error {
	return nil
}

// logSender writes forwarded programs to the log instead of a parachain transport.
type logSender struct {
	logger *zap.Logger
}

func (s logSender) Send(dest xcm.Location, prog xcm.Program) (common.Hash, xcm.Assets, error) {
	id, err := xcm.MessageID(prog)
	if err != nil {
		return common.Hash{}, nil, xcm.NewTransportError(err.Error())
	}
	encoded, err := xcm.EncodeVersioned(&xcm.Versioned{Version: xcm.CurrentVersion, Program: prog})
	if err != nil {
		return common.Hash{}, nil, xcm.NewTransportError(err.Error())
	}

	s.logger.Info("forwarding program",
		zap.Stringer("dest", dest),
		zap.Stringer("message_id", id),
		zap.String("program", hex.EncodeToString(encoded)),
	)
	return id, nil, nil
}
