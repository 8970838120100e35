package outboundqueue

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/db"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/outbound"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/near/borsh-go"
	"go.uber.org/zap"
)

// DefaultMaxMessageSize bounds the encoded size of a committed message.
const DefaultMaxMessageSize = 2048

var (
	ErrNoCommands         = errors.New("outbound queue: message has no commands")
	ErrMessageTooLarge    = errors.New("outbound queue: message too large")
	ErrUnsupportedCommand = errors.New("outbound queue: unsupported command")
	ErrInvalidAmount      = errors.New("outbound queue: amount out of range")
)

type Config struct {
	MaxMessageSize int
	// BaseFee is charged locally for every message.
	BaseFee uint256.Int
	// GasPrice converts the gas forwarded to the gateway into the remote fee.
	GasPrice uint256.Int
}

// Queue is a badger-backed outbound.Queue.
type Queue struct {
	logger *zap.Logger
	cfg    Config
	store  *db.QueueDB
}

func New(logger *zap.Logger, cfg Config, store *db.QueueDB) *Queue {
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	return &Queue{
		logger: logger.With(zap.String("component", "outbound_queue")),
		cfg:    cfg,
		store:  store,
	}
}

// ticket is the borsh-encoded handle returned by Validate. ID makes every ticket single-use.
type ticket struct {
	ID       string
	Origin   [32]byte
	Topic    [32]byte
	Commands []commandWrapper
}

// Validate encodes the message's commands, checks its size and quotes the delivery fee.
func (q *Queue) Validate(msg *outbound.Message) ([]byte, outbound.Fee, error) {
	if len(msg.Commands) == 0 {
		return nil, outbound.Fee{}, ErrNoCommands
	}
	if len(msg.Commands) > outbound.MaxCommands {
		return nil, outbound.Fee{}, outbound.ErrTooManyCommands
	}

	commands := make([]commandWrapper, 0, len(msg.Commands))
	var gas uint64
	for _, cmd := range msg.Commands {
		w, err := encodeCommand(cmd)
		if err != nil {
			return nil, outbound.Fee{}, err
		}
		gas += w.Gas
		commands = append(commands, w)
	}

	// The nonce is assigned on delivery; its encoding has a fixed width.
	encoded, err := encodeMessage(msg.Origin, 0, msg.ID, commands)
	if err != nil {
		return nil, outbound.Fee{}, fmt.Errorf("failed to encode message: %w", err)
	}
	if len(encoded) > q.cfg.MaxMessageSize {
		return nil, outbound.Fee{}, fmt.Errorf("%w: %d > %d bytes", ErrMessageTooLarge, len(encoded), q.cfg.MaxMessageSize)
	}

	t := ticket{
		ID:       uuid.New().String(),
		Origin:   msg.Origin,
		Topic:    msg.ID,
		Commands: commands,
	}
	blob, err := borsh.Serialize(t)
	if err != nil {
		return nil, outbound.Fee{}, fmt.Errorf("failed to encode ticket: %w", err)
	}

	fee := outbound.Fee{Local: q.cfg.BaseFee}
	if _, overflow := fee.Remote.MulOverflow(uint256.NewInt(gas), &q.cfg.GasPrice); overflow {
		return nil, outbound.Fee{}, fmt.Errorf("%w: remote fee overflows", ErrInvalidAmount)
	}

	q.logger.Debug("validated message",
		zap.String("ticket", t.ID),
		zap.Stringer("message_id", msg.ID),
		zap.Int("size", len(encoded)),
		zap.Uint64("gas", gas),
	)
	return blob, fee, nil
}

// decodeTicket rejects blobs larger than maxSize. A valid ticket is never larger than its encoded message.
func decodeTicket(blob []byte, maxSize int) (t *ticket, err error) {
	if len(blob) > maxSize {
		return nil, fmt.Errorf("%w: %d bytes", outbound.ErrUndecodableTicket, len(blob))
	}
	if err := checkTicketLayout(blob); err != nil {
		return nil, fmt.Errorf("%w: %w", outbound.ErrUndecodableTicket, err)
	}
	// borsh panics on some truncated inputs
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, fmt.Errorf("%w: %v", outbound.ErrUndecodableTicket, r)
		}
	}()

	t = &ticket{}
	if err := borsh.Deserialize(t, blob); err != nil {
		return nil, fmt.Errorf("%w: %w", outbound.ErrUndecodableTicket, err)
	}
	if _, err := uuid.Parse(t.ID); err != nil {
		return nil, fmt.Errorf("%w: invalid ticket id: %w", outbound.ErrUndecodableTicket, err)
	}
	if len(t.Commands) == 0 || len(t.Commands) > outbound.MaxCommands {
		return nil, fmt.Errorf("%w: %d commands", outbound.ErrUndecodableTicket, len(t.Commands))
	}
	return t, nil
}

var errTicketLayout = errors.New("length prefix exceeds ticket")

// checkTicketLayout walks the length prefixes of a ticket so no prefix can make the decoder allocate past the blob.
func checkTicketLayout(blob []byte) error {
	r := blob
	skip := func(n uint64) error {
		if n > uint64(len(r)) {
			return errTicketLayout
		}
		r = r[n:]
		return nil
	}
	length := func() (uint64, error) {
		if len(r) < 4 {
			return 0, errTicketLayout
		}
		n := uint64(binary.LittleEndian.Uint32(r))
		r = r[4:]
		return n, nil
	}

	n, err := length()
	if err != nil {
		return err
	}
	if err := skip(n + 64); err != nil {
		return err
	}
	count, err := length()
	if err != nil {
		return err
	}
	if count > outbound.MaxCommands {
		return errTicketLayout
	}
	for i := uint64(0); i < count; i++ {
		if err := skip(9); err != nil {
			return err
		}
		n, err := length()
		if err != nil {
			return err
		}
		if err := skip(n); err != nil {
			return err
		}
	}
	if len(r) != 0 {
		return errTicketLayout
	}
	return nil
}

// Deliver commits the message of a ticket under the next outbound nonce and returns its id.
func (q *Queue) Deliver(blob []byte) (common.Hash, error) {
	t, err := decodeTicket(blob, q.cfg.MaxMessageSize)
	if err != nil {
		return common.Hash{}, err
	}

	nonce, err := q.store.CommitMessage([]byte(t.ID), func(nonce uint64) ([]byte, error) {
		return encodeMessage(t.Origin, nonce, t.Topic, t.Commands)
	})
	if errors.Is(err, db.ErrTicketSpent) {
		return common.Hash{}, fmt.Errorf("%w: %s", outbound.ErrTicketSpent, t.ID)
	} else if err != nil {
		return common.Hash{}, fmt.Errorf("failed to commit message: %w", err)
	}

	q.logger.Info("committed outbound message",
		zap.String("ticket", t.ID),
		zap.Uint64("nonce", nonce),
		zap.Stringer("message_id", common.Hash(t.Topic)),
	)
	return t.Topic, nil
}
