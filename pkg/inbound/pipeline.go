package inbound

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/common"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/db"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/xcm"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// DefaultAssetHubParaID is the parachain every inbound program is forwarded to.
const DefaultAssetHubParaID = 1000

type Config struct {
	// GatewayAddress is the only contract whose events are accepted.
	GatewayAddress ethcommon.Address
	AssetHubParaID uint32
	// MaxDecodeDepth bounds program nesting. Zero means xcm.MaxDecodeDepth.
	MaxDecodeDepth int
}

// NonceStore is the consumed-nonce set. db.NonceDB implements it.
type NonceStore interface {
	HasNonce(nonce uint64) (bool, error)
	StageNonce(nonce uint64) (*db.NonceTxn, error)
}

// ModeStore persists the operating mode. db.ModeDB implements it.
type ModeStore interface {
	OperatingMode() (common.OperatingMode, error)
	SetOperatingMode(mode common.OperatingMode) error
}

// Pipeline turns gateway event logs into programs forwarded to asset hub. Submissions are processed one at a time;
// a nonce is consumed only if the transport accepted the message.
//
// Sending and committing the nonce are not atomic. If the commit fails after the transport accepted the message,
// Submit returns ErrNonceCommitFailed: the message was forwarded, the nonce is still unconsumed and a resubmission
// forwards it again.
type Pipeline struct {
	logger   *zap.Logger
	cfg      Config
	dest     xcm.Location
	verifier Verifier
	nonces   NonceStore
	modes    ModeStore
	sender   xcm.Sender
	eventC   chan<- Event

	mu sync.Mutex
}

func NewPipeline(
	logger *zap.Logger,
	cfg Config,
	verifier Verifier,
	nonces NonceStore,
	modes ModeStore,
	sender xcm.Sender,
	eventC chan<- Event,
) *Pipeline {
	if cfg.MaxDecodeDepth == 0 {
		cfg.MaxDecodeDepth = xcm.MaxDecodeDepth
	}
	return &Pipeline{
		logger:   logger.With(zap.String("component", "inbound")),
		cfg:      cfg,
		dest:     xcm.NewLocation(1, xcm.Parachain(cfg.AssetHubParaID)),
		verifier: verifier,
		nonces:   nonces,
		modes:    modes,
		sender:   sender,
		eventC:   eventC,
	}
}

// Destination is the location every accepted program is sent to.
func (p *Pipeline) Destination() xcm.Location {
	return p.dest
}

// Submit verifies, decodes and forwards a single message.
func (p *Pipeline) Submit(ctx context.Context, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ev, err := p.submit(msg)
	if err != nil {
		messagesRejectedTotal.WithLabelValues(rejectReason(err)).Inc()
		p.logger.Info("rejected inbound message", zap.Error(err))
		return err
	}

	messagesReceivedTotal.Inc()
	p.logger.Info("message received",
		zap.Uint64("nonce", ev.Nonce),
		zap.Stringer("message_id", ev.MessageID),
	)
	p.emit(ctx, ev)
	return nil
}

func (p *Pipeline) submit(msg Message) (*MessageReceived, error) {
	mode, err := p.modes.OperatingMode()
	if err != nil {
		return nil, fmt.Errorf("failed to read operating mode: %w", err)
	}
	if mode.IsHalted() {
		return nil, ErrHalted
	}

	if err := p.verifier.Verify(msg.EventLog, msg.Proof); err != nil {
		var ve *VerificationError
		if !errors.As(err, &ve) {
			ve = &VerificationError{Kind: VerificationInvalidProof, Err: err}
		}
		return nil, ve
	}

	envelope, err := DecodeEnvelope(msg.EventLog)
	if err != nil {
		return nil, err
	}

	if envelope.Gateway != p.cfg.GatewayAddress {
		return nil, fmt.Errorf("%w: %s", ErrInvalidGateway, envelope.Gateway)
	}

	consumed, err := p.nonces.HasNonce(envelope.Nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to look up nonce %d: %w", envelope.Nonce, err)
	}
	if consumed {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNonce, envelope.Nonce)
	}

	payload, err := DecodePayload(envelope.Payload)
	if err != nil {
		return nil, err
	}

	versioned, err := xcm.DecodeVersioned(payload.XCM, p.cfg.MaxDecodeDepth)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	program, err := versioned.Convert()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	if ce := p.logger.Check(zap.DebugLevel, "decoded program"); ce != nil {
		ce.Write(
			zap.Uint64("nonce", envelope.Nonce),
			zap.Stringer("fee", payload.Fee.ToBig()),
			zap.Stringer("program", program),
		)
	}

	txn, err := p.nonces.StageNonce(envelope.Nonce)
	if errors.Is(err, db.ErrNonceConsumed) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNonce, envelope.Nonce)
	} else if err != nil {
		return nil, fmt.Errorf("failed to stage nonce %d: %w", envelope.Nonce, err)
	}

	messageID, _, err := p.sender.Send(p.dest, program)
	if err != nil {
		txn.Discard()
		return nil, newSendError(err)
	}

	if err := txn.Commit(); err != nil {
		// The transport already accepted the message; the nonce stays unconsumed.
		p.logger.Error("failed to commit nonce after forwarding message",
			zap.Uint64("nonce", envelope.Nonce),
			zap.Stringer("message_id", messageID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: nonce %d: %w", ErrNonceCommitFailed, envelope.Nonce, err)
	}

	return &MessageReceived{Nonce: envelope.Nonce, MessageID: messageID}, nil
}

// SetOperatingMode halts or resumes the pipeline.
func (p *Pipeline) SetOperatingMode(ctx context.Context, mode common.OperatingMode) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.modes.SetOperatingMode(mode); err != nil {
		return err
	}
	p.logger.Info("operating mode changed", zap.Stringer("mode", mode))
	p.emit(ctx, &OperatingModeChanged{Mode: mode})
	return nil
}

func (p *Pipeline) emit(ctx context.Context, ev Event) {
	if p.eventC == nil {
		return
	}
	select {
	case p.eventC <- ev:
	case <-ctx.Done():
		p.logger.Warn("dropped event", zap.String("event", ev.eventName()), zap.Error(ctx.Err()))
	}
}

func rejectReason(err error) string {
	var (
		ve *VerificationError
		se *SendError
	)
	switch {
	case errors.Is(err, ErrHalted):
		return "halted"
	case errors.Is(err, ErrNonceCommitFailed):
		return "nonce_commit"
	case errors.As(err, &ve):
		return "verification"
	case errors.Is(err, ErrInvalidEnvelope):
		return "invalid_envelope"
	case errors.Is(err, ErrInvalidGateway):
		return "invalid_gateway"
	case errors.Is(err, ErrInvalidNonce):
		return "invalid_nonce"
	case errors.Is(err, ErrInvalidPayload):
		return "invalid_payload"
	case errors.As(err, &se):
		return "send"
	default:
		return "internal"
	}
}
