package outbound

import (
	"errors"

	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/assets"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/xcm"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

var (
	// ErrUndecodableTicket is returned by a Queue for a ticket it did not issue.
	ErrUndecodableTicket = errors.New("outbound: undecodable ticket")
	// ErrTicketSpent is returned by a Queue for a ticket that was already delivered.
	ErrTicketSpent = errors.New("outbound: ticket already delivered")
)

// Queue commits translated messages for relaying to the gateway.
type Queue interface {
	// Validate checks that msg can be delivered and quotes its fee. The returned ticket is opaque.
	Validate(msg *Message) ([]byte, Fee, error)
	// Deliver commits a validated message. A ticket can be delivered once.
	Deliver(ticket []byte) (common.Hash, error)
}

// Ticket is a validated, not yet delivered export.
type Ticket struct {
	Blob      []byte
	MessageID common.Hash
}

type ExporterConfig struct {
	// EthereumNetwork is the only network programs are exported to.
	EthereumNetwork xcm.NetworkID
	// UniversalLocation is the location of the exporting chain, rooted in its relay network.
	UniversalLocation xcm.Junctions
}

// Exporter translates programs bound for the ethereum network into gateway commands.
type Exporter struct {
	logger    *zap.Logger
	cfg       ExporterConfig
	queue     Queue
	assets    AssetIDConverter
	agentIDOf func(xcm.Location) (common.Hash, bool)
}

func NewExporter(logger *zap.Logger, cfg ExporterConfig, queue Queue, assetIDs AssetIDConverter) *Exporter {
	return &Exporter{
		logger:    logger.With(zap.String("component", "exporter")),
		cfg:       cfg,
		queue:     queue,
		assets:    assetIDs,
		agentIDOf: assets.AgentIDOf,
	}
}

// Validate checks that the exporter handles the program and returns a ticket plus the fee to charge for it.
// NotApplicable means another exporter may still accept the program.
func (e *Exporter) Validate(network xcm.NetworkID, channel uint32, source *xcm.Junctions, dest *xcm.Junctions, prog *xcm.Program) (*Ticket, xcm.Assets, error) {
	ticket, fee, err := e.validate(network, source, dest, prog)
	if err != nil {
		var se *xcm.SendError
		if errors.As(err, &se) {
			exportsRejectedTotal.WithLabelValues(se.Kind.String()).Inc()
		}
		return nil, nil, err
	}
	exportsValidatedTotal.Inc()
	return ticket, fee, nil
}

func (e *Exporter) validate(network xcm.NetworkID, source *xcm.Junctions, dest *xcm.Junctions, prog *xcm.Program) (*Ticket, xcm.Assets, error) {
	if network != e.cfg.EthereumNetwork {
		e.logger.Debug("skipped due to unmatched bridge network", zap.Stringer("network", network))
		return nil, nil, xcm.NewSendError(xcm.NotApplicable)
	}

	if dest == nil {
		return nil, nil, xcm.NewSendError(xcm.MissingArgument)
	}
	if len(*dest) != 0 {
		e.logger.Debug("skipped due to unmatched remote destination", zap.Stringer("dest", *dest))
		return nil, nil, xcm.NewSendError(xcm.NotApplicable)
	}

	if source == nil {
		e.logger.Error("universal source not provided")
		return nil, nil, xcm.NewSendError(xcm.MissingArgument)
	}
	localNet, localSub, ok := source.SplitGlobal()
	if !ok {
		e.logger.Error("could not get global consensus from universal source", zap.Stringer("source", *source))
		return nil, nil, xcm.NewSendError(xcm.NotApplicable)
	}
	if relay, ok := e.cfg.UniversalLocation.GlobalConsensus(); !ok || relay != localNet {
		e.logger.Debug("skipped due to unmatched relay network", zap.Stringer("network", localNet))
		return nil, nil, xcm.NewSendError(xcm.NotApplicable)
	}
	if len(localSub) != 1 {
		e.logger.Error("could not get parachain id from universal source", zap.Stringer("source", localSub))
		return nil, nil, xcm.NewSendError(xcm.NotApplicable)
	}
	if _, ok := localSub[0].(xcm.Parachain); !ok {
		e.logger.Error("could not get parachain id from universal source", zap.Stringer("source", localSub))
		return nil, nil, xcm.NewSendError(xcm.NotApplicable)
	}

	sourceLocation := xcm.Location{Parents: 1, Interior: localSub}
	agentID, ok := e.agentIDOf(sourceLocation)
	if !ok {
		e.logger.Error("could not create agent id", zap.Stringer("source", sourceLocation))
		return nil, nil, xcm.NewSendError(xcm.NotApplicable)
	}

	if prog == nil {
		e.logger.Error("program not provided")
		return nil, nil, xcm.NewSendError(xcm.MissingArgument)
	}
	if containsExpectAsset(*prog) {
		e.logger.Debug("skipped due to ExpectAsset instruction")
		return nil, nil, xcm.NewSendError(xcm.NotApplicable)
	}

	msg, err := NewMatcher(e.cfg.EthereumNetwork, agentID, e.assets).Convert(*prog)
	if err != nil {
		e.logger.Error("unroutable due to pattern matching error", zap.Stringer("program", *prog), zap.Error(err))
		return nil, nil, xcm.NewSendError(xcm.Unroutable)
	}

	blob, fee, err := e.queue.Validate(msg)
	if err != nil {
		e.logger.Error("queue validation of message failed", zap.Stringer("message_id", msg.ID), zap.Error(err))
		return nil, nil, xcm.NewSendError(xcm.Unroutable)
	}

	total := fee.Total()
	e.logger.Debug("validated export",
		zap.Stringer("message_id", msg.ID),
		zap.Stringer("command", msg.Commands[0]),
		zap.Stringer("fee", total.ToBig()),
	)
	feeAssets := xcm.Assets{{ID: xcm.Parent(), Fun: xcm.Fungible{Amount: total}}}
	return &Ticket{Blob: blob, MessageID: msg.ID}, feeAssets, nil
}

// containsExpectAsset scans the top level of prog for an ExpectAsset instruction.
func containsExpectAsset(prog xcm.Program) bool {
	for _, inst := range prog {
		if inst != nil && inst.Opcode() == xcm.OpExpectAsset {
			return true
		}
	}
	return false
}

// Deliver redeems a ticket returned by Validate.
func (e *Exporter) Deliver(ticket *Ticket) (common.Hash, error) {
	if ticket == nil {
		return common.Hash{}, xcm.NewSendError(xcm.MissingArgument)
	}

	messageID, err := e.queue.Deliver(ticket.Blob)
	switch {
	case errors.Is(err, ErrUndecodableTicket), errors.Is(err, ErrTicketSpent):
		e.logger.Debug("undeliverable ticket", zap.Stringer("message_id", ticket.MessageID), zap.Error(err))
		exportsRejectedTotal.WithLabelValues(xcm.NotApplicable.String()).Inc()
		return common.Hash{}, xcm.NewSendError(xcm.NotApplicable)
	case err != nil:
		e.logger.Error("queue delivery of message failed", zap.Stringer("message_id", ticket.MessageID), zap.Error(err))
		exportsRejectedTotal.WithLabelValues(xcm.Transport.String()).Inc()
		return common.Hash{}, xcm.NewTransportError("other transport error")
	}

	ticketsDeliveredTotal.Inc()
	e.logger.Info("message delivered", zap.Stringer("message_id", messageID))
	return messageID, nil
}
