package bridge

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/assets"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/common"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/db"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/inbound"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/outbound"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/outboundqueue"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/xcm"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// devGatewayAddress is the gateway deployed by the local testnet scripts.
const devGatewayAddress = "0xEDa338E4dC46038493b885327842fD3E301CaB39"

// maxLineSize bounds a single request read from the input stream.
const maxLineSize = 1 << 20

var (
	gatewayAddress  *string
	ethereumChainID *uint64
	assetHubParaID  *uint32
	bridgeHubParaID *uint32
	relayNetwork    *string
	maxDecodeDepth  *int

	maxMessageSize *int
	baseFee        *string
	gasPrice       *string

	dataDir       *string
	statusAddr    *string
	logLevel      *string
	env           *string
	unsafeDevMode *bool
)

// ethereumChainIDs is the default ethereum network of each environment.
var ethereumChainIDs = map[common.Environment]uint64{
	common.MainNet:      1,
	common.TestNet:      11155111,
	common.UnsafeDevNet: 11155111,
	common.GoTest:       11155111,
}

func init() {
	gatewayAddress = BridgeCmd.Flags().String("gatewayAddress", "", "Address of the ethereum gateway contract (defaults to the local testnet gateway)")
	ethereumChainID = BridgeCmd.Flags().Uint64("ethereumChainId", 0, "Chain id of the ethereum network (defaults to the environment's network)")
	assetHubParaID = BridgeCmd.Flags().Uint32("assetHubParaId", inbound.DefaultAssetHubParaID, "Parachain id inbound programs are forwarded to")
	bridgeHubParaID = BridgeCmd.Flags().Uint32("bridgeHubParaId", 1002, "Parachain id of this bridge hub")
	relayNetwork = BridgeCmd.Flags().String("relayNetwork", "polkadot", "Relay network this bridge hub belongs to (polkadot, kusama, westend, rococo)")
	maxDecodeDepth = BridgeCmd.Flags().Int("maxDecodeDepth", xcm.MaxDecodeDepth, "Maximum nesting of decoded programs")

	maxMessageSize = BridgeCmd.Flags().Int("maxMessageSize", outboundqueue.DefaultMaxMessageSize, "Maximum size of a committed outbound message in bytes")
	baseFee = BridgeCmd.Flags().String("baseFee", "0", "Local fee charged for every exported message")
	gasPrice = BridgeCmd.Flags().String("gasPrice", "1", "Price per unit of gateway gas, in the relay token")

	dataDir = BridgeCmd.Flags().String("dataDir", "", "Data directory (required)")
	statusAddr = BridgeCmd.Flags().String("statusAddr", "[::]:6060", "Listen address for status server (disabled if blank)")
	logLevel = BridgeCmd.Flags().String("logLevel", "info", "Logging level (debug, info, warn, error, dpanic, panic, fatal)")
	env = BridgeCmd.Flags().String("env", "prod", "Environment (prod, test, dev)")
	unsafeDevMode = BridgeCmd.Flags().Bool("unsafeDevMode", false, "Launch node in unsafe, deterministic devnet mode (implies --env=dev)")
}

// BridgeCmd runs both directions of the bridge against requests read from stdin, one per line:
//
//	inbound <event log hex> [<proof hex>]
//	export <source parachain id> <versioned program hex>
//	mode <normal|halted>
var BridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Run the message translation core",
	Run:   runBridge,
}

func parseAmount(name, s string) (uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return uint256.Int{}, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return *v, nil
}

func runBridge(cmd *cobra.Command, args []string) {
	logger, err := common.NewLogger(*logLevel)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if *statusAddr != "" {
		router := mux.NewRouter()
		router.Handle("/metrics", promhttp.Handler())

		go func() {
			logger.Info("status server listening", zap.String("addr", *statusAddr))
			logger.Error("status server crashed", zap.Error(http.ListenAndServe(*statusAddr, router)))
		}()
	}

	// Verify flags

	environment, err := common.ParseEnvironment(*env)
	if err != nil {
		logger.Fatal("Please specify a valid --env", zap.Error(err))
	}
	if *unsafeDevMode {
		environment = common.UnsafeDevNet
	}
	if environment == common.UnsafeDevNet {
		fmt.Print(devwarning)
	}
	if environment != common.UnsafeDevNet && environment != common.GoTest {
		logger.Fatal("no light client is available to verify inbound proofs; only --unsafeDevMode is supported",
			zap.String("env", string(environment)))
	}
	if *ethereumChainID == 0 {
		*ethereumChainID = ethereumChainIDs[environment]
	}
	if *gatewayAddress == "" {
		*gatewayAddress = devGatewayAddress
	}
	if !ethcommon.IsHexAddress(*gatewayAddress) {
		logger.Fatal("Please specify a valid --gatewayAddress", zap.String("gatewayAddress", *gatewayAddress))
	}
	if *dataDir == "" {
		logger.Fatal("Please specify --dataDir")
	}
	relay, err := xcm.ParseNetwork(*relayNetwork)
	if err != nil {
		logger.Fatal("Please specify a valid --relayNetwork", zap.Error(err))
	}
	fee, err := parseAmount("baseFee", *baseFee)
	if err != nil {
		logger.Fatal("Please specify a valid --baseFee", zap.Error(err))
	}
	price, err := parseAmount("gasPrice", *gasPrice)
	if err != nil {
		logger.Fatal("Please specify a valid --gasPrice", zap.Error(err))
	}

	rootCtx, rootCtxCancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer rootCtxCancel()

	database := db.OpenDb(logger, dataDir)
	defer database.Close()

	eventC := make(chan inbound.Event, 16)
	pipeline := inbound.NewPipeline(logger, inbound.Config{
		GatewayAddress: ethcommon.HexToAddress(*gatewayAddress),
		AssetHubParaID: *assetHubParaID,
		MaxDecodeDepth: *maxDecodeDepth,
	}, acceptAllVerifier{}, db.NewNonceDB(database.Conn()), db.NewModeDB(database.Conn()), logSender{logger}, eventC)

	registry := assets.NewRegistry()
	// The relay chain's native token is always registered.
	if _, err := registry.Register(xcm.Parent()); err != nil {
		logger.Fatal("failed to register relay token", zap.Error(err))
	}

	queue := outboundqueue.New(logger, outboundqueue.Config{
		MaxMessageSize: *maxMessageSize,
		BaseFee:        fee,
		GasPrice:       price,
	}, db.NewQueueDB(database.Conn()))
	exporter := outbound.NewExporter(logger, outbound.ExporterConfig{
		EthereumNetwork:   xcm.Ethereum(*ethereumChainID),
		UniversalLocation: xcm.Junctions{xcm.GlobalConsensus{Network: relay}, xcm.Parachain(*bridgeHubParaID)},
	}, queue, registry)

	go logEvents(rootCtx, logger, eventC)

	s := &server{
		logger:   logger,
		pipeline: pipeline,
		exporter: exporter,
		ethereum: xcm.Ethereum(*ethereumChainID),
		relay:    relay,
	}
	errC := make(chan error, 1)
	go func() {
		errC <- s.serve(rootCtx, os.Stdin)
	}()

	logger.Info("bridge started",
		zap.Stringer("gateway", ethcommon.HexToAddress(*gatewayAddress)),
		zap.Stringer("destination", pipeline.Destination()),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutting down")
	case err := <-errC:
		if err != nil {
			logger.Error("input stream failed", zap.Error(err))
		}
	}
}

func logEvents(ctx context.Context, logger *zap.Logger, eventC <-chan inbound.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-eventC:
			switch e := ev.(type) {
			case *inbound.MessageReceived:
				logger.Info("event: message received", zap.Uint64("nonce", e.Nonce), zap.Stringer("message_id", e.MessageID))
			case *inbound.OperatingModeChanged:
				logger.Info("event: operating mode changed", zap.Stringer("mode", e.Mode))
			}
		}
	}
}

type server struct {
	logger   *zap.Logger
	pipeline *inbound.Pipeline
	exporter *outbound.Exporter
	ethereum xcm.NetworkID
	relay    xcm.NetworkID
}

var errMalformedRequest = errors.New("malformed request")

// serve handles requests until r is exhausted. A failing request is logged and does not stop the loop.
func (s *server) serve(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := s.handle(ctx, strings.Fields(line)); err != nil {
			s.logger.Warn("request failed", zap.String("request", strings.Fields(line)[0]), zap.Error(err))
		}
	}
	return scanner.Err()
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

func (s *server) handle(ctx context.Context, fields []string) error {
	switch fields[0] {
	case "inbound":
		if len(fields) < 2 || len(fields) > 3 {
			return fmt.Errorf("%w: inbound <event log> [<proof>]", errMalformedRequest)
		}
		eventLog, err := decodeHex(fields[1])
		if err != nil {
			return fmt.Errorf("%w: event log: %w", errMalformedRequest, err)
		}
		var proof []byte
		if len(fields) == 3 {
			if proof, err = decodeHex(fields[2]); err != nil {
				return fmt.Errorf("%w: proof: %w", errMalformedRequest, err)
			}
		}
		return s.pipeline.Submit(ctx, inbound.Message{EventLog: eventLog, Proof: proof})

	case "export":
		if len(fields) != 3 {
			return fmt.Errorf("%w: export <source parachain id> <program>", errMalformedRequest)
		}
		para, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return fmt.Errorf("%w: parachain id: %w", errMalformedRequest, err)
		}
		raw, err := decodeHex(fields[2])
		if err != nil {
			return fmt.Errorf("%w: program: %w", errMalformedRequest, err)
		}
		versioned, err := xcm.DecodeVersioned(raw, xcm.MaxDecodeDepth)
		if err != nil {
			return err
		}
		prog, err := versioned.Convert()
		if err != nil {
			return err
		}
		return s.export(uint32(para), prog)

	case "mode":
		if len(fields) != 2 {
			return fmt.Errorf("%w: mode <normal|halted>", errMalformedRequest)
		}
		mode, err := common.ParseOperatingMode(fields[1])
		if err != nil {
			return err
		}
		return s.pipeline.SetOperatingMode(ctx, mode)

	default:
		return fmt.Errorf("%w: unknown request %q", errMalformedRequest, fields[0])
	}
}

func (s *server) export(para uint32, prog xcm.Program) error {
	source := xcm.Junctions{xcm.GlobalConsensus{Network: s.relay}, xcm.Parachain(para)}
	dest := xcm.Junctions{}

	ticket, fee, err := s.exporter.Validate(s.ethereum, 0, &source, &dest, &prog)
	if err != nil {
		return err
	}
	id, err := s.exporter.Deliver(ticket)
	if err != nil {
		return err
	}
	s.logger.Info("exported message", zap.Stringer("message_id", id), zap.Stringer("fee", fee))
	return nil
}
