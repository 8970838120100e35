package bridge

import (
	"context"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/assets"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/common"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/db"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/inbound"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/outbound"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/outboundqueue"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/xcm"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var (
	testGateway  = ethcommon.HexToAddress(devGatewayAddress)
	testEthereum = xcm.Ethereum(11155111)
	testRelay    = xcm.Relay(xcm.NetworkPolkadot)
	testToken    = [20]byte{0xff, 0xf9, 0x97, 0x67}
)

type testServer struct {
	*server
	database *db.Database
	logs     *observer.ObservedLogs
	events   chan inbound.Event
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	database, err := db.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	events := make(chan inbound.Event, 16)
	pipeline := inbound.NewPipeline(logger, inbound.Config{
		GatewayAddress: testGateway,
		AssetHubParaID: inbound.DefaultAssetHubParaID,
	}, acceptAllVerifier{}, db.NewNonceDB(database.Conn()), db.NewModeDB(database.Conn()), logSender{logger}, events)

	queue := outboundqueue.New(logger, outboundqueue.Config{GasPrice: *uint256.NewInt(1)}, db.NewQueueDB(database.Conn()))
	exporter := outbound.NewExporter(logger, outbound.ExporterConfig{
		EthereumNetwork:   testEthereum,
		UniversalLocation: xcm.Junctions{xcm.GlobalConsensus{Network: testRelay}, xcm.Parachain(1002)},
	}, queue, assets.NewRegistry())

	return &testServer{
		server: &server{
			logger:   logger,
			pipeline: pipeline,
			exporter: exporter,
			ethereum: testEthereum,
			relay:    testRelay,
		},
		database: database,
		logs:     logs,
		events:   events,
	}
}

func transferProgram(token xcm.Location, topic byte) xcm.Program {
	return xcm.Program{
		xcm.WithdrawAsset{Assets: xcm.Assets{xcm.NewFungible(token, 100)}},
		xcm.ClearOrigin{},
		xcm.BuyExecution{Fees: xcm.NewFungible(token, 1), WeightLimit: xcm.Unlimited},
		xcm.DepositAsset{
			Assets:      xcm.WildAllCounted{Count: 1},
			Beneficiary: xcm.NewLocation(0, xcm.AccountKey20{Key: [20]byte{0xab}}),
		},
		xcm.SetTopic{ID: [32]byte{topic}},
	}
}

func encodeProgram(t *testing.T, prog xcm.Program) string {
	t.Helper()
	b, err := xcm.EncodeVersioned(&xcm.Versioned{Version: xcm.V4, Program: prog})
	require.NoError(t, err)
	return hex.EncodeToString(b)
}

func inboundRequest(t *testing.T, nonce uint64) string {
	t.Helper()
	token := xcm.NewLocation(2, xcm.GlobalConsensus{Network: testEthereum}, xcm.AccountKey20{Key: testToken})
	program, err := hex.DecodeString(encodeProgram(t, transferProgram(token, byte(nonce))))
	require.NoError(t, err)

	payload, err := inbound.EncodePayload(&inbound.Payload{XCM: program})
	require.NoError(t, err)
	eventLog, err := inbound.EncodeEnvelope(&inbound.Envelope{Gateway: testGateway, Nonce: nonce, Payload: payload})
	require.NoError(t, err)
	return "inbound 0x" + hex.EncodeToString(eventLog) + " 00"
}

func exportRequest(t *testing.T) string {
	t.Helper()
	weth := xcm.NewLocation(0, xcm.AccountKey20{Network: testEthereum, Key: testToken})
	return "export 1000 " + encodeProgram(t, transferProgram(weth, 0x99))
}

func TestServeHandlesRequests(t *testing.T) {
	s := newTestServer(t)

	input := strings.Join([]string{
		"# comment",
		"",
		inboundRequest(t, 1),
		inboundRequest(t, 1),
		exportRequest(t),
		"mode halted",
		inboundRequest(t, 2),
		"bogus request",
		"inbound zz",
	}, "\n")

	require.NoError(t, s.serve(context.Background(), strings.NewReader(input)))

	nonces := db.NewNonceDB(s.database.Conn())
	consumed, err := nonces.HasNonce(1)
	require.NoError(t, err)
	assert.True(t, consumed)
	consumed, err = nonces.HasNonce(2)
	require.NoError(t, err)
	assert.False(t, consumed, "halted pipeline must not consume nonces")

	committed, err := db.NewQueueDB(s.database.Conn()).OutboundNonce()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), committed)

	mode, err := db.NewModeDB(s.database.Conn()).OperatingMode()
	require.NoError(t, err)
	assert.Equal(t, common.Halted, mode)

	require.Len(t, s.events, 2)
	assert.Equal(t, &inbound.MessageReceived{Nonce: 1, MessageID: ethcommon.Hash{0x01}}, <-s.events)
	assert.Equal(t, &inbound.OperatingModeChanged{Mode: common.Halted}, <-s.events)

	// replay, halted submission, unknown request and bad hex
	assert.Equal(t, 4, s.logs.FilterMessage("request failed").Len())
}

func TestHandleRejectsMalformedRequests(t *testing.T) {
	s := newTestServer(t)

	tests := map[string][]string{
		"unknown":               {"frobnicate"},
		"inbound without log":   {"inbound"},
		"inbound extra fields":  {"inbound", "00", "00", "00"},
		"inbound bad proof":     {"inbound", "00", "zz"},
		"export bad parachain":  {"export", "x", "00"},
		"export bad program":    {"export", "1000", "zz"},
		"export missing fields": {"export", "1000"},
		"mode without argument": {"mode"},
	}

	for name, fields := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, s.handle(context.Background(), fields), errMalformedRequest)
		})
	}
}

func TestHandleReportsExportErrors(t *testing.T) {
	s := newTestServer(t)

	// Unsupported program version.
	err := s.handle(context.Background(), []string{"export", "1000", "ff00"})
	assert.ErrorIs(t, err, xcm.ErrUnsupportedVersion)

	// Native tokens need a registered token id.
	prog := transferProgram(xcm.Parent(), 0x01)
	prog[0] = xcm.ReserveAssetDeposited{Assets: xcm.Assets{xcm.NewFungible(xcm.Parent(), 100)}}
	err = s.handle(context.Background(), []string{"export", "1000", encodeProgram(t, prog)})
	var se *xcm.SendError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, xcm.Unroutable, se.Kind)
}

func TestEthereumChainIDsCoverEnvironments(t *testing.T) {
	for _, s := range []string{"prod", "test", "dev", "unit-test"} {
		env, err := common.ParseEnvironment(s)
		require.NoError(t, err)
		assert.NotZero(t, ethereumChainIDs[env], s)
	}
}
