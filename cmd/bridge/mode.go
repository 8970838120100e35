package bridge

import (
	"fmt"
	"os"

	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/common"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	setModeDataDir  *string
	setModeLogLevel *string
)

func init() {
	setModeDataDir = SetModeCmd.Flags().String("dataDir", "", "Data directory (required)")
	setModeLogLevel = SetModeCmd.Flags().String("logLevel", "info", "Logging level (debug, info, warn, error, dpanic, panic, fatal)")
}

// SetModeCmd halts or resumes inbound processing of a stopped node.
var SetModeCmd = &cobra.Command{
	Use:   "set-mode [normal|halted]",
	Short: "Persist the inbound operating mode",
	Args:  cobra.ExactArgs(1),
	Run:   runSetMode,
}

func runSetMode(cmd *cobra.Command, args []string) {
	logger, err := common.NewLogger(*setModeLogLevel)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	mode, err := common.ParseOperatingMode(args[0])
	if err != nil {
		logger.Fatal("invalid operating mode", zap.Error(err))
	}
	if *setModeDataDir == "" {
		logger.Fatal("Please specify --dataDir")
	}

	database := db.OpenDb(logger, setModeDataDir)
	defer database.Close()

	modes := db.NewModeDB(database.Conn())
	previous, err := modes.OperatingMode()
	if err != nil {
		logger.Fatal("failed to read operating mode", zap.Error(err))
	}
	if err := modes.SetOperatingMode(mode); err != nil {
		logger.Fatal("failed to set operating mode", zap.Error(err))
	}
	logger.Info("operating mode changed", zap.Stringer("from", previous), zap.Stringer("to", mode))
}
