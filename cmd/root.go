package cmd

import (
	"fmt"
	"os"

	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/cmd/bridge"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/cmd/debug"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/config"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/version"

	"github.com/spf13/cobra"
)

// envPrefix namespaces the environment variables flags are read from, e.g. SNOWBRIDGE_DATADIR.
const envPrefix = "SNOWBRIDGE"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "snowbridge",
	Short: "Snowbridge message translation core",
	// Runs for every subcommand, binding its flags to the config file and environment.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.InitFileConfig(cmd, config.Options{FilePath: cfgFile, EnvPrefix: envPrefix})
	},
}

// Top-level version subcommand
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display binary version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Version())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.AddCommand(bridge.BridgeCmd)
	rootCmd.AddCommand(bridge.SetModeCmd)
	rootCmd.AddCommand(debug.DebugCmd)
	rootCmd.AddCommand(versionCmd)
}
