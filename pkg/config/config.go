package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Options controls where command flags are loaded from besides the command line.
type Options struct {
	// FilePath is the config file to load, in any format viper reads (.yaml, .json, .toml). Optional.
	FilePath string

	// EnvPrefix is prepended to flag names when looking up environment variables. With "SNOWBRIDGE",
	// --gatewayAddress is read from SNOWBRIDGE_GATEWAYADDRESS.
	EnvPrefix string
}

// InitFileConfig sets every flag of cmd that was not given on the command line, with this precedence:
// 1. Command line flags
// 2. Environment variables
// 3. Config file
// 4. Cobra default values
func InitFileConfig(cmd *cobra.Command, options Options) error {
	v := viper.New()

	if options.FilePath != "" {
		v.SetConfigFile(options.FilePath)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", options.FilePath, err)
		}
	}

	v.SetEnvPrefix(options.EnvPrefix)
	v.AutomaticEnv()

	return bindFlags(cmd, v)
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed || !v.IsSet(f.Name) {
			return
		}
		if setErr := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); setErr != nil {
			err = fmt.Errorf("failed to bind flag %s: %w", f.Name, setErr)
		}
	})
	return err
}
