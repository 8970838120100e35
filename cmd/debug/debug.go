package debug

import (
	"encoding/hex"
	"strings"

	"github.com/spf13/cobra"
)

// DebugCmd groups offline tools for inspecting bridge messages.
var DebugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Debugging utilities",
}

func decodeHexArg(arg string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(arg, "0x"))
}
