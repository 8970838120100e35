package debug

import (
	"fmt"
	"log"
	"strconv"

	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/assets"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/outboundqueue"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/xcm"
	"github.com/spf13/cobra"
)

func init() {
	DebugCmd.AddCommand(decodeMessageCmd)
	DebugCmd.AddCommand(agentIDCmd)
}

var decodeMessageCmd = &cobra.Command{
	Use:   "decode-message [DATA]",
	Short: "Decode a hex-encoded message committed for the gateway",
	Run: func(cmd *cobra.Command, args []string) {
		for _, arg := range args {
			b, err := decodeHexArg(arg)
			if err != nil {
				log.Fatal(err)
			}

			nonce, topic, kinds, err := outboundqueue.DecodeMessage(b)
			if err != nil {
				log.Fatal(err)
			}
			fmt.Printf("Nonce: %d\nTopic: %s\nCommands: %v\n", nonce, topic, kinds)
		}
	},
}

var agentIDCmd = &cobra.Command{
	Use:   "agent-id [PARACHAIN]",
	Short: "Print the gateway agent id of a sibling parachain, or of the relay chain if omitted",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		loc := xcm.Parent()
		if len(args) == 1 {
			para, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				log.Fatal(err)
			}
			loc = xcm.NewLocation(1, xcm.Parachain(para))
		}

		id, ok := assets.AgentIDOf(loc)
		if !ok {
			log.Fatalf("no agent id for %s", loc)
		}
		fmt.Println(id)
	},
}
