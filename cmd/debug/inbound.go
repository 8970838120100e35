package debug

import (
	"fmt"
	"log"

	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/inbound"
	"github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/pkg/xcm"
	"github.com/spf13/cobra"
)

func init() {
	DebugCmd.AddCommand(decodeEnvelopeCmd)
	DebugCmd.AddCommand(decodeProgramCmd)
}

var decodeEnvelopeCmd = &cobra.Command{
	Use:   "decode-envelope [DATA]",
	Short: "Decode a hex-encoded gateway event log",
	Run: func(cmd *cobra.Command, args []string) {
		for _, arg := range args {
			b, err := decodeHexArg(arg)
			if err != nil {
				log.Fatal(err)
			}

			envelope, err := inbound.DecodeEnvelope(b)
			if err != nil {
				log.Fatal(err)
			}
			payload, err := inbound.DecodePayload(envelope.Payload)
			if err != nil {
				log.Fatal(err)
			}

			fmt.Printf("Gateway: %s\nNonce: %d\nFee: %s\n", envelope.Gateway, envelope.Nonce, payload.Fee.ToBig())
			printProgram(payload.XCM)
		}
	},
}

var decodeProgramCmd = &cobra.Command{
	Use:   "decode-program [DATA]",
	Short: "Decode a hex-encoded versioned program",
	Run: func(cmd *cobra.Command, args []string) {
		for _, arg := range args {
			b, err := decodeHexArg(arg)
			if err != nil {
				log.Fatal(err)
			}
			printProgram(b)
		}
	},
}

func printProgram(b []byte) {
	versioned, err := xcm.DecodeVersioned(b, xcm.MaxDecodeDepth)
	if err != nil {
		log.Fatal(err)
	}
	prog, err := versioned.Convert()
	if err != nil {
		log.Fatal(err)
	}
	id, err := xcm.MessageID(prog)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Version: %d\nMessage ID: %s\nProgram: %s\n", versioned.Version, id, prog)
	for i, inst := range prog {
		fmt.Printf("  %d: %+v\n", i, inst)
	}
}
