package main

import "github.com/claravanstaden/polkadot-sdk/bridges/snowbridge/cmd"

func main() {
	cmd.Execute()
}
