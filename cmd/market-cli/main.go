// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// "market-cli" drives a local in-memory prediction-market ledger.
package main

import (
	"os"

	"github.com/fatih/color"

	"github.com/JouahriAli/ckb-prediction-market/cmd/market-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		color.Red("market-cli exited with error: %+v", err)
		os.Exit(1)
	}
	os.Exit(0)
}
