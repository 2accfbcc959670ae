// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JouahriAli/ckb-prediction-market/cell"
	"github.com/JouahriAli/ckb-prediction-market/consts"
	"github.com/JouahriAli/ckb-prediction-market/identity"
)

var deriveCmd = &cobra.Command{
	Use:   "derive <market-id-hex>",
	Short: "print the predicate hashes and token identities of a market",
	Args:  cobra.ExactArgs(1),
	RunE:  runDerive,
}

func runDerive(_ *cobra.Command, args []string) error {
	raw, err := hex.DecodeString(args[0])
	if err != nil {
		return fmt.Errorf("market id is not hex: %w", err)
	}
	if len(raw) != consts.HashLen {
		return fmt.Errorf("market id is %d bytes, want %d", len(raw), consts.HashLen)
	}

	params := localParams()
	marketPred := cell.Predicate{
		CodeHash: params.MarketCodeHash,
		Mode:     cell.ModeVersioned1,
		Args:     raw,
	}
	marketHash := marketPred.Hash()

	color.Cyan("market predicate hash %s", marketHash)
	for _, side := range []byte{consts.SideYes, consts.SideNo} {
		id := identity.DeriveTokenIdentity(params.TokenCodeHash, cell.ModeVersioned1, marketHash, side)
		color.White("  %-3s token identity %s", consts.SideToString(side), id)
	}
	color.White("  market code  %s", params.MarketCodeHash)
	color.White("  token code   %s", params.TokenCodeHash)
	return nil
}
