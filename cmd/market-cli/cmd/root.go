// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ava-labs/avalanchego/ids"

	"github.com/JouahriAli/ckb-prediction-market/cell"
	"github.com/JouahriAli/ckb-prediction-market/chain"
	"github.com/JouahriAli/ckb-prediction-market/consts"
)

var ErrMissingSubcommand = errors.New("missing subcommand")

var rootCmd = &cobra.Command{
	Use:        consts.Name,
	Short:      "local prediction-market ledger client",
	SuggestFor: []string{"market-cli"},
	RunE: func(*cobra.Command, []string) error {
		return ErrMissingSubcommand
	},
}

func init() {
	cobra.EnablePrefixMatching = true
	rootCmd.AddCommand(
		demoCmd,
		deriveCmd,
	)
}

func Execute() error {
	return rootCmd.Execute()
}

// Program identities of this deployment. A real chain reads these from
// its deployment manifest; the local ledger pins them to the program
// names.
func localParams() chain.Params {
	return chain.Params{
		MarketCodeHash:     programID("market-validator/v1"),
		TokenCodeHash:      programID("market-token-validator/v1"),
		PermissiveCodeHash: programID("permissive-owner/v1"),
	}
}

func programID(name string) ids.ID {
	return cell.Blake256([]byte(name))
}
