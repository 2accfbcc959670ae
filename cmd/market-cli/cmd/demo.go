// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"crypto/rand"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JouahriAli/ckb-prediction-market/cell"
	"github.com/JouahriAli/ckb-prediction-market/chain"
	"github.com/JouahriAli/ckb-prediction-market/consts"
	"github.com/JouahriAli/ckb-prediction-market/identity"
	"github.com/JouahriAli/ckb-prediction-market/txbuilder"
)

var verbose bool

func init() {
	demoCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every applied transaction")
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "run a full market lifecycle on a local in-memory ledger",
	RunE:  runDemo,
}

func runDemo(*cobra.Command, []string) error {
	log := zap.NewNop()
	if verbose {
		var err error
		if log, err = zap.NewDevelopment(); err != nil {
			return err
		}
	}

	params := localParams()
	c := chain.New(params, log)
	b := &txbuilder.Builder{
		MarketCode:     params.MarketCodeHash,
		TokenCode:      params.TokenCodeHash,
		PermissiveCode: params.PermissiveCodeHash,
	}

	alice, err := randomAddress()
	if err != nil {
		return err
	}
	bob, err := randomAddress()
	if err != nil {
		return err
	}

	g := &chain.Genesis{Allocations: []chain.Allocation{
		{Address: alice, Balance: 200_000_000_000},
		{Address: bob, Balance: 200_000_000_000},
	}}
	raw, err := g.Bytes()
	if err != nil {
		return err
	}
	if g, err = chain.LoadGenesis(raw); err != nil {
		return err
	}
	if err := c.Bootstrap(g); err != nil {
		return err
	}
	color.Cyan("bootstrapped ledger")
	color.White("  alice %s", alice)
	color.White("  bob   %s", bob)

	aliceOwner, err := c.OwnerPredicate(alice)
	if err != nil {
		return err
	}
	bobOwner, err := c.OwnerPredicate(bob)
	if err != nil {
		return err
	}

	// Create the market from alice's funds.
	plain, _, err := c.CellsByOwner(aliceOwner.Hash())
	if err != nil {
		return err
	}
	createTx, marketPred, err := b.CreateMarket(plain, 20_000_000_000, aliceOwner)
	if err != nil {
		return err
	}
	if _, err := c.Apply(createTx); err != nil {
		return fmt.Errorf("create market: %w", err)
	}
	marketHash := marketPred.Hash()
	color.Cyan("created market %s", marketHash)

	// Alice mints 5 complete sets.
	market, err := marketCell(c, marketHash)
	if err != nil {
		return err
	}
	plain, _, err = c.CellsByOwner(aliceOwner.Hash())
	if err != nil {
		return err
	}
	mintTx, err := b.Mint(market, plain, 5, aliceOwner)
	if err != nil {
		return err
	}
	if _, err := c.Apply(mintTx); err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	color.Cyan("alice minted 5 complete sets (%d collateral)", 5*consts.CollateralPerSet)

	// Alice offers all 5 YES at a limit price.
	data, err := cell.ParseMarketData(market.Cell.Data)
	if err != nil {
		return err
	}
	yesID := identity.DeriveTokenIdentity(data.TokenCodeHash, data.TokenMode, marketHash, consts.SideYes)
	yesCells, err := c.CellsByAsset(yesID)
	if err != nil {
		return err
	}
	const askPrice = 6_000_000_000
	orderTx, err := b.PlaceOrder(yesCells, askPrice, aliceOwner)
	if err != nil {
		return err
	}
	if _, err := c.Apply(orderTx); err != nil {
		return fmt.Errorf("place order: %w", err)
	}
	color.Cyan("alice listed 5 %s at %d each", consts.SideToString(consts.SideYes), uint64(askPrice))

	// Bob fills the whole order.
	orders, err := openOrders(c, yesID)
	if err != nil {
		return err
	}
	plain, _, err = c.CellsByOwner(bobOwner.Hash())
	if err != nil {
		return err
	}
	fillTx, err := b.FillOrders(orders, plain, bobOwner, []cell.Predicate{aliceOwner})
	if err != nil {
		return err
	}
	if _, err := c.Apply(fillTx); err != nil {
		return fmt.Errorf("fill order: %w", err)
	}
	color.Cyan("bob bought 5 %s for %d", consts.SideToString(consts.SideYes), uint64(5*askPrice))

	// The oracle resolves the market to YES.
	market, err = marketCell(c, marketHash)
	if err != nil {
		return err
	}
	resolveTx, err := b.Resolve(market, true)
	if err != nil {
		return err
	}
	if _, err := c.Apply(resolveTx); err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	color.Cyan("market resolved: %s wins", consts.SideToString(consts.SideYes))

	// Bob redeems his winning tokens at par.
	market, err = marketCell(c, marketHash)
	if err != nil {
		return err
	}
	winners, err := c.CellsByAsset(yesID)
	if err != nil {
		return err
	}
	claimTx, err := b.Claim(market, winners, 5, bobOwner)
	if err != nil {
		return err
	}
	if _, err := c.Apply(claimTx); err != nil {
		return fmt.Errorf("claim: %w", err)
	}
	color.Cyan("bob claimed %d collateral for 5 winning tokens", 5*consts.CollateralPerSet)

	if err := printHoldings(c, "alice", aliceOwner); err != nil {
		return err
	}
	if err := printHoldings(c, "bob", bobOwner); err != nil {
		return err
	}
	color.Green("demo complete")
	return nil
}

func randomAddress() (string, error) {
	args := make([]byte, 20)
	if _, err := rand.Read(args); err != nil {
		return "", err
	}
	return chain.EncodeAddress(args)
}

func marketCell(c *chain.Chain, marketHash ids.ID) (txbuilder.Spendable, error) {
	cells, err := c.CellsByAsset(marketHash)
	if err != nil {
		return txbuilder.Spendable{}, err
	}
	if len(cells) != 1 {
		return txbuilder.Spendable{}, fmt.Errorf("expected one live market cell, found %d", len(cells))
	}
	return cells[0], nil
}

// openOrders filters the side's live cells down to open limit orders.
func openOrders(c *chain.Chain, tokenID ids.ID) ([]txbuilder.Spendable, error) {
	cells, err := c.CellsByAsset(tokenID)
	if err != nil {
		return nil, err
	}
	var orders []txbuilder.Spendable
	for _, s := range cells {
		d, err := cell.ParseTokenData(s.Cell.Data)
		if err != nil {
			return nil, err
		}
		if d.IsOrder() {
			orders = append(orders, s)
		}
	}
	return orders, nil
}

func printHoldings(c *chain.Chain, name string, owner cell.Predicate) error {
	plain, assets, err := c.CellsByOwner(owner.Hash())
	if err != nil {
		return err
	}
	balance := uint64(0)
	for _, s := range plain {
		balance += s.Cell.Balance
	}
	color.Yellow("%s: %d spendable across %d cells, %d token cells", name, balance, len(plain), len(assets))
	return nil
}
