// Package txbuilder assembles candidate transactions over live cells:
// market creation, minting, burning, resolution, claims, token transfers
// and limit-order placement/fills. It is the assembly collaborator the
// validators assume exists; it never validates, it only constructs the
// shapes the validators will judge.
package txbuilder

import (
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/holiman/uint256"

	"github.com/JouahriAli/ckb-prediction-market/cell"
	"github.com/JouahriAli/ckb-prediction-market/consts"
	"github.com/JouahriAli/ckb-prediction-market/identity"
)

// TokenCellBalance is the balance carried by a freshly minted token cell,
// enough to cover its own storage footprint.
const TokenCellBalance uint64 = 14_300_000_000

var (
	ErrNoFunding          = errors.New("no funding cells supplied")
	ErrInsufficientFunds  = errors.New("insufficient funding balance")
	ErrMarketResolved     = errors.New("market is already resolved")
	ErrMarketNotResolved  = errors.New("market is not resolved")
	ErrInsufficientTokens = errors.New("insufficient token balance")
	ErrUnknownSeller      = errors.New("no owner predicate supplied for seller key")
)

// Spendable pairs a live ref with its cell, as collected from the ledger.
type Spendable struct {
	Ref  cell.Ref
	Cell cell.Cell
}

// Builder carries the deployed program identities transactions reference.
type Builder struct {
	MarketCode     ids.ID
	TokenCode      ids.ID
	PermissiveCode ids.ID
}

// PermissivePredicate is the anyone-can-spend ownership predicate used
// for the market cell and for order cells.
func (b *Builder) PermissivePredicate(args []byte) cell.Predicate {
	return cell.Predicate{CodeHash: b.PermissiveCode, Mode: cell.ModeVersioned1, Args: args}
}

// MarketPredicate is the market's asset predicate for a given one-time
// identifier.
func (b *Builder) MarketPredicate(marketID ids.ID) cell.Predicate {
	return cell.Predicate{CodeHash: b.MarketCode, Mode: cell.ModeVersioned1, Args: marketID[:]}
}

// CreateMarket builds the 0->1 creation transaction and returns it with
// the market's asset predicate.
func (b *Builder) CreateMarket(funding []Spendable, marketBalance uint64, changeOwner cell.Predicate) (*cell.Transaction, cell.Predicate, error) {
	if len(funding) == 0 {
		return nil, cell.Predicate{}, ErrNoFunding
	}
	total := sumBalances(funding)
	if total < marketBalance {
		return nil, cell.Predicate{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, total, marketBalance)
	}

	marketID := identity.DeriveMarketID(funding[0].Ref, 0)
	pred := b.MarketPredicate(marketID)
	data := cell.MarketData{TokenCodeHash: b.TokenCode, TokenMode: cell.ModeVersioned1}

	tx := &cell.Transaction{Inputs: inputs(funding)}
	tx.Outputs = append(tx.Outputs, cell.Cell{
		Balance: marketBalance,
		Owner:   b.PermissivePredicate(nil),
		Asset:   &pred,
		Data:    data.Bytes(),
	})
	if change := total - marketBalance; change > 0 {
		tx.Outputs = append(tx.Outputs, cell.Cell{Balance: change, Owner: changeOwner})
	}
	return tx, pred, nil
}

// Mint builds a transaction creating amount complete sets, paying the
// collateral into the market cell and handing both token cells to
// recipient.
func (b *Builder) Mint(market Spendable, funding []Spendable, amount uint64, recipient cell.Predicate) (*cell.Transaction, error) {
	data, err := cell.ParseMarketData(market.Cell.Data)
	if err != nil {
		return nil, err
	}
	if data.Resolved {
		return nil, ErrMarketResolved
	}
	collateral, ok := mulBalance(amount, consts.CollateralPerSet)
	if !ok {
		return nil, fmt.Errorf("collateral for %d sets overflows", amount)
	}

	need := collateral + 2*TokenCellBalance
	total := sumBalances(funding)
	if total < need {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, total, need)
	}

	marketHash := market.Cell.Asset.Hash()
	yesPred := identity.TokenPredicate(data.TokenCodeHash, data.TokenMode, marketHash, consts.SideYes)
	noPred := identity.TokenPredicate(data.TokenCodeHash, data.TokenMode, marketHash, consts.SideNo)
	tokenData := cell.TokenData{Amount: cell.U128FromUint64(amount), LimitPrice: uint256.NewInt(0)}

	tx := &cell.Transaction{Inputs: inputs(append([]Spendable{market}, funding...))}
	tx.Outputs = append(tx.Outputs,
		cell.Cell{
			Balance: market.Cell.Balance + collateral,
			Owner:   market.Cell.Owner,
			Asset:   market.Cell.Asset,
			Data:    data.Bytes(),
		},
		cell.Cell{Balance: TokenCellBalance, Owner: recipient, Asset: &yesPred, Data: tokenData.Bytes()},
		cell.Cell{Balance: TokenCellBalance, Owner: recipient, Asset: &noPred, Data: tokenData.Bytes()},
	)
	if change := total - need; change > 0 {
		tx.Outputs = append(tx.Outputs, cell.Cell{Balance: change, Owner: recipient})
	}
	return tx, nil
}

// Burn builds a transaction destroying amount complete sets and paying
// the freed collateral to redeemOwner. yesTokens and noTokens are plain
// holdings of the respective sides.
func (b *Builder) Burn(market Spendable, yesTokens, noTokens []Spendable, amount uint64, redeemOwner cell.Predicate) (*cell.Transaction, error) {
	data, err := cell.ParseMarketData(market.Cell.Data)
	if err != nil {
		return nil, err
	}
	if data.Resolved {
		return nil, ErrMarketResolved
	}
	collateral, ok := mulBalance(amount, consts.CollateralPerSet)
	if !ok {
		return nil, fmt.Errorf("collateral for %d sets overflows", amount)
	}

	tx := &cell.Transaction{Inputs: inputs(append(append([]Spendable{market}, yesTokens...), noTokens...))}
	tx.Outputs = append(tx.Outputs, cell.Cell{
		Balance: market.Cell.Balance - collateral,
		Owner:   market.Cell.Owner,
		Asset:   market.Cell.Asset,
		Data:    data.Bytes(),
	})

	redeem := collateral
	for _, side := range [][]Spendable{yesTokens, noTokens} {
		remainder, freed, err := tokenRemainder(side, amount)
		if err != nil {
			return nil, err
		}
		if remainder.IsZero() {
			redeem += freed
			continue
		}
		first := side[0].Cell
		tx.Outputs = append(tx.Outputs, cell.Cell{
			Balance: freed,
			Owner:   first.Owner,
			Asset:   first.Asset,
			Data:    cell.TokenData{Amount: remainder, LimitPrice: uint256.NewInt(0)}.Bytes(),
		})
	}
	tx.Outputs = append(tx.Outputs, cell.Cell{Balance: redeem, Owner: redeemOwner})
	return tx, nil
}

// Resolve builds the pure metadata flip freezing the market's outcome.
func (b *Builder) Resolve(market Spendable, outcome bool) (*cell.Transaction, error) {
	data, err := cell.ParseMarketData(market.Cell.Data)
	if err != nil {
		return nil, err
	}
	if data.Resolved {
		return nil, ErrMarketResolved
	}
	data.Resolved = true
	data.Outcome = outcome

	return &cell.Transaction{
		Inputs: inputs([]Spendable{market}),
		Outputs: []cell.Cell{{
			Balance: market.Cell.Balance,
			Owner:   market.Cell.Owner,
			Asset:   market.Cell.Asset,
			Data:    data.Bytes(),
		}},
	}, nil
}

// Claim builds a transaction redeeming amount winning tokens at the
// complete-set ratio. tokens must be plain holdings of the winning side.
func (b *Builder) Claim(market Spendable, tokens []Spendable, amount uint64, payoutOwner cell.Predicate) (*cell.Transaction, error) {
	data, err := cell.ParseMarketData(market.Cell.Data)
	if err != nil {
		return nil, err
	}
	if !data.Resolved {
		return nil, ErrMarketNotResolved
	}
	payout, ok := mulBalance(amount, consts.CollateralPerSet)
	if !ok {
		return nil, fmt.Errorf("payout for %d tokens overflows", amount)
	}

	remainder, freed, err := tokenRemainder(tokens, amount)
	if err != nil {
		return nil, err
	}

	tx := &cell.Transaction{Inputs: inputs(append([]Spendable{market}, tokens...))}
	tx.Outputs = append(tx.Outputs, cell.Cell{
		Balance: market.Cell.Balance - payout,
		Owner:   market.Cell.Owner,
		Asset:   market.Cell.Asset,
		Data:    data.Bytes(),
	})
	if !remainder.IsZero() {
		first := tokens[0].Cell
		tx.Outputs = append(tx.Outputs, cell.Cell{
			Balance: freed,
			Owner:   first.Owner,
			Asset:   first.Asset,
			Data:    cell.TokenData{Amount: remainder, LimitPrice: uint256.NewInt(0)}.Bytes(),
		})
		freed = 0
	}
	tx.Outputs = append(tx.Outputs, cell.Cell{Balance: payout + freed, Owner: payoutOwner})
	return tx, nil
}

// Transfer builds a plain token transfer of amount to the recipient,
// with any remainder returned to the original owner.
func (b *Builder) Transfer(tokens []Spendable, amount uint64, to cell.Predicate) (*cell.Transaction, error) {
	remainder, freed, err := tokenRemainder(tokens, amount)
	if err != nil {
		return nil, err
	}
	first := tokens[0].Cell

	tx := &cell.Transaction{Inputs: inputs(tokens)}
	toBalance := freed
	if !remainder.IsZero() {
		toBalance = freed / 2
		tx.Outputs = append(tx.Outputs, cell.Cell{
			Balance: freed - toBalance,
			Owner:   first.Owner,
			Asset:   first.Asset,
			Data:    cell.TokenData{Amount: remainder, LimitPrice: uint256.NewInt(0)}.Bytes(),
		})
	}
	tx.Outputs = append(tx.Outputs, cell.Cell{
		Balance: toBalance,
		Owner:   to,
		Asset:   first.Asset,
		Data:    cell.TokenData{Amount: cell.U128FromUint64(amount), LimitPrice: uint256.NewInt(0)}.Bytes(),
	})
	return tx, nil
}

// PlaceOrder converts the seller's token holdings into one open limit
// order. The order cell is permissively spendable; the seller's real
// payment predicate is recorded as its hash in the order's owner args.
func (b *Builder) PlaceOrder(tokens []Spendable, price uint64, seller cell.Predicate) (*cell.Transaction, error) {
	if len(tokens) == 0 {
		return nil, ErrInsufficientTokens
	}
	total := uint256.NewInt(0)
	for _, t := range tokens {
		d, err := cell.ParseTokenData(t.Cell.Data)
		if err != nil {
			return nil, err
		}
		var ok bool
		if total, ok = cell.AddU128(total, d.Amount); !ok {
			return nil, fmt.Errorf("order amount overflows u128")
		}
	}
	sellerHash := seller.Hash()
	first := tokens[0].Cell

	return &cell.Transaction{
		Inputs: inputs(tokens),
		Outputs: []cell.Cell{{
			Balance: sumBalances(tokens),
			Owner:   b.PermissivePredicate(sellerHash[:]),
			Asset:   first.Asset,
			Data:    cell.TokenData{Amount: total, LimitPrice: cell.U128FromUint64(price)}.Bytes(),
		}},
	}, nil
}

// FillOrders builds a full fill of the given order cells: the buyer takes
// every token and each seller receives exactly the sum of their orders'
// amount x price in a plain payment cell. sellers supplies the real
// payment predicates the order keys hash to.
func (b *Builder) FillOrders(orders, funding []Spendable, buyerOwner cell.Predicate, sellers []cell.Predicate) (*cell.Transaction, error) {
	sellerByKey := make(map[string]cell.Predicate, len(sellers))
	for _, s := range sellers {
		h := s.Hash()
		sellerByKey[string(h[:])] = s
	}

	type payout struct {
		owner cell.Predicate
		owed  *uint256.Int
	}
	var payoutOrder []string
	payouts := make(map[string]*payout)
	bought := make(map[ids.ID]*uint256.Int)
	var boughtOrder []ids.ID
	assets := make(map[ids.ID]*cell.Predicate)
	freed := uint64(0)

	for _, o := range orders {
		data, err := cell.ParseTokenData(o.Cell.Data)
		if err != nil {
			return nil, err
		}
		owed, ok := cell.MulU128(data.Amount, data.LimitPrice)
		if !ok {
			return nil, fmt.Errorf("payment for order overflows u128")
		}
		key := string(o.Cell.Owner.Args)
		p := payouts[key]
		if p == nil {
			owner, found := sellerByKey[key]
			if !found {
				return nil, fmt.Errorf("%w: %x", ErrUnknownSeller, key)
			}
			p = &payout{owner: owner, owed: uint256.NewInt(0)}
			payouts[key] = p
			payoutOrder = append(payoutOrder, key)
		}
		if p.owed, ok = cell.AddU128(p.owed, owed); !ok {
			return nil, fmt.Errorf("seller payment overflows u128")
		}

		assetHash, _ := o.Cell.AssetHash()
		if bought[assetHash] == nil {
			bought[assetHash] = uint256.NewInt(0)
			boughtOrder = append(boughtOrder, assetHash)
			assets[assetHash] = o.Cell.Asset
		}
		if bought[assetHash], ok = cell.AddU128(bought[assetHash], data.Amount); !ok {
			return nil, fmt.Errorf("bought amount overflows u128")
		}
		freed += o.Cell.Balance
	}

	totalOwed := uint64(0)
	for _, key := range payoutOrder {
		owed := payouts[key].owed
		if !owed.IsUint64() {
			return nil, fmt.Errorf("seller payment %s exceeds spendable balance range", owed)
		}
		totalOwed += owed.Uint64()
	}
	available := sumBalances(funding)
	if available < totalOwed {
		return nil, fmt.Errorf("%w: have %d, owe %d", ErrInsufficientFunds, available, totalOwed)
	}

	tx := &cell.Transaction{Inputs: inputs(append(append([]Spendable{}, orders...), funding...))}
	for _, assetHash := range boughtOrder {
		tx.Outputs = append(tx.Outputs, cell.Cell{
			Balance: freed / uint64(len(boughtOrder)),
			Owner:   buyerOwner,
			Asset:   assets[assetHash],
			Data:    cell.TokenData{Amount: bought[assetHash], LimitPrice: uint256.NewInt(0)}.Bytes(),
		})
	}
	for _, key := range payoutOrder {
		p := payouts[key]
		tx.Outputs = append(tx.Outputs, cell.Cell{Balance: p.owed.Uint64(), Owner: p.owner})
	}
	if change := available - totalOwed; change > 0 {
		tx.Outputs = append(tx.Outputs, cell.Cell{Balance: change, Owner: buyerOwner})
	}
	return tx, nil
}

func inputs(cells []Spendable) []cell.Input {
	out := make([]cell.Input, len(cells))
	for i, s := range cells {
		out[i] = cell.Input{Ref: s.Ref, Cell: s.Cell}
	}
	return out
}

func sumBalances(cells []Spendable) uint64 {
	total := uint64(0)
	for _, s := range cells {
		total += s.Cell.Balance
	}
	return total
}

func mulBalance(a, b uint64) (uint64, bool) {
	prod, ok := cell.MulU128(cell.U128FromUint64(a), cell.U128FromUint64(b))
	if !ok || !prod.IsUint64() {
		return 0, false
	}
	return prod.Uint64(), true
}

// tokenRemainder sums the token amounts across cells, checks they cover
// spend, and returns the remainder plus the total freed balance.
func tokenRemainder(tokens []Spendable, spend uint64) (*uint256.Int, uint64, error) {
	if len(tokens) == 0 {
		return nil, 0, ErrInsufficientTokens
	}
	total := uint256.NewInt(0)
	for _, t := range tokens {
		d, err := cell.ParseTokenData(t.Cell.Data)
		if err != nil {
			return nil, 0, err
		}
		var ok bool
		if total, ok = cell.AddU128(total, d.Amount); !ok {
			return nil, 0, fmt.Errorf("token total overflows u128")
		}
	}
	want := cell.U128FromUint64(spend)
	if total.Lt(want) {
		return nil, 0, fmt.Errorf("%w: have %s, need %d", ErrInsufficientTokens, total, spend)
	}
	remainder, _ := cell.SubU128(total, want)
	return remainder, sumBalances(tokens), nil
}
