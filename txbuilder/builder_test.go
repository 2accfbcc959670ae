package txbuilder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JouahriAli/ckb-prediction-market/cell"
	"github.com/JouahriAli/ckb-prediction-market/consts"
)

func testBuilder() *Builder {
	return &Builder{
		MarketCode:     cell.Blake256([]byte("test-market-program")),
		TokenCode:      cell.Blake256([]byte("test-token-program")),
		PermissiveCode: cell.Blake256([]byte("test-owner-program")),
	}
}

func (b *Builder) testOwner(tag byte) cell.Predicate {
	return b.PermissivePredicate([]byte{tag})
}

func fundingCell(b *Builder, tag byte, balance uint64) Spendable {
	return Spendable{
		Ref:  cell.Ref{TxHash: cell.Blake256([]byte{tag}), Index: 0},
		Cell: cell.Cell{Balance: balance, Owner: b.testOwner(tag)},
	}
}

func TestCreateMarket_Shape(t *testing.T) {
	require := require.New(t)
	b := testBuilder()
	owner := b.testOwner(0x01)

	tx, pred, err := b.CreateMarket([]Spendable{fundingCell(b, 0x10, 100)}, 60, owner)
	require.NoError(err)
	require.Len(tx.Outputs, 2)

	market := tx.Outputs[0]
	require.Equal(uint64(60), market.Balance)
	require.True(market.Asset.Equal(pred))
	require.Equal(uint64(40), tx.Outputs[1].Balance)

	data, err := cell.ParseMarketData(market.Data)
	require.NoError(err)
	require.False(data.Resolved)
	require.Equal(b.TokenCode, data.TokenCodeHash)
}

func TestCreateMarket_Underfunded(t *testing.T) {
	require := require.New(t)
	b := testBuilder()

	_, _, err := b.CreateMarket([]Spendable{fundingCell(b, 0x10, 10)}, 60, b.testOwner(0x01))
	require.ErrorIs(err, ErrInsufficientFunds)

	_, _, err = b.CreateMarket(nil, 60, b.testOwner(0x01))
	require.ErrorIs(err, ErrNoFunding)
}

func TestMint_RequiresCollateralAndStorage(t *testing.T) {
	require := require.New(t)
	b := testBuilder()
	owner := b.testOwner(0x01)

	tx, _, err := b.CreateMarket([]Spendable{fundingCell(b, 0x10, 100)}, 100, owner)
	require.NoError(err)
	market := Spendable{
		Ref:  cell.Ref{TxHash: tx.Hash(), Index: 0},
		Cell: tx.Outputs[0],
	}

	need := 2*consts.CollateralPerSet + 2*TokenCellBalance
	_, err = b.Mint(market, []Spendable{fundingCell(b, 0x11, need-1)}, 2, owner)
	require.ErrorIs(err, ErrInsufficientFunds)

	mintTx, err := b.Mint(market, []Spendable{fundingCell(b, 0x11, need)}, 2, owner)
	require.NoError(err)
	// Market, YES, NO; no change cell.
	require.Len(mintTx.Outputs, 3)
	require.Equal(market.Cell.Balance+2*consts.CollateralPerSet, mintTx.Outputs[0].Balance)
}

func TestResolve_RejectsResolvedMarket(t *testing.T) {
	require := require.New(t)
	b := testBuilder()
	owner := b.testOwner(0x01)

	tx, _, err := b.CreateMarket([]Spendable{fundingCell(b, 0x10, 100)}, 100, owner)
	require.NoError(err)
	market := Spendable{Ref: cell.Ref{TxHash: tx.Hash(), Index: 0}, Cell: tx.Outputs[0]}

	resolveTx, err := b.Resolve(market, true)
	require.NoError(err)

	resolved := Spendable{
		Ref:  cell.Ref{TxHash: resolveTx.Hash(), Index: 0},
		Cell: resolveTx.Outputs[0],
	}
	_, err = b.Resolve(resolved, false)
	require.ErrorIs(err, ErrMarketResolved)

	_, err = b.Mint(resolved, []Spendable{fundingCell(b, 0x11, 1 << 50)}, 1, owner)
	require.ErrorIs(err, ErrMarketResolved)
}

func TestClaim_RequiresResolution(t *testing.T) {
	require := require.New(t)
	b := testBuilder()
	owner := b.testOwner(0x01)

	tx, _, err := b.CreateMarket([]Spendable{fundingCell(b, 0x10, 100)}, 100, owner)
	require.NoError(err)
	market := Spendable{Ref: cell.Ref{TxHash: tx.Hash(), Index: 0}, Cell: tx.Outputs[0]}

	_, err = b.Claim(market, nil, 1, owner)
	require.ErrorIs(err, ErrMarketNotResolved)
}

func TestFillOrders_NeedsSellerPredicate(t *testing.T) {
	require := require.New(t)
	b := testBuilder()
	seller := b.testOwner(0x01)
	buyer := b.testOwner(0x02)

	holding := fundingCell(b, 0x20, 10)
	holding.Cell.Owner = seller
	holding.Cell.Asset = &cell.Predicate{CodeHash: b.TokenCode, Mode: cell.ModeVersioned1, Args: make([]byte, consts.TokenArgsLen)}
	holding.Cell.Data = cell.TokenData{Amount: cell.U128FromUint64(4), LimitPrice: cell.U128FromUint64(0)}.Bytes()

	orderTx, err := b.PlaceOrder([]Spendable{holding}, 7, seller)
	require.NoError(err)
	order := Spendable{Ref: cell.Ref{TxHash: orderTx.Hash(), Index: 0}, Cell: orderTx.Outputs[0]}

	_, err = b.FillOrders([]Spendable{order}, []Spendable{fundingCell(b, 0x21, 100)}, buyer, nil)
	require.ErrorIs(err, ErrUnknownSeller)

	fillTx, err := b.FillOrders([]Spendable{order}, []Spendable{fundingCell(b, 0x21, 100)}, buyer, []cell.Predicate{seller})
	require.NoError(err)

	// Buyer tokens, seller payment of 28, change of 72.
	require.Len(fillTx.Outputs, 3)
	require.Equal(uint64(28), fillTx.Outputs[1].Balance)
	require.True(fillTx.Outputs[1].Owner.Equal(seller))
	require.Equal(uint64(72), fillTx.Outputs[2].Balance)
}
