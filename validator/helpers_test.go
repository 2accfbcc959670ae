package validator

import (
	"github.com/ava-labs/avalanchego/ids"
	"github.com/holiman/uint256"

	"github.com/JouahriAli/ckb-prediction-market/cell"
	"github.com/JouahriAli/ckb-prediction-market/consts"
	"github.com/JouahriAli/ckb-prediction-market/identity"
)

// Fixed program identities shared by every test in this package.
var (
	testMarketCode = cell.Blake256([]byte("test-market-program"))
	testTokenCode  = cell.Blake256([]byte("test-token-program"))
	testOwnerCode  = cell.Blake256([]byte("test-owner-program"))
)

func testOwner(tag byte) cell.Predicate {
	return cell.Predicate{CodeHash: testOwnerCode, Mode: cell.ModeVersioned1, Args: []byte{tag}}
}

func testRef(tag byte) cell.Ref {
	return cell.Ref{TxHash: cell.Blake256([]byte{tag}), Index: 0}
}

func testMarketData(resolved, outcome bool) cell.MarketData {
	return cell.MarketData{
		TokenCodeHash: testTokenCode,
		TokenMode:     cell.ModeVersioned1,
		Resolved:      resolved,
		Outcome:       outcome,
	}
}

func testMarketPredicate(id ids.ID) cell.Predicate {
	return cell.Predicate{CodeHash: testMarketCode, Mode: cell.ModeVersioned1, Args: id[:]}
}

func testMarketCell(pred cell.Predicate, balance uint64, data cell.MarketData) cell.Cell {
	return cell.Cell{
		Balance: balance,
		Owner:   testOwner(0x01),
		Asset:   &pred,
		Data:    data.Bytes(),
	}
}

func plainCell(owner cell.Predicate, balance uint64) cell.Cell {
	return cell.Cell{Balance: balance, Owner: owner}
}

// tokenCell builds a token cell of one side: price zero is a plain
// holding, nonzero an open limit order.
func tokenCell(marketHash ids.ID, side byte, owner cell.Predicate, amount, price uint64) cell.Cell {
	pred := identity.TokenPredicate(testTokenCode, cell.ModeVersioned1, marketHash, side)
	data := cell.TokenData{
		Amount:     uint256.NewInt(amount),
		LimitPrice: uint256.NewInt(price),
	}
	return cell.Cell{Balance: 100, Owner: owner, Asset: &pred, Data: data.Bytes()}
}

// orderOwner is the permissive ownership an order cell carries: the
// seller's payment-predicate hash in the args.
func orderOwner(seller cell.Predicate) cell.Predicate {
	h := seller.Hash()
	return cell.Predicate{CodeHash: testOwnerCode, Mode: cell.ModeVersioned1, Args: h[:]}
}

func inputs(cells ...cell.Cell) []cell.Input {
	out := make([]cell.Input, len(cells))
	for i, c := range cells {
		out[i] = cell.Input{Ref: testRef(byte(0x40 + i)), Cell: c}
	}
	return out
}

// creationTx assembles a valid 0->1 market creation and returns the
// market's asset predicate.
func creationTx(balance uint64, data cell.MarketData) (*cell.Transaction, cell.Predicate) {
	funding := cell.Input{Ref: testRef(0x10), Cell: plainCell(testOwner(0x01), balance)}
	id := identity.DeriveMarketID(funding.Ref, 0)
	pred := testMarketPredicate(id)
	return &cell.Transaction{
		Inputs:  []cell.Input{funding},
		Outputs: []cell.Cell{testMarketCell(pred, balance, data)},
	}, pred
}

// updateTx assembles a 1->1 market update carrying the given extra cells
// alongside the market pair.
func updateTx(pred cell.Predicate, inBal, outBal uint64, inData, outData cell.MarketData, extraIn []cell.Input, extraOut []cell.Cell) *cell.Transaction {
	tx := &cell.Transaction{
		Inputs:  []cell.Input{{Ref: testRef(0x20), Cell: testMarketCell(pred, inBal, inData)}},
		Outputs: []cell.Cell{testMarketCell(pred, outBal, outData)},
	}
	tx.Inputs = append(tx.Inputs, extraIn...)
	tx.Outputs = append(tx.Outputs, extraOut...)
	return tx
}

func sets(n uint64) uint64 {
	return n * consts.CollateralPerSet
}
