// Package scan aggregates over one transaction's cell lists: filtering by
// asset identity hash and summing or collecting per-cell fields. The
// validators pass their own identity in explicitly; nothing here reaches
// into ambient context.
package scan

import (
	"bytes"
	"errors"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/holiman/uint256"

	"github.com/JouahriAli/ckb-prediction-market/cell"
)

// ErrAmountOverflow marks an aggregation that exceeded 128 bits. It is a
// hard validation failure, never clamped.
var ErrAmountOverflow = errors.New("token amount sum overflows u128")

// Source selects which side of the transaction to scan.
type Source uint8

const (
	SourceInput Source = iota
	SourceOutput
)

// Cells returns the cells on the given side, in transaction order. Input
// cells are returned by pointer into the transaction; callers must not
// mutate them.
func Cells(tx *cell.Transaction, src Source) []*cell.Cell {
	if src == SourceInput {
		out := make([]*cell.Cell, len(tx.Inputs))
		for i := range tx.Inputs {
			out[i] = &tx.Inputs[i].Cell
		}
		return out
	}
	out := make([]*cell.Cell, len(tx.Outputs))
	for i := range tx.Outputs {
		out[i] = &tx.Outputs[i]
	}
	return out
}

// SumByIdentity sums the leading 16-byte amount of every cell on src
// whose asset predicate hashes to id. A short payload or a 128-bit
// overflow aborts with an error.
func SumByIdentity(tx *cell.Transaction, src Source, id ids.ID) (*uint256.Int, error) {
	total := uint256.NewInt(0)
	for _, c := range Cells(tx, src) {
		h, ok := c.AssetHash()
		if !ok || h != id {
			continue
		}
		amount, err := cell.U128FromBytes(c.Data)
		if err != nil {
			return nil, err
		}
		total, ok = cell.AddU128(total, amount)
		if !ok {
			return nil, ErrAmountOverflow
		}
	}
	return total, nil
}

// FindByIdentity returns the first cell on src whose asset predicate
// hashes to id, with its index.
func FindByIdentity(tx *cell.Transaction, src Source, id ids.ID) (int, *cell.Cell, bool) {
	for i, c := range Cells(tx, src) {
		if h, ok := c.AssetHash(); ok && h == id {
			return i, c, true
		}
	}
	return 0, nil, false
}

// CountByIdentity counts cells on src whose asset predicate hashes to id.
func CountByIdentity(tx *cell.Transaction, src Source, id ids.ID) int {
	n := 0
	for _, c := range Cells(tx, src) {
		if h, ok := c.AssetHash(); ok && h == id {
			n++
		}
	}
	return n
}

// SumPlainByOwnerHash sums the balances of cells on src that carry no
// asset predicate and whose owner predicate hashes to ownerHash. Balances
// are 64-bit; the running sum is widened so it cannot wrap.
func SumPlainByOwnerHash(tx *cell.Transaction, src Source, ownerHash []byte) *uint256.Int {
	total := uint256.NewInt(0)
	for _, c := range Cells(tx, src) {
		if c.Asset != nil {
			continue
		}
		h := c.Owner.Hash()
		if !bytes.Equal(h[:], ownerHash) {
			continue
		}
		total.Add(total, uint256.NewInt(c.Balance))
	}
	return total
}

// HasPlainByOwnerHash reports whether src holds any plain cell whose
// owner predicate hashes to ownerHash.
func HasPlainByOwnerHash(tx *cell.Transaction, src Source, ownerHash []byte) bool {
	for _, c := range Cells(tx, src) {
		if c.Asset != nil {
			continue
		}
		if h := c.Owner.Hash(); bytes.Equal(h[:], ownerHash) {
			return true
		}
	}
	return false
}
