package validator

import (
	"bytes"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/holiman/uint256"

	"github.com/JouahriAli/ckb-prediction-market/cell"
	"github.com/JouahriAli/ckb-prediction-market/consts"
	"github.com/JouahriAli/ckb-prediction-market/scan"
)

// tokenArgs is the parsed form of a token predicate's args: the market it
// belongs to and which side it denominates.
type tokenArgs struct {
	MarketHash ids.ID
	Side       byte
}

func parseTokenArgs(args []byte) (tokenArgs, error) {
	if len(args) < consts.TokenArgsLen {
		return tokenArgs{}, fmt.Errorf("%w: args are %d bytes, want %d", ErrInvalidTokenArgs, len(args), consts.TokenArgsLen)
	}
	var a tokenArgs
	copy(a.MarketHash[:], args[:consts.HashLen])
	a.Side = args[consts.HashLen]
	if a.Side != consts.SideYes && a.Side != consts.SideNo {
		return tokenArgs{}, fmt.Errorf("%w: side byte 0x%02x", ErrInvalidTokenArgs, a.Side)
	}
	return a, nil
}

// ValidateToken checks conservation and limit-order settlement for one
// token side. self is the side's own predicate; its args carry the market
// predicate hash and the side byte.
func ValidateToken(tx *cell.Transaction, self cell.Predicate) error {
	selfHash := self.Hash()
	args, err := parseTokenArgs(self.Args)
	if err != nil {
		return err
	}

	inTotal, err := scan.SumByIdentity(tx, scan.SourceInput, selfHash)
	if err != nil {
		return wrapScanErr(err)
	}
	outTotal, err := scan.SumByIdentity(tx, scan.SourceOutput, selfHash)
	if err != nil {
		return wrapScanErr(err)
	}

	// Mint, burn and claim always co-spend the market cell, and the
	// market validator owns the full legality of those transactions.
	if scan.CountByIdentity(tx, scan.SourceInput, args.MarketHash) > 0 {
		return nil
	}

	if outTotal.Gt(inTotal) {
		return fmt.Errorf("%w: in %s, out %s", ErrUnauthorizedMint, inTotal, outTotal)
	}
	return validateSettlement(tx, selfHash)
}

// orderInput is one consumed limit-order cell of this side.
type orderInput struct {
	owner cell.Predicate
	data  cell.TokenData
}

// validateSettlement reconciles payments for every limit order consumed
// without the market cell present. Orders are grouped by seller key (the
// raw owner-predicate args, holding the seller's real payment-predicate
// hash) and each seller is settled exactly once, at the key's first
// occurrence, over all of that seller's orders in the input list.
func validateSettlement(tx *cell.Transaction, selfHash ids.ID) error {
	var orders []orderInput
	for _, c := range scan.Cells(tx, scan.SourceInput) {
		h, ok := c.AssetHash()
		if !ok || h != selfHash {
			continue
		}
		data, err := cell.ParseTokenData(c.Data)
		if err != nil {
			return fmt.Errorf("%w: order payload: %v", ErrEncoding, err)
		}
		if !data.IsOrder() {
			continue
		}
		orders = append(orders, orderInput{owner: c.Owner, data: data})
	}

	seen := make(map[string]struct{}, len(orders))
	for i := range orders {
		key := string(orders[i].owner.Args)
		if _, done := seen[key]; done {
			continue
		}
		seen[key] = struct{}{}

		required := uint256.NewInt(0)
		for j := i; j < len(orders); j++ {
			o := &orders[j]
			if string(o.owner.Args) != key {
				continue
			}
			sold, err := soldAmount(tx, selfHash, o)
			if err != nil {
				return err
			}
			pay, ok := cell.MulU128(sold, o.data.LimitPrice)
			if !ok {
				return ErrOverflow
			}
			required, ok = cell.AddU128(required, pay)
			if !ok {
				return ErrOverflow
			}
		}

		// A seller spending any of their own plain cells in this
		// transaction is reclaiming or restructuring their own order;
		// payment checking is skipped for the whole group.
		if scan.HasPlainByOwnerHash(tx, scan.SourceInput, []byte(key)) {
			continue
		}
		paid := scan.SumPlainByOwnerHash(tx, scan.SourceOutput, []byte(key))
		if !paid.Eq(required) {
			return fmt.Errorf("%w: seller %x paid %s, owed %s", ErrPaymentMismatch, key, paid, required)
		}
	}
	return nil
}

// soldAmount computes how much of one order was filled: the order amount
// minus the first matching remainder output. A remainder must keep the
// order's owner code identity, owner args and exact limit price; a price
// change of any kind, including to zero, disqualifies the output, so a
// masked cancellation is treated as a full fill and still owes payment.
func soldAmount(tx *cell.Transaction, selfHash ids.ID, o *orderInput) (*uint256.Int, error) {
	remainder := uint256.NewInt(0)
	for _, c := range scan.Cells(tx, scan.SourceOutput) {
		h, ok := c.AssetHash()
		if !ok || h != selfHash {
			continue
		}
		if c.Owner.CodeHash != o.owner.CodeHash || !bytes.Equal(c.Owner.Args, o.owner.Args) {
			continue
		}
		data, err := cell.ParseTokenData(c.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: remainder payload: %v", ErrEncoding, err)
		}
		if !data.LimitPrice.Eq(o.data.LimitPrice) {
			continue
		}
		remainder = data.Amount
		break
	}
	if remainder.Gt(o.data.Amount) {
		return nil, fmt.Errorf("%w: remainder %s, order %s", ErrInvalidRemainder, remainder, o.data.Amount)
	}
	sold, _ := cell.SubU128(o.data.Amount, remainder)
	return sold, nil
}
