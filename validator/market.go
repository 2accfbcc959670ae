// Package validator holds the transaction validator pair: the market
// validator governing the lifecycle cell and the token validator
// enforcing conservation and limit-order settlement. Both are pure
// functions of one transaction snapshot plus their own predicate; they
// never block, retry, or touch anything outside the transaction.
package validator

import (
	"bytes"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/holiman/uint256"

	"github.com/JouahriAli/ckb-prediction-market/cell"
	"github.com/JouahriAli/ckb-prediction-market/consts"
	"github.com/JouahriAli/ckb-prediction-market/identity"
	"github.com/JouahriAli/ckb-prediction-market/scan"
)

// ValidateMarket checks every rule the market's lifecycle cell imposes on
// tx. self is the market cell's own asset predicate; its args carry the
// one-time market identifier.
func ValidateMarket(tx *cell.Transaction, self cell.Predicate) error {
	selfHash := self.Hash()

	if n := scan.CountByIdentity(tx, scan.SourceOutput, selfHash); n != 1 {
		return fmt.Errorf("%w: %d market cells in outputs", ErrMarketCellCount, n)
	}
	outIdx, outCell, _ := scan.FindByIdentity(tx, scan.SourceOutput, selfHash)
	outData, err := cell.ParseMarketData(outCell.Data)
	if err != nil {
		return fmt.Errorf("%w: output market data: %v", ErrEncoding, err)
	}

	switch n := scan.CountByIdentity(tx, scan.SourceInput, selfHash); n {
	case 0:
		return validateCreation(tx, self, outIdx, outData)
	case 1:
		return validateUpdate(tx, selfHash, outCell, outData)
	default:
		return fmt.Errorf("%w: %d market cells in inputs", ErrMarketCellCount, n)
	}
}

// validateCreation admits the 0->1 transition that brings the market into
// existence.
func validateCreation(tx *cell.Transaction, self cell.Predicate, outIdx int, outData cell.MarketData) error {
	if outData.Resolved || outData.Outcome {
		return fmt.Errorf("%w: market cannot be created resolved", ErrInvalidMarketData)
	}
	if outData.TokenCodeHash == ids.Empty {
		return fmt.Errorf("%w: token code hash is zero", ErrInvalidMarketData)
	}
	if len(self.Args) != consts.HashLen {
		return fmt.Errorf("%w: market args are %d bytes, want %d", ErrIdentityMismatch, len(self.Args), consts.HashLen)
	}
	if len(tx.Inputs) == 0 {
		return fmt.Errorf("%w: creation consumes no cells", ErrIdentityMismatch)
	}
	want := identity.DeriveMarketID(tx.Inputs[0].Ref, uint64(outIdx))
	if !bytes.Equal(self.Args, want[:]) {
		return fmt.Errorf("%w: got %x want %x", ErrIdentityMismatch, self.Args, want[:])
	}
	return nil
}

// validateUpdate admits the 1->1 transitions: mint, burn, resolve, claim
// and no-op, depending on the balance delta and the resolved flag.
func validateUpdate(tx *cell.Transaction, selfHash ids.ID, outCell *cell.Cell, outData cell.MarketData) error {
	_, inCell, _ := scan.FindByIdentity(tx, scan.SourceInput, selfHash)
	inData, err := cell.ParseMarketData(inCell.Data)
	if err != nil {
		return fmt.Errorf("%w: input market data: %v", ErrEncoding, err)
	}

	// Whoever may spend the market's funds must stay the same party.
	if !inCell.Owner.Equal(outCell.Owner) {
		return ErrOwnerChanged
	}
	if inData.TokenCodeHash != outData.TokenCodeHash || inData.TokenMode != outData.TokenMode {
		return ErrTokenFieldsChanged
	}
	// The identifier persists verbatim; it is never re-derived.
	if !bytes.Equal(inCell.Asset.Args, outCell.Asset.Args) {
		return fmt.Errorf("%w: identifier changed across update", ErrIdentityMismatch)
	}

	yesID := identity.DeriveTokenIdentity(inData.TokenCodeHash, inData.TokenMode, selfHash, consts.SideYes)
	noID := identity.DeriveTokenIdentity(inData.TokenCodeHash, inData.TokenMode, selfHash, consts.SideNo)
	totals, err := sumSides(tx, yesID, noID)
	if err != nil {
		return err
	}

	if inData.Resolved {
		return validateResolvedUpdate(inData, outData, inCell.Balance, outCell.Balance, totals)
	}
	return validateOpenUpdate(inData, outData, inCell.Balance, outCell.Balance, totals)
}

type sideTotals struct {
	yesIn, yesOut *uint256.Int
	noIn, noOut   *uint256.Int
}

func sumSides(tx *cell.Transaction, yesID, noID ids.ID) (sideTotals, error) {
	var t sideTotals
	var err error
	if t.yesIn, err = sumSide(tx, scan.SourceInput, yesID); err != nil {
		return t, err
	}
	if t.yesOut, err = sumSide(tx, scan.SourceOutput, yesID); err != nil {
		return t, err
	}
	if t.noIn, err = sumSide(tx, scan.SourceInput, noID); err != nil {
		return t, err
	}
	t.noOut, err = sumSide(tx, scan.SourceOutput, noID)
	return t, err
}

func sumSide(tx *cell.Transaction, src scan.Source, id ids.ID) (*uint256.Int, error) {
	total, err := scan.SumByIdentity(tx, src, id)
	if err != nil {
		return nil, wrapScanErr(err)
	}
	return total, nil
}

func wrapScanErr(err error) error {
	if err == scan.ErrAmountOverflow {
		return fmt.Errorf("%w: %v", ErrOverflow, err)
	}
	return fmt.Errorf("%w: %v", ErrEncoding, err)
}

// validateOpenUpdate covers mint, burn, no-op and the resolve flip while
// the market is still open.
func validateOpenUpdate(inData, outData cell.MarketData, capIn, capOut uint64, t sideTotals) error {
	if outData.Resolved {
		// Resolution is a pure metadata flip: no balance movement, no
		// supply movement, in the same transaction.
		if capOut != capIn {
			return fmt.Errorf("%w: resolution must not move the market balance", ErrInvalidMarketData)
		}
		if !t.yesOut.Eq(t.yesIn) || !t.noOut.Eq(t.noIn) {
			return fmt.Errorf("%w: resolution must not move token supply", ErrInvalidMarketData)
		}
		return nil
	}
	if outData.Outcome != inData.Outcome {
		return fmt.Errorf("%w: outcome set while unresolved", ErrInvalidMarketData)
	}

	switch {
	case capOut > capIn:
		return checkCompleteSetDelta(capOut-capIn, t.yesOut, t.yesIn, t.noOut, t.noIn)
	case capOut < capIn:
		return checkCompleteSetDelta(capIn-capOut, t.yesIn, t.yesOut, t.noIn, t.noOut)
	default:
		if !t.yesOut.Eq(t.yesIn) || !t.noOut.Eq(t.noIn) {
			return fmt.Errorf("%w: supply changed without a balance change", ErrCollateralMismatch)
		}
		return nil
	}
}

// checkCompleteSetDelta enforces the par-collateralization invariant for
// a mint (hi=out, lo=in) or burn (hi=in, lo=out): both sides move by the
// same positive delta and the balance moves by exactly delta sets.
func checkCompleteSetDelta(capDelta uint64, yesHi, yesLo, noHi, noLo *uint256.Int) error {
	if yesHi.Lt(yesLo) || noHi.Lt(noLo) {
		return ErrSupplyDirection
	}
	dYes, _ := cell.SubU128(yesHi, yesLo)
	dNo, _ := cell.SubU128(noHi, noLo)
	if !dYes.Eq(dNo) {
		return fmt.Errorf("%w: yes %s, no %s", ErrUnequalPair, dYes, dNo)
	}
	if dYes.IsZero() {
		return fmt.Errorf("%w: balance moved without a supply change", ErrSupplyDirection)
	}
	want, ok := cell.MulU128(dYes, cell.U128FromUint64(consts.CollateralPerSet))
	if !ok {
		return ErrOverflow
	}
	if !want.Eq(cell.U128FromUint64(capDelta)) {
		return fmt.Errorf("%w: balance delta %d, want %s for %s sets", ErrCollateralMismatch, capDelta, want, dYes)
	}
	return nil
}

// validateResolvedUpdate covers claim and no-op once the market has
// resolved; the outcome is frozen and the balance can only fall.
func validateResolvedUpdate(inData, outData cell.MarketData, capIn, capOut uint64, t sideTotals) error {
	if !outData.Resolved || outData.Outcome != inData.Outcome {
		return ErrResolutionFrozen
	}

	winIn, winOut := t.yesIn, t.yesOut
	loseIn, loseOut := t.noIn, t.noOut
	if !inData.Outcome {
		winIn, winOut = t.noIn, t.noOut
		loseIn, loseOut = t.yesIn, t.yesOut
	}

	switch {
	case capOut < capIn:
		if winOut.Gt(winIn) {
			return ErrSupplyDirection
		}
		burned, _ := cell.SubU128(winIn, winOut)
		if burned.IsZero() {
			return fmt.Errorf("%w: claim burns no winning tokens", ErrSupplyDirection)
		}
		if !loseOut.Eq(loseIn) {
			return fmt.Errorf("%w: losing side moved during claim", ErrSupplyDirection)
		}
		want, ok := cell.MulU128(burned, cell.U128FromUint64(consts.CollateralPerSet))
		if !ok {
			return ErrOverflow
		}
		if !want.Eq(cell.U128FromUint64(capIn - capOut)) {
			return fmt.Errorf("%w: balance delta %d, want %s for %s burned", ErrCollateralMismatch, capIn-capOut, want, burned)
		}
		return nil
	case capOut == capIn:
		if !winOut.Eq(winIn) || !loseOut.Eq(loseIn) {
			return fmt.Errorf("%w: supply changed without a balance change", ErrCollateralMismatch)
		}
		return nil
	default:
		return fmt.Errorf("%w: balance cannot grow after resolution", ErrInvalidMarketData)
	}
}
