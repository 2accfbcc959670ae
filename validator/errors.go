package validator

import (
	"errors"
	"fmt"
)

// Error is a rejected-invariant code. Validation is binary: a nil error
// admits the transaction, anything else rejects it with a specific code
// surfaced to the submitter. There is no retry or partial acceptance.
type Error struct {
	Code   int8
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Reason, e.Code)
}

// Codes 1-15 keep the numbering of the deployed programs; later codes
// cover the rules added after those were assigned.
var (
	ErrEncoding = &Error{4, "malformed cell payload"}

	ErrInvalidMarketData  = &Error{10, "invalid market data"}
	ErrMarketCellCount    = &Error{11, "transaction must carry exactly one market cell per side touched"}
	ErrSupplyDirection    = &Error{12, "token supply moved against the balance change"}
	ErrUnequalPair        = &Error{13, "yes and no supply deltas are unequal"}
	ErrCollateralMismatch = &Error{14, "balance delta does not match complete-set collateral"}
	ErrOwnerChanged       = &Error{15, "market owner predicate changed"}
	ErrIdentityMismatch   = &Error{16, "market identifier does not match its derivation"}
	ErrResolutionFrozen   = &Error{17, "resolved outcome is immutable"}
	ErrTokenFieldsChanged = &Error{18, "token identity fields changed after creation"}

	ErrInvalidTokenArgs = &Error{20, "malformed token predicate args"}
	ErrUnauthorizedMint = &Error{21, "token mint without the market cell"}
	ErrPaymentMismatch  = &Error{22, "seller payment does not match filled orders"}
	ErrInvalidRemainder = &Error{23, "order remainder exceeds the order amount"}
	ErrOverflow         = &Error{25, "arithmetic overflow"}
)

// Code maps an error to its wire code: 0 for accept, the specific code
// for a validation failure, -1 for anything else.
func Code(err error) int8 {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return -1
}
