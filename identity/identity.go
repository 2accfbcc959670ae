// Package identity derives the cryptographic identities the validators
// filter cells by: the per-side token identity a market's payload implies,
// and the one-time market identifier minted at creation.
package identity

import (
	"encoding/binary"

	"github.com/ava-labs/avalanchego/ids"

	"github.com/JouahriAli/ckb-prediction-market/cell"
	"github.com/JouahriAli/ckb-prediction-market/consts"
)

// TokenPredicate assembles the exact predicate a token cell of the given
// side must carry: the token program's code identity and mode, with args
// marketHash || side. The byte layout must match what the assembler used
// when the token cells were created, or every aggregation over that side
// silently undercounts.
func TokenPredicate(tokenCodeHash ids.ID, mode cell.HashMode, marketHash ids.ID, side byte) cell.Predicate {
	args := make([]byte, consts.TokenArgsLen)
	copy(args, marketHash[:])
	args[consts.HashLen] = side
	return cell.Predicate{CodeHash: tokenCodeHash, Mode: mode, Args: args}
}

// DeriveTokenIdentity is the content hash of the side's token predicate,
// computed from the market cell's own payload fields plus the market's
// predicate hash. This lets the market validator recognize token cells
// without embedding the token program.
func DeriveTokenIdentity(tokenCodeHash ids.ID, mode cell.HashMode, marketHash ids.ID, side byte) ids.ID {
	return TokenPredicate(tokenCodeHash, mode, marketHash, side).Hash()
}

// DeriveMarketID mints the market's one-time identifier from the first
// consumed cell ref and the output slot the market cell occupies. A ref
// is consumed at most once across all time, so the identifier is globally
// unique.
func DeriveMarketID(first cell.Ref, outputIndex uint64) ids.ID {
	var idx [8]byte
	binary.LittleEndian.PutUint64(idx[:], outputIndex)
	return cell.Blake256(first.Bytes(), idx[:])
}
