package cell

import (
	"encoding/binary"

	"github.com/holiman/uint256"

	"github.com/JouahriAli/ckb-prediction-market/consts"
)

// Token amounts and limit prices are 128-bit unsigned integers carried as
// 16 little-endian bytes. They are held in uint256.Int values whose upper
// two limbs stay zero; every arithmetic helper re-checks the 128-bit
// bound so overflow can never wrap silently.

// IsU128 reports whether v fits in 128 bits.
func IsU128(v *uint256.Int) bool {
	return v[2] == 0 && v[3] == 0
}

// U128FromBytes decodes the leading 16 bytes of b as a little-endian
// 128-bit amount.
func U128FromBytes(b []byte) (*uint256.Int, error) {
	if len(b) < consts.AmountLen {
		return nil, ErrDataTooShort
	}
	return &uint256.Int{
		binary.LittleEndian.Uint64(b[0:8]),
		binary.LittleEndian.Uint64(b[8:16]),
		0,
		0,
	}, nil
}

// PutU128 writes v as 16 little-endian bytes into dst.
func PutU128(dst []byte, v *uint256.Int) {
	_ = dst[consts.AmountLen-1]
	binary.LittleEndian.PutUint64(dst[0:8], v[0])
	binary.LittleEndian.PutUint64(dst[8:16], v[1])
}

// U128FromUint64 lifts a 64-bit value into an amount.
func U128FromUint64(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// AddU128 returns a+b, or ok=false when the sum exceeds 128 bits.
func AddU128(a, b *uint256.Int) (*uint256.Int, bool) {
	sum := new(uint256.Int).Add(a, b)
	return sum, IsU128(sum)
}

// SubU128 returns a-b, or ok=false on underflow.
func SubU128(a, b *uint256.Int) (*uint256.Int, bool) {
	diff, borrow := new(uint256.Int).SubOverflow(a, b)
	return diff, !borrow
}

// MulU128 returns a*b, or ok=false when the product exceeds 128 bits.
func MulU128(a, b *uint256.Int) (*uint256.Int, bool) {
	prod, overflow := new(uint256.Int).MulOverflow(a, b)
	return prod, !overflow && IsU128(prod)
}
