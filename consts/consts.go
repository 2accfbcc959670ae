package consts

const (
	Name   = "ckb-prediction-market"
	Symbol = "PMKT"

	// AddressHRP is the bech32 human-readable prefix of owner addresses.
	AddressHRP = "pmkt"

	// CollateralPerSet is the balance backing one complete set
	// (1 YES + 1 NO), in the smallest currency unit.
	CollateralPerSet uint64 = 10_000_000_000
)

// Side bytes carried in the last byte of a token predicate's args.
const (
	SideYes byte = 0x01
	SideNo  byte = 0x02
)

// Wire sizes.
const (
	HashLen = 32

	// MarketDataLen is token code hash (32) + hash mode (1) +
	// resolved (1) + outcome (1).
	MarketDataLen = 35

	// AmountLen is a little-endian u128.
	AmountLen = 16

	// TokenDataLen is amount (16) + limit price (16). The legacy
	// amount-only form is AmountLen bytes.
	TokenDataLen = 32

	// TokenArgsLen is market predicate hash (32) + side (1).
	TokenArgsLen = 33

	// SellerKeyLen is the owner-predicate hash an order cell carries
	// in its own owner-predicate args.
	SellerKeyLen = 32
)

// SideToString converts a side byte to its string representation.
func SideToString(side byte) string {
	switch side {
	case SideYes:
		return "YES"
	case SideNo:
		return "NO"
	default:
		return "UnknownSide"
	}
}
