package cell

import (
	"errors"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/holiman/uint256"

	"github.com/JouahriAli/ckb-prediction-market/consts"
)

var (
	ErrDataTooShort = errors.New("cell data too short")
	ErrBadHashMode  = errors.New("unknown hash mode byte")
)

// MarketData is the payload of the market's lifecycle cell.
//
// Wire format (consts.MarketDataLen bytes):
//   - bytes 0-31: token program code hash
//   - byte 32:    token program hash mode
//   - byte 33:    resolved (0 or 1)
//   - byte 34:    outcome (0 or 1, 1 = YES wins)
//
// TokenCodeHash and TokenMode are immutable after creation; Resolved only
// ever flips false to true; Outcome is frozen once Resolved is set.
type MarketData struct {
	TokenCodeHash ids.ID
	TokenMode     HashMode
	Resolved      bool
	Outcome       bool
}

// ParseMarketData decodes a market cell payload.
func ParseMarketData(data []byte) (MarketData, error) {
	if len(data) < consts.MarketDataLen {
		return MarketData{}, ErrDataTooShort
	}
	mode := HashMode(data[32])
	if !mode.Valid() {
		return MarketData{}, ErrBadHashMode
	}
	var d MarketData
	copy(d.TokenCodeHash[:], data[0:32])
	d.TokenMode = mode
	d.Resolved = data[33] != 0
	d.Outcome = data[34] != 0
	return d, nil
}

// Bytes serializes the payload to its wire form.
func (d MarketData) Bytes() []byte {
	out := make([]byte, consts.MarketDataLen)
	copy(out[0:32], d.TokenCodeHash[:])
	out[32] = byte(d.TokenMode)
	if d.Resolved {
		out[33] = 1
	}
	if d.Outcome {
		out[34] = 1
	}
	return out
}

// TokenData is the payload of a token cell. LimitPrice zero marks a plain
// holding; nonzero marks an open limit order priced in balance units per
// token.
type TokenData struct {
	Amount     *uint256.Int
	LimitPrice *uint256.Int
}

// ParseTokenData decodes a token cell payload. The legacy 16-byte form
// carries only the amount and implies a zero limit price.
func ParseTokenData(data []byte) (TokenData, error) {
	amount, err := U128FromBytes(data)
	if err != nil {
		return TokenData{}, err
	}
	price := uint256.NewInt(0)
	if len(data) >= consts.TokenDataLen {
		price, err = U128FromBytes(data[consts.AmountLen:])
		if err != nil {
			return TokenData{}, err
		}
	}
	return TokenData{Amount: amount, LimitPrice: price}, nil
}

// Bytes serializes the payload to the full 32-byte form.
func (d TokenData) Bytes() []byte {
	out := make([]byte, consts.TokenDataLen)
	PutU128(out[0:consts.AmountLen], d.Amount)
	PutU128(out[consts.AmountLen:], d.LimitPrice)
	return out
}

// LegacyBytes serializes the payload to the amount-only 16-byte form.
func (d TokenData) LegacyBytes() []byte {
	out := make([]byte, consts.AmountLen)
	PutU128(out, d.Amount)
	return out
}

// IsOrder reports whether the payload marks an open limit order.
func (d TokenData) IsOrder() bool {
	return !d.LimitPrice.IsZero()
}
