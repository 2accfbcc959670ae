package scan

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/JouahriAli/ckb-prediction-market/cell"
)

var (
	assetCode = cell.Blake256([]byte("asset-program"))
	ownerCode = cell.Blake256([]byte("owner-program"))
)

func owner(tag byte) cell.Predicate {
	return cell.Predicate{CodeHash: ownerCode, Mode: cell.ModeVersioned1, Args: []byte{tag}}
}

func asset(tag byte) *cell.Predicate {
	return &cell.Predicate{CodeHash: assetCode, Mode: cell.ModeVersioned1, Args: []byte{tag}}
}

func tokenCell(a *cell.Predicate, amount uint64) cell.Cell {
	data := cell.TokenData{Amount: uint256.NewInt(amount), LimitPrice: uint256.NewInt(0)}
	return cell.Cell{Balance: 1, Owner: owner(0x01), Asset: a, Data: data.Bytes()}
}

func asInputs(cells ...cell.Cell) []cell.Input {
	out := make([]cell.Input, len(cells))
	for i, c := range cells {
		out[i] = cell.Input{Cell: c}
	}
	return out
}

func TestSumByIdentity(t *testing.T) {
	require := require.New(t)

	a, b := asset(0x0a), asset(0x0b)
	tx := &cell.Transaction{
		Inputs:  asInputs(tokenCell(a, 3), tokenCell(b, 100), tokenCell(a, 4)),
		Outputs: []cell.Cell{tokenCell(a, 7)},
	}

	in, err := SumByIdentity(tx, SourceInput, a.Hash())
	require.NoError(err)
	require.True(in.Eq(uint256.NewInt(7)))

	out, err := SumByIdentity(tx, SourceOutput, a.Hash())
	require.NoError(err)
	require.True(out.Eq(uint256.NewInt(7)))

	none, err := SumByIdentity(tx, SourceOutput, b.Hash())
	require.NoError(err)
	require.True(none.IsZero())
}

func TestSumByIdentity_ShortPayload(t *testing.T) {
	require := require.New(t)

	bad := cell.Cell{Owner: owner(0x01), Asset: asset(0x0a), Data: []byte{0x01}}
	tx := &cell.Transaction{Inputs: asInputs(bad)}

	_, err := SumByIdentity(tx, SourceInput, asset(0x0a).Hash())
	require.ErrorIs(err, cell.ErrDataTooShort)
}

func TestSumByIdentity_Overflow(t *testing.T) {
	require := require.New(t)

	max := cell.TokenData{
		Amount:     &uint256.Int{^uint64(0), ^uint64(0), 0, 0},
		LimitPrice: uint256.NewInt(0),
	}
	a := asset(0x0a)
	big := cell.Cell{Owner: owner(0x01), Asset: a, Data: max.Bytes()}
	tx := &cell.Transaction{Inputs: asInputs(big, big)}

	_, err := SumByIdentity(tx, SourceInput, a.Hash())
	require.ErrorIs(err, ErrAmountOverflow)
}

func TestFindAndCountByIdentity(t *testing.T) {
	require := require.New(t)

	a, b := asset(0x0a), asset(0x0b)
	tx := &cell.Transaction{
		Inputs: asInputs(tokenCell(b, 1), tokenCell(a, 2), tokenCell(a, 3)),
	}

	idx, found, ok := FindByIdentity(tx, SourceInput, a.Hash())
	require.True(ok)
	require.Equal(1, idx)
	require.NotNil(found)

	require.Equal(2, CountByIdentity(tx, SourceInput, a.Hash()))
	require.Equal(0, CountByIdentity(tx, SourceOutput, a.Hash()))

	_, _, ok = FindByIdentity(tx, SourceOutput, b.Hash())
	require.False(ok)
}

func TestSumPlainByOwnerHash(t *testing.T) {
	require := require.New(t)

	target := owner(0x0a)
	h := target.Hash()
	tx := &cell.Transaction{
		Outputs: []cell.Cell{
			{Balance: 10, Owner: target},
			{Balance: 5, Owner: owner(0x0b)},
			// Asset-bearing cells never count as payment.
			{Balance: 100, Owner: target, Asset: asset(0x0a), Data: cell.TokenData{Amount: uint256.NewInt(1), LimitPrice: uint256.NewInt(0)}.Bytes()},
			{Balance: 7, Owner: target},
		},
	}

	total := SumPlainByOwnerHash(tx, SourceOutput, h[:])
	require.True(total.Eq(uint256.NewInt(17)))

	require.False(HasPlainByOwnerHash(tx, SourceInput, h[:]))
	require.True(HasPlainByOwnerHash(tx, SourceOutput, h[:]))
}
