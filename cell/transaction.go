package cell

import (
	"encoding/binary"

	"github.com/ava-labs/avalanchego/ids"
)

// Ref names a live cell by the transaction that created it and the output
// slot it occupies. A ref is consumed at most once across all time.
type Ref struct {
	TxHash ids.ID
	Index  uint32
}

// Bytes serializes the ref as TxHash || LE32(Index).
func (r Ref) Bytes() []byte {
	out := make([]byte, ids.IDLen+4)
	copy(out, r.TxHash[:])
	binary.LittleEndian.PutUint32(out[ids.IDLen:], r.Index)
	return out
}

// ParseRef decodes a serialized ref.
func ParseRef(b []byte) (Ref, error) {
	if len(b) < ids.IDLen+4 {
		return Ref{}, ErrDataTooShort
	}
	var r Ref
	copy(r.TxHash[:], b[:ids.IDLen])
	r.Index = binary.LittleEndian.Uint32(b[ids.IDLen:])
	return r, nil
}

// Input pairs a consumed ref with the cell it points at. The execution
// environment checks the cell against its store; validators trust it.
type Input struct {
	Ref  Ref
	Cell Cell
}

// Transaction is the immutable snapshot a validator inspects: the full
// input and output cell lists, in order.
type Transaction struct {
	Inputs  []Input
	Outputs []Cell
}

// Hash is the transaction's content digest, used to mint the refs of its
// outputs. Consumed refs are unique, so including them makes the digest
// unique per accepted transaction.
func (t *Transaction) Hash() ids.ID {
	chunks := make([][]byte, 0, 1+len(t.Inputs)+len(t.Outputs))
	var counts [8]byte
	binary.LittleEndian.PutUint32(counts[0:4], uint32(len(t.Inputs)))
	binary.LittleEndian.PutUint32(counts[4:8], uint32(len(t.Outputs)))
	chunks = append(chunks, counts[:])
	for i := range t.Inputs {
		chunks = append(chunks, t.Inputs[i].Ref.Bytes())
	}
	for i := range t.Outputs {
		chunks = append(chunks, marshalCell(&t.Outputs[i]))
	}
	return Blake256(chunks...)
}

// marshalCell is the deterministic encoding used for transaction hashing
// and for the live-cell store.
func marshalCell(c *Cell) []byte {
	size := 8 + predicateSize(c.Owner) + 1 + 4 + len(c.Data)
	if c.Asset != nil {
		size += predicateSize(*c.Asset)
	}
	out := make([]byte, 0, size)

	var bal [8]byte
	binary.LittleEndian.PutUint64(bal[:], c.Balance)
	out = append(out, bal[:]...)
	out = appendPredicate(out, c.Owner)
	if c.Asset != nil {
		out = append(out, 1)
		out = appendPredicate(out, *c.Asset)
	} else {
		out = append(out, 0)
	}
	var dlen [4]byte
	binary.LittleEndian.PutUint32(dlen[:], uint32(len(c.Data)))
	out = append(out, dlen[:]...)
	out = append(out, c.Data...)
	return out
}

func predicateSize(p Predicate) int {
	return ids.IDLen + 1 + 4 + len(p.Args)
}

func appendPredicate(out []byte, p Predicate) []byte {
	out = append(out, p.CodeHash[:]...)
	out = append(out, byte(p.Mode))
	var alen [4]byte
	binary.LittleEndian.PutUint32(alen[:], uint32(len(p.Args)))
	out = append(out, alen[:]...)
	return append(out, p.Args...)
}

// MarshalCell exposes the store encoding of a cell.
func MarshalCell(c *Cell) []byte {
	return marshalCell(c)
}

// UnmarshalCell decodes a cell from its store encoding.
func UnmarshalCell(b []byte) (Cell, error) {
	var c Cell
	if len(b) < 8 {
		return c, ErrDataTooShort
	}
	c.Balance = binary.LittleEndian.Uint64(b[:8])
	rest := b[8:]

	var err error
	c.Owner, rest, err = consumePredicate(rest)
	if err != nil {
		return c, err
	}
	if len(rest) < 1 {
		return c, ErrDataTooShort
	}
	hasAsset := rest[0] != 0
	rest = rest[1:]
	if hasAsset {
		var asset Predicate
		asset, rest, err = consumePredicate(rest)
		if err != nil {
			return c, err
		}
		c.Asset = &asset
	}
	if len(rest) < 4 {
		return c, ErrDataTooShort
	}
	dlen := binary.LittleEndian.Uint32(rest[:4])
	rest = rest[4:]
	if uint32(len(rest)) < dlen {
		return c, ErrDataTooShort
	}
	c.Data = append([]byte(nil), rest[:dlen]...)
	return c, nil
}

func consumePredicate(b []byte) (Predicate, []byte, error) {
	var p Predicate
	if len(b) < ids.IDLen+1+4 {
		return p, nil, ErrDataTooShort
	}
	copy(p.CodeHash[:], b[:ids.IDLen])
	p.Mode = HashMode(b[ids.IDLen])
	alen := binary.LittleEndian.Uint32(b[ids.IDLen+1 : ids.IDLen+5])
	rest := b[ids.IDLen+5:]
	if uint32(len(rest)) < alen {
		return p, nil, ErrDataTooShort
	}
	if alen > 0 {
		p.Args = append([]byte(nil), rest[:alen]...)
	}
	return p, rest[alen:], nil
}
