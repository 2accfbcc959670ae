// Package cell defines the ledger's cell model: a cell carries a currency
// balance, an ownership predicate, an optional asset-class predicate and a
// data payload. A transaction atomically consumes a set of live cells and
// creates a set of new ones; validation programs only ever see one
// transaction's immutable input/output cell lists.
package cell

import (
	"bytes"

	"github.com/ava-labs/avalanchego/ids"
)

// HashMode selects how a predicate's CodeHash is interpreted when the
// ledger locates the program it names.
type HashMode byte

const (
	// ModeExactCode matches program code by its data hash.
	ModeExactCode HashMode = 0x00
	// ModeExactType matches the program's own type identity.
	ModeExactType HashMode = 0x01
	// ModeVersioned1 and ModeVersioned2 match code by data hash under
	// versioned VM semantics.
	ModeVersioned1 HashMode = 0x02
	ModeVersioned2 HashMode = 0x04
)

// Valid reports whether m is one of the defined hash modes.
func (m HashMode) Valid() bool {
	switch m {
	case ModeExactCode, ModeExactType, ModeVersioned1, ModeVersioned2:
		return true
	default:
		return false
	}
}

// Predicate is a (code identity, hash mode, args) triple acting as an
// unforgeable capability tag. Two predicates are equal iff all three
// fields match byte for byte.
type Predicate struct {
	CodeHash ids.ID
	Mode     HashMode
	Args     []byte
}

// Equal reports byte-exact predicate equality.
func (p Predicate) Equal(o Predicate) bool {
	return p.CodeHash == o.CodeHash && p.Mode == o.Mode && bytes.Equal(p.Args, o.Args)
}

// Hash is the predicate's content hash, used as the asset-class identity
// key throughout validation. The preimage is CodeHash || Mode || Args;
// only the trailing field is variable length, so the encoding is
// injective.
func (p Predicate) Hash() ids.ID {
	return Blake256(p.CodeHash[:], []byte{byte(p.Mode)}, p.Args)
}

// Cell is one unit of ledger state. A nil Asset means the cell is a plain
// currency holding with no asset-class rules attached.
type Cell struct {
	Balance uint64
	Owner   Predicate
	Asset   *Predicate
	Data    []byte
}

// AssetHash returns the hash of the cell's asset predicate, if any.
func (c *Cell) AssetHash() (ids.ID, bool) {
	if c.Asset == nil {
		return ids.Empty, false
	}
	return c.Asset.Hash(), true
}
