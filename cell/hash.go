package cell

import (
	"github.com/ava-labs/avalanchego/ids"
	"golang.org/x/crypto/blake2b"
)

// hashTag domain-separates every digest this ledger produces.
const hashTag = "ckb-default-hash"

// Blake256 is the ledger's content hash: blake2b-256 over the hashTag
// followed by each chunk in order.
func Blake256(chunks ...[]byte) ids.ID {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err) // only possible with an oversized key
	}
	h.Write([]byte(hashTag))
	for _, c := range chunks {
		h.Write(c)
	}
	var out ids.ID
	copy(out[:], h.Sum(nil))
	return out
}
