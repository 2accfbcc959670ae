package chain

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"gopkg.in/yaml.v3"

	"github.com/JouahriAli/ckb-prediction-market/cell"
	"github.com/JouahriAli/ckb-prediction-market/consts"
)

// Allocation is one genesis balance grant.
type Allocation struct {
	Address string `yaml:"address"` // bech32
	Balance uint64 `yaml:"balance"`
}

// Genesis is the bootstrap state of a fresh chain.
type Genesis struct {
	Allocations []Allocation `yaml:"allocations"`
}

// LoadGenesis parses a YAML genesis document.
func LoadGenesis(raw []byte) (*Genesis, error) {
	g := &Genesis{}
	if err := yaml.Unmarshal(raw, g); err != nil {
		return nil, fmt.Errorf("failed to parse genesis: %w", err)
	}
	return g, nil
}

// Bytes renders the genesis back to YAML.
func (g *Genesis) Bytes() ([]byte, error) {
	return yaml.Marshal(g)
}

// OwnerPredicate decodes a bech32 address into the ownership predicate it
// names: the chain's permissive program with the decoded payload as args.
func (c *Chain) OwnerPredicate(address string) (cell.Predicate, error) {
	hrp, data5bit, err := bech32.Decode(address)
	if err != nil {
		return cell.Predicate{}, fmt.Errorf("failed to decode bech32 address %s: %w", address, err)
	}
	if hrp != consts.AddressHRP {
		return cell.Predicate{}, fmt.Errorf("address %s has prefix %q, want %q", address, hrp, consts.AddressHRP)
	}
	args, err := bech32.ConvertBits(data5bit, 5, 8, false)
	if err != nil {
		return cell.Predicate{}, fmt.Errorf("failed to convert bech32 data bits for address %s: %w", address, err)
	}
	return cell.Predicate{
		CodeHash: c.params.PermissiveCodeHash,
		Mode:     cell.ModeVersioned1,
		Args:     args,
	}, nil
}

// EncodeAddress is the inverse of OwnerPredicate for permissive owners.
func EncodeAddress(args []byte) (string, error) {
	data5bit, err := bech32.ConvertBits(args, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("failed to convert address bits: %w", err)
	}
	return bech32.Encode(consts.AddressHRP, data5bit)
}

// Bootstrap inserts one plain cell per allocation at synthetic refs under
// the all-zero genesis transaction hash.
func (c *Chain) Bootstrap(g *Genesis) error {
	for i, alloc := range g.Allocations {
		owner, err := c.OwnerPredicate(alloc.Address)
		if err != nil {
			return err
		}
		ref := cell.Ref{Index: uint32(i)}
		if err := c.Insert(ref, cell.Cell{Balance: alloc.Balance, Owner: owner}); err != nil {
			return fmt.Errorf("failed to insert allocation %d: %w", i, err)
		}
	}
	return nil
}
