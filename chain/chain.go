// Package chain is the execution environment around the validators: a
// live-cell store keyed by ref, atomic apply of candidate transactions,
// and dispatch of each asset predicate in a transaction to the validator
// its code hash names.
package chain

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/ids"
	"go.uber.org/zap"

	"github.com/JouahriAli/ckb-prediction-market/cell"
	"github.com/JouahriAli/ckb-prediction-market/txbuilder"
	"github.com/JouahriAli/ckb-prediction-market/validator"
)

var (
	ErrUnknownRef       = errors.New("input ref is not a live cell")
	ErrCellMismatch     = errors.New("input cell does not match the live cell")
	ErrBalanceInflation = errors.New("outputs carry more balance than inputs")
	ErrUnknownAssetCode = errors.New("asset predicate names an unknown program")
	ErrEmptyTransaction = errors.New("transaction consumes and creates nothing")
)

// Params names the deployed programs the chain recognizes.
type Params struct {
	MarketCodeHash     ids.ID
	TokenCodeHash      ids.ID
	PermissiveCodeHash ids.ID
}

// Chain holds the live-cell set and applies transactions against it.
// Ownership predicates are treated as permissive here; authorization is
// the concern of the signing layer in front of this store.
type Chain struct {
	params Params
	db     database.Database
	log    *zap.Logger
}

// New returns an empty in-memory chain.
func New(params Params, log *zap.Logger) *Chain {
	if log == nil {
		log = zap.NewNop()
	}
	return &Chain{params: params, db: memdb.New(), log: log}
}

// Get returns the live cell at ref, if any.
func (c *Chain) Get(ref cell.Ref) (cell.Cell, bool, error) {
	raw, err := c.db.Get(ref.Bytes())
	if err == database.ErrNotFound {
		return cell.Cell{}, false, nil
	}
	if err != nil {
		return cell.Cell{}, false, err
	}
	cl, err := cell.UnmarshalCell(raw)
	if err != nil {
		return cell.Cell{}, false, fmt.Errorf("corrupt cell at %x: %w", ref.Bytes(), err)
	}
	return cl, true, nil
}

// Insert places a cell at ref directly, bypassing validation. Used for
// genesis bootstrap only.
func (c *Chain) Insert(ref cell.Ref, cl cell.Cell) error {
	return c.db.Put(ref.Bytes(), cell.MarshalCell(&cl))
}

// Apply validates tx against the live-cell set and, on success, consumes
// its inputs and creates its outputs atomically. It returns the tx hash
// the new outputs are reachable under.
func (c *Chain) Apply(tx *cell.Transaction) (ids.ID, error) {
	if len(tx.Inputs) == 0 && len(tx.Outputs) == 0 {
		return ids.Empty, ErrEmptyTransaction
	}

	inBalance := uint64(0)
	for i := range tx.Inputs {
		in := &tx.Inputs[i]
		live, found, err := c.Get(in.Ref)
		if err != nil {
			return ids.Empty, err
		}
		if !found {
			return ids.Empty, fmt.Errorf("%w: %x:%d", ErrUnknownRef, in.Ref.TxHash, in.Ref.Index)
		}
		if !bytes.Equal(cell.MarshalCell(&live), cell.MarshalCell(&in.Cell)) {
			return ids.Empty, fmt.Errorf("%w: %x:%d", ErrCellMismatch, in.Ref.TxHash, in.Ref.Index)
		}
		inBalance += live.Balance
	}

	outBalance := uint64(0)
	for i := range tx.Outputs {
		outBalance += tx.Outputs[i].Balance
	}
	if outBalance > inBalance {
		return ids.Empty, fmt.Errorf("%w: in %d, out %d", ErrBalanceInflation, inBalance, outBalance)
	}

	if err := c.runValidators(tx); err != nil {
		return ids.Empty, err
	}

	txHash := tx.Hash()
	batch := c.db.NewBatch()
	for i := range tx.Inputs {
		if err := batch.Delete(tx.Inputs[i].Ref.Bytes()); err != nil {
			return ids.Empty, err
		}
	}
	for i := range tx.Outputs {
		ref := cell.Ref{TxHash: txHash, Index: uint32(i)}
		if err := batch.Put(ref.Bytes(), cell.MarshalCell(&tx.Outputs[i])); err != nil {
			return ids.Empty, err
		}
	}
	if err := batch.Write(); err != nil {
		return ids.Empty, err
	}

	c.log.Info("applied transaction",
		zap.Stringer("txHash", txHash),
		zap.Int("inputs", len(tx.Inputs)),
		zap.Int("outputs", len(tx.Outputs)),
	)
	return txHash, nil
}

// runValidators collects every distinct asset predicate the transaction
// touches and runs the validator its code hash names, each over the full
// transaction snapshot.
func (c *Chain) runValidators(tx *cell.Transaction) error {
	seen := make(map[ids.ID]struct{})
	run := func(p *cell.Predicate) error {
		if p == nil {
			return nil
		}
		h := p.Hash()
		if _, done := seen[h]; done {
			return nil
		}
		seen[h] = struct{}{}

		var err error
		switch p.CodeHash {
		case c.params.MarketCodeHash:
			err = validator.ValidateMarket(tx, *p)
		case c.params.TokenCodeHash:
			err = validator.ValidateToken(tx, *p)
		default:
			err = fmt.Errorf("%w: %s", ErrUnknownAssetCode, p.CodeHash)
		}
		if err != nil {
			c.log.Debug("validator rejected transaction",
				zap.Stringer("assetCode", p.CodeHash),
				zap.Int8("code", validator.Code(err)),
				zap.Error(err),
			)
		}
		return err
	}

	for i := range tx.Inputs {
		if err := run(tx.Inputs[i].Cell.Asset); err != nil {
			return err
		}
	}
	for i := range tx.Outputs {
		if err := run(tx.Outputs[i].Asset); err != nil {
			return err
		}
	}
	return nil
}

// LiveCells returns every live cell, in undefined order.
func (c *Chain) LiveCells() ([]txbuilder.Spendable, error) {
	it := c.db.NewIterator()
	defer it.Release()

	var out []txbuilder.Spendable
	for it.Next() {
		ref, err := cell.ParseRef(it.Key())
		if err != nil {
			return nil, err
		}
		cl, err := cell.UnmarshalCell(it.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, txbuilder.Spendable{Ref: ref, Cell: cl})
	}
	return out, it.Error()
}

// CellsByOwner returns the live cells whose owner predicate hashes to
// ownerHash, split into plain holdings and asset-bearing cells.
func (c *Chain) CellsByOwner(ownerHash ids.ID) (plain, assets []txbuilder.Spendable, err error) {
	all, err := c.LiveCells()
	if err != nil {
		return nil, nil, err
	}
	for _, s := range all {
		if s.Cell.Owner.Hash() != ownerHash {
			continue
		}
		if s.Cell.Asset == nil {
			plain = append(plain, s)
		} else {
			assets = append(assets, s)
		}
	}
	return plain, assets, nil
}

// CellsByAsset returns the live cells whose asset predicate hashes to
// assetHash.
func (c *Chain) CellsByAsset(assetHash ids.ID) ([]txbuilder.Spendable, error) {
	all, err := c.LiveCells()
	if err != nil {
		return nil, err
	}
	var out []txbuilder.Spendable
	for _, s := range all {
		if h, ok := s.Cell.AssetHash(); ok && h == assetHash {
			out = append(out, s)
		}
	}
	return out, nil
}
