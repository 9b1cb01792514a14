// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package merkle

import (
	"log/slog"

	"gitlab.com/accumulatenetwork/blockcells/internal/metrics"
	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

// Proof is a partial copy of a cell tree. Cells that were not included are
// replaced by pruned branches carrying their hashes and depths, so the proof
// has the same hash as the tree it was created from.
//
//	!merkle_proof {X:Type} virtual_hash:bits256 depth:uint16 virtual_root:^X = MERKLE_PROOF X;
type Proof struct {
	Hash  cell.Hash
	Depth uint16
	Root  *cell.Cell
}

// Predicate selects cells by representation hash.
type Predicate func(cell.Hash) bool

func none(cell.Hash) bool { return false }

// CreateProof creates a proof of root that includes every cell for which
// include returns true, along with the path leading to it. The root must be
// included.
func CreateProof(root *cell.Cell, include Predicate) (*Proof, error) {
	return CreateProofWithSubtrees(root, include, none)
}

// CreateProofByUsage creates a proof that includes every cell parsed through
// the usage tree.
func CreateProofByUsage(root *cell.Cell, usage *cell.UsageTree) (*Proof, error) {
	return CreateProof(root, usage.Contains)
}

// CreateProofWithSubtrees creates a proof like [CreateProof]. A cell for
// which includeSubtree returns true is included along with everything below
// it.
func CreateProofWithSubtrees(root *cell.Cell, include, includeSubtree Predicate) (*Proof, error) {
	h := root.ReprHash()
	if !include(h) && !includeSubtree(h) {
		return nil, errors.InvalidArgument.With("the tree does not contain any cell to include into the proof")
	}

	b := &proofBuilder{include: include, includeSubtree: includeSubtree, done: map[cell.Hash]*cell.Cell{}}
	proof, err := b.build(root, 0)
	if err != nil {
		return nil, err
	}

	metrics.ProofsCreated.Inc()
	slog.Debug("Created proof", "module", "merkle", "hash", h.String(), "cells", len(b.done), "pruned", b.pruned)
	return &Proof{Hash: h, Depth: root.ReprDepth(), Root: proof}, nil
}

type proofBuilder struct {
	include        Predicate
	includeSubtree Predicate
	done           map[cell.Hash]*cell.Cell
	pruned         int

	// onPrune is called with the hash of each cell that is pruned
	onPrune func(cell.Hash)
}

func (p *proofBuilder) build(c *cell.Cell, merkleDepth int) (*cell.Cell, error) {
	childDepth := merkleDepth
	if c.IsMerkle() {
		childDepth++
	}

	b := cell.FromCell(c)
	for i, child := range c.Refs() {
		h := child.ReprHash()
		var proof *cell.Cell
		var err error
		switch {
		case p.done[h] != nil:
			proof = p.done[h]
		case p.includeSubtree(h):
			proof = child
		case p.include(h):
			proof, err = p.build(child, childDepth)
		default:
			proof, err = cell.NewPrunedBranch(child, childDepth)
			p.pruned++
			if p.onPrune != nil {
				p.onPrune(h)
			}
		}
		if err != nil {
			return nil, err
		}

		err = b.ReplaceRef(i, proof)
		if err != nil {
			return nil, err
		}
	}

	proof, err := b.Finalize()
	if err != nil {
		return nil, errors.UnknownError.Wrap(err)
	}
	p.done[c.ReprHash()] = proof
	return proof, nil
}

// Cell returns the Merkle proof cell.
func (p *Proof) Cell() (*cell.Cell, error) {
	b := cell.NewBuilder()
	b.SetType(cell.MerkleProof)
	err := p.StoreTo(b)
	if err != nil {
		return nil, err
	}
	return b.Finalize()
}

// StoreTo writes the proof. The builder must be empty and of type
// [cell.MerkleProof].
func (p *Proof) StoreTo(b *cell.Builder) error {
	if b.BitLen() != 0 || b.RefCount() != 0 {
		return errors.InvalidArgument.With("a Merkle proof must fill a whole cell")
	}
	err := b.StoreUint8(uint8(cell.MerkleProof))
	if err == nil {
		err = b.StoreHash(p.Hash)
	}
	if err == nil {
		err = b.StoreUint16(p.Depth)
	}
	if err == nil {
		err = b.StoreRef(p.Root)
	}
	return err
}

// LoadProof decodes a Merkle proof cell and verifies the stored hash and
// depth against the proof tree.
func LoadProof(c *cell.Cell) (*Proof, error) {
	p, err := loadProof(c)
	metrics.ProofChecks.WithLabelValues(metrics.Result(err)).Inc()
	return p, err
}

func loadProof(c *cell.Cell) (*Proof, error) {
	if c.Type() != cell.MerkleProof {
		return nil, errors.InvalidData.WithFormat("invalid Merkle proof root's cell type %v", c.Type())
	}

	s := c.BeginParseRaw()
	err := s.Skip(8)
	if err != nil {
		return nil, errors.InvalidData.Wrap(err)
	}

	p := new(Proof)
	p.Hash, err = s.LoadHash()
	if err == nil {
		p.Depth, err = s.LoadUint16()
	}
	if err == nil {
		p.Root, err = s.LoadRef()
	}
	if err != nil {
		return nil, errors.InvalidData.Wrap(err)
	}

	if p.Hash != p.Root.Hash(0) {
		return nil, errors.WrongMerkleProof.WithFormat("stored proof hash %v is not equal to the calculated %v", p.Hash, p.Root.Hash(0))
	}
	if p.Depth != p.Root.Depth(0) {
		return nil, errors.WrongMerkleProof.WithFormat("stored proof depth %d is not equal to the calculated %d", p.Depth, p.Root.Depth(0))
	}
	return p, nil
}

// Virtualize returns the proof tree as it appears to readers of the original
// tree. Pruned cells cannot be parsed.
func (p *Proof) Virtualize() *cell.Cell {
	return p.Root.Virtualize(1)
}
