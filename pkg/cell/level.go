// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package cell

import (
	"encoding/hex"
	"fmt"
	"math/bits"

	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

// MaxLevel is the highest level a cell can have.
const MaxLevel = 3

// Hash is a cell hash.
type Hash [32]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// ParseHash parses a hex-encoded hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, errors.InvalidArgument.WithFormat("parse hash: %w", err)
	}
	if len(b) != len(h) {
		return h, errors.InvalidArgument.WithFormat("parse hash: want %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Type is the type of a cell.
type Type uint8

const (
	// Ordinary is a regular cell.
	Ordinary Type = 0xFF

	// PrunedBranch stands in for a subtree, carrying only its hashes and
	// depths.
	PrunedBranch Type = 1

	// LibraryReference refers to a library cell by hash.
	LibraryReference Type = 2

	// MerkleProof wraps a partial tree.
	MerkleProof Type = 3

	// MerkleUpdate wraps the old and new partial trees of an update.
	MerkleUpdate Type = 4
)

func (t Type) String() string {
	switch t {
	case Ordinary:
		return "ordinary"
	case PrunedBranch:
		return "pruned branch"
	case LibraryReference:
		return "library reference"
	case MerkleProof:
		return "merkle proof"
	case MerkleUpdate:
		return "merkle update"
	}
	return fmt.Sprintf("Type:%d", uint8(t))
}

// IsMerkle returns true for Merkle proof and Merkle update cells.
func (t Type) IsMerkle() bool { return t == MerkleProof || t == MerkleUpdate }

// LevelMask records which merkle levels a cell has distinct hashes for.
type LevelMask uint8

// Level returns the level of the mask, the position of its highest set bit.
func (m LevelMask) Level() int { return bits.Len8(uint8(m)) }

// HashIndex returns the number of set bits.
func (m LevelMask) HashIndex() int { return bits.OnesCount8(uint8(m)) }

// HashCount returns the number of hashes a cell with this mask has.
func (m LevelMask) HashCount() int { return m.HashIndex() + 1 }

// Apply returns the mask restricted to levels below level.
func (m LevelMask) Apply(level int) LevelMask {
	if level >= 8 {
		return m
	}
	return m & LevelMask((1<<level)-1)
}

// IsSignificant returns true if the cell has a distinct hash at level.
func (m LevelMask) IsSignificant(level int) bool {
	return level == 0 || (m>>(level-1))&1 != 0
}

// ForMerkle returns the mask of a Merkle cell whose children have mask m.
func (m LevelMask) ForMerkle() LevelMask { return m >> 1 }

// Virtualize returns the mask seen through a virtualization offset.
func (m LevelMask) Virtualize(offset int) LevelMask { return m >> offset }

// AddOneHash returns the mask of a pruned branch created at the given merkle
// depth from a cell with mask m.
func (m LevelMask) AddOneHash(depth int) (LevelMask, error) {
	if depth > MaxLevel-1 || depth < 0 {
		return 0, errors.InvalidArgument.WithFormat("merkle depth %d is out of range", depth)
	}
	if m&(1<<depth) != 0 {
		return 0, errors.InvalidOperation.WithFormat("attempt to add hash with depth %d into mask %03b", depth, m)
	}
	return m | 1<<depth, nil
}

func (m LevelMask) String() string { return fmt.Sprintf("%03b", uint8(m)) }
