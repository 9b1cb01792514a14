// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package cell

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"

	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

// MaxBits is the maximum number of data bits a cell can hold.
const MaxBits = 1023

// MaxRefs is the maximum number of references a cell can hold.
const MaxRefs = 4

// MaxDepth is the maximum depth of a cell tree.
const MaxDepth = 1024

// Cell is an immutable, content-addressed tree node. Cells are shared freely
// between trees; two cells with the same representation hash are
// interchangeable.
//
// A Cell value may be a virtual view of another cell, see [Cell.Virtualize],
// or may record accesses into a [UsageTree].
type Cell struct {
	*core
	offset int
	usage  *UsageTree
}

// core is the shared, immutable state of a cell.
type core struct {
	typ    Type
	bits   BitString
	refs   []*Cell
	mask   LevelMask
	hashes []Hash
	depths []uint16
}

var emptyCell = func() *Cell {
	c, err := NewBuilder().Finalize()
	if err != nil {
		panic(err)
	}
	return c
}()

// Empty returns the ordinary cell with no bits and no references.
func Empty() *Cell { return emptyCell }

// Type returns the cell type.
func (c *Cell) Type() Type { return c.typ }

// IsExotic returns true for any cell that is not ordinary.
func (c *Cell) IsExotic() bool { return c.typ != Ordinary }

// IsMerkle returns true for Merkle proof and Merkle update cells.
func (c *Cell) IsMerkle() bool { return c.typ.IsMerkle() }

// IsPruned returns true for pruned branch cells.
func (c *Cell) IsPruned() bool { return c.typ == PrunedBranch }

// BitLen returns the number of data bits.
func (c *Cell) BitLen() int { return c.bits.Len() }

// Bits returns the data bits.
func (c *Cell) Bits() BitString { return c.bits }

// RefCount returns the number of references.
func (c *Cell) RefCount() int { return len(c.refs) }

// Ref returns the i'th reference. The reference inherits the receiver's
// virtualization and usage tracking.
func (c *Cell) Ref(i int) (*Cell, error) {
	if i < 0 || i >= len(c.refs) {
		return nil, errors.CellUnderflow.WithFormat("reference %d of %d", i, len(c.refs))
	}
	return c.wrap(c.refs[i]), nil
}

// Refs returns all references, wrapped as by [Cell.Ref].
func (c *Cell) Refs() []*Cell {
	r := make([]*Cell, len(c.refs))
	for i, ref := range c.refs {
		r[i] = c.wrap(ref)
	}
	return r
}

func (c *Cell) wrap(ref *Cell) *Cell {
	if c.offset == 0 && c.usage == nil {
		return ref
	}
	return &Cell{ref.core, c.offset, c.usage}
}

// LevelMask returns the level mask, adjusted for virtualization.
func (c *Cell) LevelMask() LevelMask { return c.mask.Virtualize(c.offset) }

// Level returns the level of the cell.
func (c *Cell) Level() int { return c.LevelMask().Level() }

// Hash returns the hash of the cell at the given level.
func (c *Cell) Hash(level int) Hash {
	return c.hashes[c.hashIndex(level)]
}

// Depth returns the depth of the cell at the given level.
func (c *Cell) Depth(level int) uint16 {
	return c.depths[c.hashIndex(level)]
}

func (c *Cell) hashIndex(level int) int {
	if level > MaxLevel {
		level = MaxLevel
	}
	i := c.LevelMask().Apply(level).HashIndex()
	if i >= len(c.hashes) {
		i = len(c.hashes) - 1
	}
	return i
}

// ReprHash returns the representation hash, the hash at the maximum level.
func (c *Cell) ReprHash() Hash { return c.Hash(MaxLevel) }

// ReprDepth returns the depth at the maximum level.
func (c *Cell) ReprDepth() uint16 { return c.Depth(MaxLevel) }

// Hashes returns the hash of the cell at each significant level.
func (c *Cell) Hashes() []Hash {
	m := c.LevelMask()
	var h []Hash
	for l := 0; l <= m.Level(); l++ {
		if m.IsSignificant(l) {
			h = append(h, c.Hash(l))
		}
	}
	return h
}

// Depths returns the depth of the cell at each significant level.
func (c *Cell) Depths() []uint16 {
	m := c.LevelMask()
	var d []uint16
	for l := 0; l <= m.Level(); l++ {
		if m.IsSignificant(l) {
			d = append(d, c.Depth(l))
		}
	}
	return d
}

// Virtualize returns a view of the cell with its level lowered by offset.
// Virtualizing the root of a Merkle proof by one makes it look like the tree
// it was created from.
func (c *Cell) Virtualize(offset int) *Cell {
	if offset == 0 {
		return c
	}
	return &Cell{c.core, c.offset + offset, c.usage}
}

// BeginParse returns a slice for reading the cell. BeginParse fails for
// pruned branches since their data is not the data of the cell they stand in
// for.
func (c *Cell) BeginParse() (*Slice, error) {
	if c.typ == PrunedBranch {
		return nil, errors.PrunedCellAccess.WithFormat("attempting to read data from pruned branch cell %v", c.Hash(0))
	}
	if c.usage != nil {
		c.usage.visit(c.ReprHash())
	}
	return &Slice{cell: c, bits: c.bits, end: c.bits.Len(), refEnd: len(c.refs)}, nil
}

// BeginParseRaw returns a slice over the cell's raw data, including the data
// of exotic cells.
func (c *Cell) BeginParseRaw() *Slice {
	return &Slice{cell: c, bits: c.bits, end: c.bits.Len(), refEnd: len(c.refs)}
}

// Equal returns true if both cells have the same representation hash.
func (c *Cell) Equal(d *Cell) bool {
	return c.ReprHash() == d.ReprHash()
}

func (c *Cell) String() string {
	var sb strings.Builder
	c.dump(&sb, 0, -1)
	return sb.String()
}

// Dump formats the tree, indenting each level by two spaces. Levels beyond
// maxDepth are elided when maxDepth is not negative.
func (c *Cell) Dump(maxDepth int) string {
	var sb strings.Builder
	c.dump(&sb, 0, maxDepth)
	return sb.String()
}

func (c *Cell) dump(sb *strings.Builder, indent, maxDepth int) {
	sb.WriteString(strings.Repeat("  ", indent))
	if c.typ != Ordinary {
		fmt.Fprintf(sb, "%s ", c.typ)
	}
	fmt.Fprintf(sb, "%d[%s]", c.bits.Len(), c.bits)
	if c.mask != 0 {
		fmt.Fprintf(sb, " level=%s", c.LevelMask())
	}
	sb.WriteString("\n")
	if maxDepth >= 0 && indent >= maxDepth {
		if len(c.refs) > 0 {
			sb.WriteString(strings.Repeat("  ", indent+1))
			fmt.Fprintf(sb, "... %d refs\n", len(c.refs))
		}
		return
	}
	for _, r := range c.refs {
		c.wrap(r).dump(sb, indent+1, maxDepth)
	}
}

// finalize derives the level mask and computes the hashes and depths of the
// core.
func (c *core) finalize() error {
	var err error
	c.mask, err = c.deriveMask()
	if err != nil {
		return err
	}

	n := c.mask.HashCount()
	c.hashes = make([]Hash, n)
	c.depths = make([]uint16, n)

	hashIdx := 0
	if c.typ == PrunedBranch {
		// The lower hashes and depths are stored in the data
		hashIdx = n - 1
		data := c.bits.Bytes()
		for i := 0; i < hashIdx; i++ {
			copy(c.hashes[i][:], data[2+i*32:])
			c.depths[i] = binary.BigEndian.Uint16(data[2+hashIdx*32+i*2:])
		}
	}

	first := hashIdx
	for level := 0; level <= c.mask.Level(); level++ {
		if !c.mask.IsSignificant(level) {
			continue
		}
		if c.typ == PrunedBranch && level < c.mask.Level() {
			continue
		}

		childLevel := level
		if c.typ.IsMerkle() {
			childLevel++
		}

		h := sha256.New()
		refs := byte(len(c.refs))
		exotic := byte(0)
		if c.typ != Ordinary {
			exotic = 8
		}
		mask := c.mask.Apply(level)
		if c.typ == PrunedBranch {
			mask = c.mask
		}
		d2 := byte(c.bits.Len()/8 + (c.bits.Len()+7)/8)
		h.Write([]byte{refs + exotic + byte(mask)<<5, d2})
		if hashIdx == first {
			h.Write(c.bits.padded())
		} else {
			h.Write(c.hashes[hashIdx-1][:])
		}

		var depth uint16
		for _, r := range c.refs {
			d := r.Depth(childLevel)
			var b [2]byte
			binary.BigEndian.PutUint16(b[:], d)
			h.Write(b[:])
			if d+1 > depth {
				depth = d + 1
			}
		}
		if depth > MaxDepth {
			return errors.CellOverflow.WithFormat("cell depth %d exceeds %d", depth, MaxDepth)
		}
		for _, r := range c.refs {
			rh := r.Hash(childLevel)
			h.Write(rh[:])
		}

		copy(c.hashes[hashIdx][:], h.Sum(nil))
		c.depths[hashIdx] = depth
		hashIdx++
	}
	return nil
}

func (c *core) deriveMask() (LevelMask, error) {
	switch c.typ {
	case Ordinary:
		var m LevelMask
		for _, r := range c.refs {
			m |= r.LevelMask()
		}
		return m, nil

	case PrunedBranch:
		if len(c.refs) != 0 {
			return 0, errors.InvalidData.With("pruned branch cell has references")
		}
		if c.bits.Len() < 16 {
			return 0, errors.InvalidData.With("pruned branch cell is too short")
		}
		data := c.bits.Bytes()
		m := LevelMask(data[1])
		if m == 0 || m > 7 {
			return 0, errors.InvalidData.WithFormat("pruned branch cell has invalid level mask %d", data[1])
		}
		n := m.HashIndex()
		if c.bits.Len() != 16+n*(256+16) {
			return 0, errors.InvalidData.WithFormat("pruned branch cell with mask %s must have %d bits, has %d", m, 16+n*(256+16), c.bits.Len())
		}
		return m, nil

	case LibraryReference:
		if len(c.refs) != 0 || c.bits.Len() != 8+256 {
			return 0, errors.InvalidData.With("invalid library reference cell")
		}
		return 0, nil

	case MerkleProof:
		if len(c.refs) != 1 || c.bits.Len() != 8+256+16 {
			return 0, errors.InvalidData.With("invalid merkle proof cell")
		}
		return c.refs[0].LevelMask().ForMerkle(), nil

	case MerkleUpdate:
		if len(c.refs) != 2 || c.bits.Len() != 8+2*(256+16) {
			return 0, errors.InvalidData.With("invalid merkle update cell")
		}
		return (c.refs[0].LevelMask() | c.refs[1].LevelMask()).ForMerkle(), nil
	}
	return 0, errors.InvalidData.WithFormat("unknown cell type %d", uint8(c.typ))
}

// stored returns the cell without virtualization or usage tracking.
func (c *Cell) stored() *Cell {
	if c.offset == 0 && c.usage == nil {
		return c
	}
	return &Cell{core: c.core}
}

// NewPrunedBranch returns a pruned branch standing in for c inside a tree
// wrapped by merkleDepth Merkle cells.
func NewPrunedBranch(c *Cell, merkleDepth int) (*Cell, error) {
	mask, err := c.LevelMask().AddOneHash(merkleDepth)
	if err != nil {
		return nil, err
	}

	b := NewBuilder()
	b.SetType(PrunedBranch)
	_ = b.StoreUint8(uint8(PrunedBranch))
	_ = b.StoreUint8(uint8(mask))
	for _, h := range c.Hashes() {
		_ = b.StoreHash(h)
	}
	for _, d := range c.Depths() {
		_ = b.StoreUint16(d)
	}
	return b.Finalize()
}
