// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package cell

import (
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

// Serializable is implemented by values that can be written to a cell.
type Serializable interface {
	StoreTo(*Builder) error
}

// Loader is implemented by values that can be read from a slice. The
// receiver is not modified; LoadFrom returns the loaded value.
type Loader[T any] interface {
	LoadFrom(*Slice) (T, error)
}

// Builder accumulates bits and references and freezes them into a [Cell].
type Builder struct {
	typ  Type
	bits BitString
	refs []*Cell
}

// NewBuilder returns a builder for an ordinary cell.
func NewBuilder() *Builder {
	return &Builder{typ: Ordinary}
}

// FromCell returns a builder holding the data and references of c. The
// references are not virtualized.
func FromCell(c *Cell) *Builder {
	b := &Builder{typ: c.typ, bits: c.bits}
	b.refs = append(b.refs, c.refs...)
	return b
}

// SetType sets the type of the cell being built.
func (b *Builder) SetType(t Type) { b.typ = t }

// Type returns the type of the cell being built.
func (b *Builder) Type() Type { return b.typ }

// BitLen returns the number of bits stored.
func (b *Builder) BitLen() int { return b.bits.Len() }

// RefCount returns the number of references stored.
func (b *Builder) RefCount() int { return len(b.refs) }

// BitsLeft returns the number of bits that can still be stored.
func (b *Builder) BitsLeft() int { return MaxBits - b.bits.Len() }

// RefsLeft returns the number of references that can still be stored.
func (b *Builder) RefsLeft() int { return MaxRefs - len(b.refs) }

// Bits returns the stored bits.
func (b *Builder) Bits() BitString { return b.bits }

// Copy returns a copy of the builder.
func (b *Builder) Copy() *Builder {
	c := *b
	c.refs = append([]*Cell(nil), b.refs...)
	return &c
}

func (b *Builder) checkBits(n int) error {
	if b.bits.Len()+n > MaxBits {
		return errors.CellOverflow.WithFormat("cannot store %d bits, %d of %d used", n, b.bits.Len(), MaxBits)
	}
	return nil
}

// StoreBit stores a single bit.
func (b *Builder) StoreBit(v bool) error {
	if err := b.checkBits(1); err != nil {
		return err
	}
	b.bits = b.bits.AppendBit(v)
	return nil
}

// StoreBits stores a bit string.
func (b *Builder) StoreBits(s BitString) error {
	if err := b.checkBits(s.Len()); err != nil {
		return err
	}
	b.bits = b.bits.Append(s)
	return nil
}

// StoreUint stores the n low bits of v.
func (b *Builder) StoreUint(v uint64, n int) error {
	if n < 0 || n > 64 {
		return errors.InvalidArgument.WithFormat("cannot store a %d-bit integer", n)
	}
	if n < 64 && v>>uint(n) != 0 {
		return errors.InvalidArgument.WithFormat("%d does not fit in %d bits", v, n)
	}
	return b.StoreBits(BitStringFromUint(v, n))
}

// StoreInt stores v as an n-bit two's complement integer.
func (b *Builder) StoreInt(v int64, n int) error {
	if n <= 0 || n > 64 {
		return errors.InvalidArgument.WithFormat("cannot store a %d-bit integer", n)
	}
	if n < 64 {
		lim := int64(1) << uint(n-1)
		if v < -lim || v >= lim {
			return errors.InvalidArgument.WithFormat("%d does not fit in %d bits", v, n)
		}
	}
	return b.StoreBits(BitStringFromUint(uint64(v), n))
}

// StoreUint8 stores an 8-bit integer.
func (b *Builder) StoreUint8(v uint8) error { return b.StoreUint(uint64(v), 8) }

// StoreUint16 stores a 16-bit integer.
func (b *Builder) StoreUint16(v uint16) error { return b.StoreUint(uint64(v), 16) }

// StoreUint32 stores a 32-bit integer.
func (b *Builder) StoreUint32(v uint32) error { return b.StoreUint(uint64(v), 32) }

// StoreUint64 stores a 64-bit integer.
func (b *Builder) StoreUint64(v uint64) error { return b.StoreUint(v, 64) }

// StoreBytes stores whole bytes.
func (b *Builder) StoreBytes(v []byte) error { return b.StoreBits(BitStringFromBytes(v)) }

// StoreHash stores a 256-bit hash.
func (b *Builder) StoreHash(h Hash) error { return b.StoreBytes(h[:]) }

// StoreRef stores a reference.
func (b *Builder) StoreRef(c *Cell) error {
	if len(b.refs) >= MaxRefs {
		return errors.CellOverflow.WithFormat("cannot store more than %d references", MaxRefs)
	}
	b.refs = append(b.refs, c)
	return nil
}

// StoreMaybeRef stores a bit and, if c is not nil, a reference.
func (b *Builder) StoreMaybeRef(c *Cell) error {
	if c == nil {
		return b.StoreBit(false)
	}
	if len(b.refs) >= MaxRefs {
		return errors.CellOverflow.WithFormat("cannot store more than %d references", MaxRefs)
	}
	err := b.StoreBit(true)
	if err != nil {
		return err
	}
	return b.StoreRef(c)
}

// StoreSlice stores the remaining bits and references of s.
func (b *Builder) StoreSlice(s *Slice) error {
	if len(b.refs)+s.RefsLeft() > MaxRefs {
		return errors.CellOverflow.WithFormat("cannot store more than %d references", MaxRefs)
	}
	err := b.StoreBits(s.RemainingBits())
	if err != nil {
		return err
	}
	for i := s.ref; i < s.refEnd; i++ {
		b.refs = append(b.refs, s.cell.wrap(s.cell.refs[i]))
	}
	return nil
}

// StoreBuilder stores the bits and references of o.
func (b *Builder) StoreBuilder(o *Builder) error {
	if len(b.refs)+len(o.refs) > MaxRefs {
		return errors.CellOverflow.WithFormat("cannot store more than %d references", MaxRefs)
	}
	err := b.StoreBits(o.bits)
	if err != nil {
		return err
	}
	b.refs = append(b.refs, o.refs...)
	return nil
}

// Store stores a serializable value.
func (b *Builder) Store(v Serializable) error {
	return v.StoreTo(b)
}

// StoreAsRef serializes v into a new cell and stores a reference to it.
func (b *Builder) StoreAsRef(v Serializable) error {
	c, err := ToCell(v)
	if err != nil {
		return err
	}
	return b.StoreRef(c)
}

// ReplaceRef replaces the i'th reference.
func (b *Builder) ReplaceRef(i int, c *Cell) error {
	if i < 0 || i >= len(b.refs) {
		return errors.InvalidArgument.WithFormat("reference %d of %d", i, len(b.refs))
	}
	b.refs[i] = c
	return nil
}

// Finalize freezes the builder into a cell. The builder may be reused
// afterwards.
func (b *Builder) Finalize() (*Cell, error) {
	if b.typ != Ordinary {
		data := b.bits
		if data.Len() < 8 {
			return nil, errors.InvalidData.WithFormat("%s cell has no type byte", b.typ)
		}
		if Type(data.Slice(0, 8).Uint()) != b.typ {
			return nil, errors.InvalidData.WithFormat("%s cell has type byte %d", b.typ, data.Slice(0, 8).Uint())
		}
	}

	c := &core{typ: b.typ, bits: b.bits}
	c.refs = make([]*Cell, len(b.refs))
	for i, r := range b.refs {
		// Stored references do not carry usage tracking
		if r.usage != nil {
			r = &Cell{r.core, r.offset, nil}
		}
		c.refs[i] = r
	}

	err := c.finalize()
	if err != nil {
		return nil, err
	}
	return &Cell{core: c}, nil
}

// ToCell serializes v into a new cell.
func ToCell(v Serializable) (*Cell, error) {
	b := NewBuilder()
	err := v.StoreTo(b)
	if err != nil {
		return nil, err
	}
	return b.Finalize()
}
