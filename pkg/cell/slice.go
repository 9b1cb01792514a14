// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package cell

import (
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

// Slice is a read cursor over the bits and references of a cell.
type Slice struct {
	cell   *Cell
	bits   BitString
	pos    int
	end    int
	ref    int
	refEnd int
}

// Cell returns the cell the slice reads from.
func (s *Slice) Cell() *Cell { return s.cell }

// BitsLeft returns the number of unread bits.
func (s *Slice) BitsLeft() int { return s.end - s.pos }

// RefsLeft returns the number of unread references.
func (s *Slice) RefsLeft() int { return s.refEnd - s.ref }

// IsEmpty returns true if no bits and no references remain.
func (s *Slice) IsEmpty() bool { return s.BitsLeft() == 0 && s.RefsLeft() == 0 }

// Copy returns an independent cursor at the same position.
func (s *Slice) Copy() *Slice {
	c := *s
	return &c
}

// RemainingBits returns the unread bits without consuming them.
func (s *Slice) RemainingBits() BitString {
	return s.bits.Slice(s.pos, s.end)
}

// ToCell returns a cell holding the unread bits and references.
func (s *Slice) ToCell() (*Cell, error) {
	if s.pos == 0 && s.end == s.bits.Len() && s.ref == 0 && s.refEnd == len(s.cell.refs) {
		return s.cell, nil
	}
	b := NewBuilder()
	err := b.StoreSlice(s)
	if err != nil {
		return nil, err
	}
	return b.Finalize()
}

func (s *Slice) checkBits(n int) error {
	if n < 0 || s.pos+n > s.end {
		return errors.CellUnderflow.WithFormat("cannot load %d bits, %d left", n, s.BitsLeft())
	}
	return nil
}

// PreloadBits returns the next n bits without consuming them.
func (s *Slice) PreloadBits(n int) (BitString, error) {
	if err := s.checkBits(n); err != nil {
		return BitString{}, err
	}
	return s.bits.Slice(s.pos, s.pos+n), nil
}

// LoadBits consumes and returns the next n bits.
func (s *Slice) LoadBits(n int) (BitString, error) {
	b, err := s.PreloadBits(n)
	if err != nil {
		return BitString{}, err
	}
	s.pos += n
	return b, nil
}

// Skip consumes n bits.
func (s *Slice) Skip(n int) error {
	if err := s.checkBits(n); err != nil {
		return err
	}
	s.pos += n
	return nil
}

// SkipRefs consumes n references.
func (s *Slice) SkipRefs(n int) error {
	if n < 0 || s.ref+n > s.refEnd {
		return errors.CellUnderflow.WithFormat("cannot skip %d references, %d left", n, s.RefsLeft())
	}
	s.ref += n
	return nil
}

// PreloadBit returns the next bit without consuming it.
func (s *Slice) PreloadBit() (bool, error) {
	if err := s.checkBits(1); err != nil {
		return false, err
	}
	return s.bits.Bit(s.pos), nil
}

// LoadBit consumes and returns the next bit.
func (s *Slice) LoadBit() (bool, error) {
	v, err := s.PreloadBit()
	if err != nil {
		return false, err
	}
	s.pos++
	return v, nil
}

// PreloadUint returns the next n bits as an unsigned integer without
// consuming them.
func (s *Slice) PreloadUint(n int) (uint64, error) {
	if n > 64 {
		return 0, errors.InvalidArgument.WithFormat("cannot load a %d-bit integer", n)
	}
	b, err := s.PreloadBits(n)
	if err != nil {
		return 0, err
	}
	return b.Uint(), nil
}

// LoadUint consumes n bits and returns them as an unsigned integer.
func (s *Slice) LoadUint(n int) (uint64, error) {
	v, err := s.PreloadUint(n)
	if err != nil {
		return 0, err
	}
	s.pos += n
	return v, nil
}

// LoadInt consumes n bits and returns them as a two's complement integer.
func (s *Slice) LoadInt(n int) (int64, error) {
	if n == 0 {
		return 0, nil
	}
	v, err := s.LoadUint(n)
	if err != nil {
		return 0, err
	}
	if n < 64 && v&(1<<uint(n-1)) != 0 {
		v |= ^uint64(0) << uint(n)
	}
	return int64(v), nil
}

// LoadUint8 loads an 8-bit integer.
func (s *Slice) LoadUint8() (uint8, error) {
	v, err := s.LoadUint(8)
	return uint8(v), err
}

// LoadUint16 loads a 16-bit integer.
func (s *Slice) LoadUint16() (uint16, error) {
	v, err := s.LoadUint(16)
	return uint16(v), err
}

// LoadUint32 loads a 32-bit integer.
func (s *Slice) LoadUint32() (uint32, error) {
	v, err := s.LoadUint(32)
	return uint32(v), err
}

// LoadUint64 loads a 64-bit integer.
func (s *Slice) LoadUint64() (uint64, error) {
	return s.LoadUint(64)
}

// LoadBytes consumes n whole bytes.
func (s *Slice) LoadBytes(n int) ([]byte, error) {
	b, err := s.LoadBits(n * 8)
	if err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// LoadHash consumes a 256-bit hash.
func (s *Slice) LoadHash() (Hash, error) {
	var h Hash
	b, err := s.LoadBytes(32)
	if err != nil {
		return h, err
	}
	copy(h[:], b)
	return h, nil
}

// LoadUnary consumes a unary-encoded number, a run of 1 bits terminated by
// a 0 bit.
func (s *Slice) LoadUnary() (int, error) {
	n := 0
	for {
		v, err := s.LoadBit()
		if err != nil {
			return 0, err
		}
		if !v {
			return n, nil
		}
		n++
	}
}

// PreloadRef returns the next reference without consuming it.
func (s *Slice) PreloadRef() (*Cell, error) {
	if s.ref >= s.refEnd {
		return nil, errors.CellUnderflow.With("no references left")
	}
	return s.cell.Ref(s.ref)
}

// LoadRef consumes and returns the next reference.
func (s *Slice) LoadRef() (*Cell, error) {
	c, err := s.PreloadRef()
	if err != nil {
		return nil, err
	}
	s.ref++
	return c, nil
}

// LoadMaybeRef consumes a bit and, if it is set, a reference.
func (s *Slice) LoadMaybeRef() (*Cell, error) {
	v, err := s.LoadBit()
	if err != nil {
		return nil, err
	}
	if !v {
		return nil, nil
	}
	return s.LoadRef()
}

// LoadRefSlice consumes a reference and begins parsing it.
func (s *Slice) LoadRefSlice() (*Slice, error) {
	c, err := s.LoadRef()
	if err != nil {
		return nil, err
	}
	return c.BeginParse()
}

// CheckTag consumes n bits and verifies they equal tag.
func (s *Slice) CheckTag(tag uint64, n int, name string) error {
	v, err := s.LoadUint(n)
	if err != nil {
		return errors.UnknownError.WithFormat("load %s tag: %w", name, err)
	}
	if v != tag {
		return errors.InvalidConstructorTag.WithFormat("%s: want tag %0*b, got %0*b", name, n, tag, n, v)
	}
	return nil
}

// EnsureEmpty fails if any bits or references remain.
func (s *Slice) EnsureEmpty() error {
	if !s.IsEmpty() {
		return errors.InvalidData.WithFormat("%d bits and %d references left over", s.BitsLeft(), s.RefsLeft())
	}
	return nil
}

// Load loads a value using the given loader.
func Load[T any](s *Slice, l Loader[T]) (T, error) {
	return l.LoadFrom(s)
}

// LoadCell parses a whole cell using the given loader and verifies nothing is
// left over.
func LoadCell[T any](c *Cell, l Loader[T]) (T, error) {
	var z T
	s, err := c.BeginParse()
	if err != nil {
		return z, err
	}
	v, err := l.LoadFrom(s)
	if err != nil {
		return z, err
	}
	err = s.EnsureEmpty()
	if err != nil {
		return z, err
	}
	return v, nil
}

// CellUntil returns a cell holding the bits and references consumed between
// s and t, a later position of the same slice.
func (s *Slice) CellUntil(t *Slice) (*Cell, error) {
	if t.cell != s.cell || t.pos < s.pos || t.ref < s.ref {
		return nil, errors.InvalidArgument.With("slice is not a later position of the same cell")
	}
	b := NewBuilder()
	err := b.StoreBits(s.bits.Slice(s.pos, t.pos))
	if err != nil {
		return nil, err
	}
	for i := s.ref; i < t.ref; i++ {
		r, err := s.cell.Ref(i)
		if err != nil {
			return nil, err
		}
		err = b.StoreRef(r)
		if err != nil {
			return nil, err
		}
	}
	return b.Finalize()
}
