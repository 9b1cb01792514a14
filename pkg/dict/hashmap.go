// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package dict

import (
	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

// Hashmap is a dictionary with fixed-length bit string keys, serialized as
// HashmapE. The zero value is not usable; use [NewHashmap].
type Hashmap struct {
	t trie[noExtra]
}

// NewHashmap returns an empty dictionary with keys of the given length.
func NewHashmap(bitLen int) Hashmap {
	return Hashmap{trie[noExtra]{bitLen: bitLen}}
}

// HashmapFromRoot returns a dictionary with the given root, which may be nil.
func HashmapFromRoot(bitLen int, root *cell.Cell) Hashmap {
	return Hashmap{trie[noExtra]{bitLen: bitLen, root: root}}
}

// Key returns v as a key of n bits.
func Key(v uint64, n int) cell.BitString { return cell.BitStringFromUint(v, n) }

// SignedKey returns v as a two's complement key of n bits.
func SignedKey(v int64, n int) cell.BitString { return cell.BitStringFromUint(uint64(v), n) }

// HashKey returns a 256-bit key.
func HashKey(h cell.Hash) cell.BitString { return cell.BitStringFromBytes(h[:]) }

func (h Hashmap) BitLen() int       { return h.t.bitLen }
func (h Hashmap) Root() *cell.Cell  { return h.t.root }
func (h Hashmap) IsEmpty() bool     { return h.t.isEmpty() }
func (h Hashmap) Len() (int, error) { return h.t.count() }

// Get returns the value at key, or nil if there is none.
func (h *Hashmap) Get(key cell.BitString) (*cell.Slice, error) {
	return h.t.lookup(key)
}

// GetRef returns the reference stored as the value at key, or nil.
func (h *Hashmap) GetRef(key cell.BitString) (*cell.Cell, error) {
	s, err := h.Get(key)
	if err != nil || s == nil {
		return nil, err
	}
	return s.LoadRef()
}

// Set inserts or replaces the value at key.
func (h *Hashmap) Set(key cell.BitString, value *cell.Builder) error {
	return h.t.set(key, value, noExtra{})
}

// SetRef stores c as a reference value at key.
func (h *Hashmap) SetRef(key cell.BitString, c *cell.Cell) error {
	b := cell.NewBuilder()
	err := b.StoreRef(c)
	if err != nil {
		return err
	}
	return h.Set(key, b)
}

// SetValue serializes v and stores it at key.
func (h *Hashmap) SetValue(key cell.BitString, v cell.Serializable) error {
	b := cell.NewBuilder()
	err := v.StoreTo(b)
	if err != nil {
		return err
	}
	return h.Set(key, b)
}

// Remove removes the value at key and reports whether it was present.
func (h *Hashmap) Remove(key cell.BitString) (bool, error) {
	return h.t.remove(key)
}

// Iterate calls fn for every entry in ascending key order. It returns false
// if fn stopped the iteration.
func (h *Hashmap) Iterate(fn func(key cell.BitString, value *cell.Slice) (bool, error)) (bool, error) {
	return h.t.iterate(fn)
}

// Min returns the entry with the lowest key. With signed set keys are
// ordered as two's complement integers. The value is nil if the dictionary
// is empty.
func (h *Hashmap) Min(signed bool) (cell.BitString, *cell.Slice, error) {
	return h.t.minmax(false, signed)
}

// Max returns the entry with the highest key.
func (h *Hashmap) Max(signed bool) (cell.BitString, *cell.Slice, error) {
	return h.t.minmax(true, signed)
}

// FindLeaf returns the entry nearest to key, the next higher one if next is
// set and the next lower one otherwise. If eq is set key itself qualifies.
func (h *Hashmap) FindLeaf(key cell.BitString, next, eq, signed bool) (cell.BitString, *cell.Slice, error) {
	return h.t.findLeaf(key, next, eq, signed)
}

// Split divides the dictionary, whose keys must all carry prefix, into the
// entries continuing with a 0 bit and those continuing with a 1 bit.
func (h *Hashmap) Split(prefix cell.BitString) (left, right Hashmap, err error) {
	l, r, err := h.t.split(prefix)
	return Hashmap{l}, Hashmap{r}, err
}

// Merge adds the entries of other. The keys of both must carry prefix and
// differ in the following bit.
func (h *Hashmap) Merge(other Hashmap, prefix cell.BitString) error {
	return h.t.merge(&other.t, prefix)
}

// SubtreeWithPrefix returns the entries whose keys carry prefix.
func (h *Hashmap) SubtreeWithPrefix(prefix cell.BitString) (Hashmap, error) {
	t, err := h.t.subtree(prefix, false)
	return Hashmap{t}, err
}

// SubtreeWithoutPrefix returns the entries whose keys carry prefix, with the
// prefix removed from their keys.
func (h *Hashmap) SubtreeWithoutPrefix(prefix cell.BitString) (Hashmap, error) {
	t, err := h.t.subtree(prefix, true)
	return Hashmap{t}, err
}

// Filter removes the entries for which fn returns FilterRemove.
func (h *Hashmap) Filter(fn func(key cell.BitString, value *cell.Slice) (FilterAction, error)) error {
	return h.t.filter(fn)
}

// ScanDiff calls fn for every key whose value differs from other, passing
// nil for a missing side.
func (h *Hashmap) ScanDiff(other Hashmap, fn func(key cell.BitString, mine, theirs *cell.Slice) (bool, error)) (bool, error) {
	return h.t.scanDiff(&other.t, fn)
}

// StoreTo writes the dictionary as HashmapE.
func (h Hashmap) StoreTo(b *cell.Builder) error {
	return b.StoreMaybeRef(h.t.root)
}

// LoadHashmapE reads a HashmapE with keys of the given length.
func LoadHashmapE(s *cell.Slice, bitLen int) (Hashmap, error) {
	root, err := s.LoadMaybeRef()
	if err != nil {
		return Hashmap{}, errors.UnknownError.WithFormat("load hashmap: %w", err)
	}
	return HashmapFromRoot(bitLen, root), nil
}
