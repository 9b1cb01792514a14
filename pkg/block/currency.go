// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package block

import (
	"math/bits"

	"github.com/holiman/uint256"
	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
	"gitlab.com/accumulatenetwork/blockcells/pkg/dict"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

//	var_uint$_ {n:#} len:(#< n) value:(uint (len * 8)) = VarUInteger n;
func storeVarUint(b *cell.Builder, v *uint256.Int, n int) error {
	size := v.ByteLen()
	if size >= n {
		return errors.InvalidArgument.WithFormat("%s does not fit in VarUInteger %d", v.Dec(), n)
	}
	err := b.StoreUint(uint64(size), bits.Len(uint(n-1)))
	if err != nil {
		return err
	}
	return b.StoreBytes(v.Bytes())
}

func loadVarUint(s *cell.Slice, n int) (uint256.Int, error) {
	var v uint256.Int
	size, err := s.LoadUint(bits.Len(uint(n - 1)))
	if err != nil {
		return v, err
	}
	if size >= uint64(n) || size > 32 {
		return v, errors.InvalidData.WithFormat("VarUInteger %d has %d bytes", n, size)
	}
	data, err := s.LoadBytes(int(size))
	if err != nil {
		return v, err
	}
	v.SetBytes(data)
	return v, nil
}

// Grams is an amount of nanograms.
//
//	nanograms$_ amount:(VarUInteger 16) = Grams;
type Grams struct {
	v uint256.Int
}

func NewGrams(v uint64) Grams {
	var g Grams
	g.v.SetUint64(v)
	return g
}

func (g Grams) Uint64() uint64 { return g.v.Uint64() }
func (g Grams) IsZero() bool   { return g.v.IsZero() }
func (g Grams) Cmp(o Grams) int { return g.v.Cmp(&o.v) }
func (g Grams) String() string { return g.v.Dec() }

// Add returns g + o. Add fails if the sum does not fit in 120 bits.
func (g Grams) Add(o Grams) (Grams, error) {
	var r Grams
	r.v.Add(&g.v, &o.v)
	if r.v.BitLen() > 120 {
		return Grams{}, errors.OutOfRange.WithFormat("%s + %s overflows", g, o)
	}
	return r, nil
}

func (g Grams) StoreTo(b *cell.Builder) error { return storeVarUint(b, &g.v, 16) }

func (Grams) LoadFrom(s *cell.Slice) (Grams, error) {
	v, err := loadVarUint(s, 16)
	return Grams{v}, err
}

// VarUInteger32 is the amount of an extra currency.
type VarUInteger32 struct {
	v uint256.Int
}

func NewVarUInteger32(v uint64) VarUInteger32 {
	var x VarUInteger32
	x.v.SetUint64(v)
	return x
}

func (x VarUInteger32) Uint64() uint64 { return x.v.Uint64() }
func (x VarUInteger32) String() string { return x.v.Dec() }

func (x VarUInteger32) Add(o VarUInteger32) (VarUInteger32, error) {
	var r VarUInteger32
	_, overflow := r.v.AddOverflow(&x.v, &o.v)
	if overflow || r.v.ByteLen() >= 32 {
		return VarUInteger32{}, errors.OutOfRange.WithFormat("%s + %s overflows", x, o)
	}
	return r, nil
}

func (x VarUInteger32) StoreTo(b *cell.Builder) error { return storeVarUint(b, &x.v, 32) }

func (VarUInteger32) LoadFrom(s *cell.Slice) (VarUInteger32, error) {
	v, err := loadVarUint(s, 32)
	return VarUInteger32{v}, err
}

// ExtraCurrencyCollection maps currency IDs to amounts.
//
//	extra_currencies$_ dict:(HashmapE 32 (VarUInteger 32)) = ExtraCurrencyCollection;
type ExtraCurrencyCollection struct {
	root *cell.Cell
}

func (e ExtraCurrencyCollection) hashmap() dict.Hashmap {
	return dict.HashmapFromRoot(32, e.root)
}

// IsEmpty returns true if the collection has no currencies.
func (e ExtraCurrencyCollection) IsEmpty() bool { return e.root == nil }

// Get returns the amount of the given currency.
func (e ExtraCurrencyCollection) Get(id uint32) (VarUInteger32, bool, error) {
	h := e.hashmap()
	s, err := h.Get(dict.Key(uint64(id), 32))
	if err != nil || s == nil {
		return VarUInteger32{}, false, err
	}
	v, err := cell.Load[VarUInteger32](s, VarUInteger32{})
	return v, err == nil, err
}

// Set returns a copy of the collection with the amount of currency id set
// to v.
func (e ExtraCurrencyCollection) Set(id uint32, v VarUInteger32) (ExtraCurrencyCollection, error) {
	h := e.hashmap()
	err := h.SetValue(dict.Key(uint64(id), 32), v)
	if err != nil {
		return ExtraCurrencyCollection{}, err
	}
	return ExtraCurrencyCollection{h.Root()}, nil
}

// Iterate calls fn for each currency in ascending ID order.
func (e ExtraCurrencyCollection) Iterate(fn func(id uint32, v VarUInteger32) (bool, error)) (bool, error) {
	h := e.hashmap()
	return h.Iterate(func(key cell.BitString, s *cell.Slice) (bool, error) {
		v, err := cell.Load[VarUInteger32](s, VarUInteger32{})
		if err != nil {
			return false, err
		}
		return fn(uint32(key.Uint()), v)
	})
}

// Add returns the per-currency sum of e and o.
func (e ExtraCurrencyCollection) Add(o ExtraCurrencyCollection) (ExtraCurrencyCollection, error) {
	r := e
	_, err := o.Iterate(func(id uint32, v VarUInteger32) (bool, error) {
		cur, _, err := r.Get(id)
		if err != nil {
			return false, err
		}
		sum, err := cur.Add(v)
		if err != nil {
			return false, err
		}
		r, err = r.Set(id, sum)
		return err == nil, err
	})
	if err != nil {
		return ExtraCurrencyCollection{}, err
	}
	return r, nil
}

func (e ExtraCurrencyCollection) StoreTo(b *cell.Builder) error {
	return e.hashmap().StoreTo(b)
}

func (ExtraCurrencyCollection) LoadFrom(s *cell.Slice) (ExtraCurrencyCollection, error) {
	h, err := dict.LoadHashmapE(s, 32)
	if err != nil {
		return ExtraCurrencyCollection{}, err
	}
	return ExtraCurrencyCollection{h.Root()}, nil
}

// CurrencyCollection is an amount of grams plus extra currencies. Its zero
// value is the empty collection.
//
//	currencies$_ grams:Grams other:ExtraCurrencyCollection = CurrencyCollection;
type CurrencyCollection struct {
	Grams Grams
	Other ExtraCurrencyCollection
}

func NewCurrencyCollection(grams uint64) CurrencyCollection {
	return CurrencyCollection{Grams: NewGrams(grams)}
}

// Calc adds two collections.
func (c CurrencyCollection) Calc(o CurrencyCollection) (CurrencyCollection, error) {
	var r CurrencyCollection
	var err error
	r.Grams, err = c.Grams.Add(o.Grams)
	if err != nil {
		return r, err
	}
	r.Other, err = c.Other.Add(o.Other)
	return r, err
}

func (c CurrencyCollection) StoreTo(b *cell.Builder) error {
	err := c.Grams.StoreTo(b)
	if err != nil {
		return err
	}
	return c.Other.StoreTo(b)
}

func (CurrencyCollection) LoadFrom(s *cell.Slice) (CurrencyCollection, error) {
	var c CurrencyCollection
	var err error
	c.Grams, err = c.Grams.LoadFrom(s)
	if err != nil {
		return c, err
	}
	c.Other, err = c.Other.LoadFrom(s)
	return c, err
}
