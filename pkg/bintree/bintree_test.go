// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package bintree

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

type val uint16

func (v val) StoreTo(b *cell.Builder) error { return b.StoreUint16(uint16(v)) }

func (val) LoadFrom(s *cell.Slice) (val, error) {
	v, err := s.LoadUint16()
	return val(v), err
}

type sum uint32

func (s sum) StoreTo(b *cell.Builder) error { return b.StoreUint32(uint32(s)) }

func (sum) LoadFrom(s *cell.Slice) (sum, error) {
	v, err := s.LoadUint32()
	return sum(v), err
}

func (s sum) Calc(o sum) (sum, error) { return s + o, nil }

func key(t testing.TB, s string) cell.BitString {
	t.Helper()
	return must(cell.ParseBinary(s))
}

// threeLeaves builds fork(A, fork(B, C)).
func threeLeaves(t testing.TB) BinTree[val] {
	t.Helper()
	b := must(New(val('A')))
	require.True(t, must(b.Split(key(t, ""), val('B'))))
	require.True(t, must(b.Split(key(t, "1"), val('C'))))
	return b
}

func TestGet(t *testing.T) {
	b := threeLeaves(t)

	cases := []struct {
		Key   string
		Value val
		Found bool
	}{
		{"0", 'A', true},
		{"10", 'B', true},
		{"11", 'C', true},
		{"", 0, false},
		{"1", 0, false},
		{"100", 0, false},
		{"01", 0, false},
	}
	for _, c := range cases {
		t.Run(c.Key, func(t *testing.T) {
			v, ok, err := b.Get(key(t, c.Key))
			require.NoError(t, err)
			require.Equal(t, c.Found, ok)
			require.Equal(t, c.Value, v)
		})
	}
}

func TestFind(t *testing.T) {
	b := threeLeaves(t)

	k, v, ok, err := b.Find(key(t, "1011"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "10", k.Binary())
	require.Equal(t, val('B'), v)

	_, _, ok, err = b.Find(key(t, "1"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSplitAtFork(t *testing.T) {
	b := threeLeaves(t)
	before := b.Root().ReprHash()

	ok, err := b.Split(key(t, "1"), val('D'))
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, before, b.Root().ReprHash())
}

func TestMergeThenSplit(t *testing.T) {
	b := threeLeaves(t)
	before := b.Root().ReprHash()

	require.True(t, must(b.Merge(key(t, "1"))))
	v, ok, err := b.Get(key(t, "1"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, val('B'), v)

	require.True(t, must(b.Split(key(t, "1"), val('C'))))
	require.Equal(t, before, b.Root().ReprHash())
}

func TestMergeDeepestFork(t *testing.T) {
	b := threeLeaves(t)

	// The root's children are not both leaves
	ok, err := b.Merge(key(t, ""))
	require.NoError(t, err)
	require.False(t, ok)

	// A key running past the fork still finds it
	require.True(t, must(b.Merge(key(t, "11"))))
	require.True(t, must(b.Merge(key(t, ""))))
	v, ok, err := b.Get(key(t, ""))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, val('A'), v)

	ok, err = b.Merge(key(t, ""))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSplitWithMergeWith(t *testing.T) {
	b := threeLeaves(t)

	ok, err := b.SplitWith(key(t, "0"), func(x val) (val, val, error) {
		return x + 1, x + 2, nil
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, val('B'), must(b.getValue(key(t, "00"))))
	require.Equal(t, val('C'), must(b.getValue(key(t, "01"))))

	// SplitWith needs the key to end at a leaf
	ok, err = b.SplitWith(key(t, "010"), func(x val) (val, val, error) { return x, x, nil })
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = b.MergeWith(key(t, "0"), func(l, r val) (val, error) { return l + r, nil })
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, val('B'+'C'), must(b.getValue(key(t, "0"))))

	// MergeWith needs the key to end at a fork
	ok, err = b.MergeWith(key(t, "0"), func(l, r val) (val, error) { return l, nil })
	require.NoError(t, err)
	require.False(t, ok)
}

func (b *BinTree[X]) getValue(k cell.BitString) (X, error) {
	v, ok, err := b.Get(k)
	if err == nil && !ok {
		err = errors.NotFound.WithFormat("no leaf at %s", k.Binary())
	}
	return v, err
}

func TestUpdate(t *testing.T) {
	b := threeLeaves(t)
	ok, err := b.Update(key(t, "11"), func(x val) (val, error) { return 'Z', nil })
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, val('Z'), must(b.getValue(key(t, "11"))))

	ok, err = b.Update(key(t, "1"), func(x val) (val, error) { return 'Z', nil })
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIterate(t *testing.T) {
	b := threeLeaves(t)

	var keys []string
	var vals []val
	_, err := b.Iterate(func(k cell.BitString, x val) (bool, error) {
		keys = append(keys, k.Binary())
		vals = append(vals, x)
		return true, nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"0", "10", "11"}, keys)
	require.Equal(t, []val{'A', 'B', 'C'}, vals)

	var n int
	ok, err := b.Iterate(func(cell.BitString, val) (bool, error) {
		n++
		return false, nil
	})
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, n)
}

func TestStoreLoad(t *testing.T) {
	b := threeLeaves(t)

	w := cell.NewBuilder()
	require.NoError(t, w.StoreUint8(0xAB))
	require.NoError(t, w.Store(b))
	require.NoError(t, w.StoreUint8(0xCD))
	c := must(w.Finalize())

	s := must(c.BeginParse())
	require.Equal(t, uint8(0xAB), must(s.LoadUint8()))
	loaded := must(Load[val](s))
	require.Equal(t, uint8(0xCD), must(s.LoadUint8()))
	require.NoError(t, s.EnsureEmpty())
	require.Equal(t, b.Root().ReprHash(), loaded.Root().ReprHash())
	require.Equal(t, val('C'), must(loaded.getValue(key(t, "11"))))
}

func TestMalformedFork(t *testing.T) {
	w := cell.NewBuilder()
	require.NoError(t, w.StoreBit(true))
	require.NoError(t, w.StoreRef(cell.Empty()))
	b := FromRoot[val](must(w.Finalize()))

	_, _, err := b.Get(key(t, "0"))
	require.ErrorIs(t, err, errors.InvalidData)
}

func TestAugExtras(t *testing.T) {
	b := must(NewAug(val('A'), sum(1)))
	require.True(t, must(b.Split(key(t, ""), val('B'), sum(2))))
	require.True(t, must(b.Split(key(t, "1"), val('C'), sum(4))))
	require.Equal(t, sum(7), must(b.RootExtra()))

	require.True(t, must(b.SetExtra(key(t, "10"), sum(10))))
	require.Equal(t, sum(15), must(b.RootExtra()))

	y, ok, err := b.Extra(key(t, "10"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, sum(10), y)

	// Merging drops the right leaf's extra
	require.True(t, must(b.Merge(key(t, "1"))))
	require.Equal(t, sum(11), must(b.RootExtra()))

	ok, err = b.MergeWith(key(t, ""), func(lx val, ly sum, rx val, ry sum) (val, sum, error) {
		return lx, ly + ry, nil
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, sum(11), must(b.RootExtra()))
}

func TestAugMatchesFreshBuild(t *testing.T) {
	a := must(NewAug(val('A'), sum(1)))
	require.True(t, must(a.Split(key(t, ""), val('B'), sum(2))))
	require.True(t, must(a.SetExtra(key(t, "1"), sum(5))))

	b := must(NewAug(val('A'), sum(1)))
	require.True(t, must(b.Split(key(t, ""), val('B'), sum(5))))

	require.Equal(t, a.Root().ReprHash(), b.Root().ReprHash())
}

func TestAugStoreLoad(t *testing.T) {
	b := must(NewAug(val('A'), sum(1)))
	require.True(t, must(b.Split(key(t, ""), val('B'), sum(2))))

	c := must(cell.ToCell(b))
	loaded := must(cell.LoadCell[BinTreeAug[val, sum]](c, augLoader{}))
	require.Equal(t, sum(3), must(loaded.RootExtra()))
	require.Equal(t, b.Root().ReprHash(), loaded.Root().ReprHash())
}

type augLoader struct{}

func (augLoader) LoadFrom(s *cell.Slice) (BinTreeAug[val, sum], error) {
	return LoadAug[val, sum](s)
}

func TestAugLeafLayout(t *testing.T) {
	b := must(NewAug(val(0x4142), sum(7)))

	// Tag, then the value, then the extra
	s := must(b.Root().BeginParse())
	require.False(t, must(s.LoadBit()))
	require.Equal(t, uint16(0x4142), must(s.LoadUint16()))
	require.Equal(t, uint32(7), must(s.LoadUint32()))
	require.NoError(t, s.EnsureEmpty())
}
