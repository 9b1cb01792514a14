// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package dict

import (
	"math/rand"
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

func u32(t testing.TB, v uint32) *cell.Builder {
	t.Helper()
	b := cell.NewBuilder()
	require.NoError(t, b.StoreUint32(v))
	return b
}

func loadU32(t testing.TB, s *cell.Slice) uint32 {
	t.Helper()
	require.NotNil(t, s)
	return must(s.LoadUint32())
}

func buildHashmap(t testing.TB, bitLen int, keys []uint64) Hashmap {
	t.Helper()
	h := NewHashmap(bitLen)
	for _, k := range keys {
		require.NoError(t, h.Set(Key(k, bitLen), u32(t, uint32(k))))
	}
	return h
}

func randomKeys(seed int64, n, bitLen int) []uint64 {
	r := rand.New(rand.NewSource(seed))
	seen := map[uint64]bool{}
	var keys []uint64
	for len(keys) < n {
		k := r.Uint64() & (1<<bitLen - 1)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

func TestHashmapRoundTrip(t *testing.T) {
	for _, bitLen := range []int{1, 4, 16, 32} {
		n := 50
		if bitLen < 6 {
			n = 1 << bitLen
		}
		keys := randomKeys(int64(bitLen), n, bitLen)
		h := buildHashmap(t, bitLen, keys)
		require.Equal(t, n, must(h.Len()))

		for _, k := range keys {
			require.Equal(t, uint32(k), loadU32(t, must(h.Get(Key(k, bitLen)))))
		}

		removed := keys[:n/2]
		for _, k := range removed {
			require.True(t, must(h.Remove(Key(k, bitLen))))
			require.False(t, must(h.Remove(Key(k, bitLen))))
		}
		for _, k := range removed {
			require.Nil(t, must(h.Get(Key(k, bitLen))))
		}
		for _, k := range keys[n/2:] {
			require.Equal(t, uint32(k), loadU32(t, must(h.Get(Key(k, bitLen)))))
		}

		// Removal leaves the same tree as never inserting
		fresh := buildHashmap(t, bitLen, keys[n/2:])
		require.Equal(t, fresh.Root().ReprHash(), h.Root().ReprHash())
	}
}

func TestHashmapInsertionOrder(t *testing.T) {
	keys := randomKeys(7, 40, 24)
	a := buildHashmap(t, 24, keys)

	reversed := make([]uint64, len(keys))
	for i, k := range keys {
		reversed[len(keys)-1-i] = k
	}
	b := buildHashmap(t, 24, reversed)
	require.Equal(t, a.Root().ReprHash(), b.Root().ReprHash())
}

func TestHashmapReplace(t *testing.T) {
	h := buildHashmap(t, 8, []uint64{1, 2, 3})
	require.NoError(t, h.Set(Key(2, 8), u32(t, 99)))
	require.Equal(t, uint32(99), loadU32(t, must(h.Get(Key(2, 8)))))
	require.Equal(t, 3, must(h.Len()))
}

func TestHashmapRemoveLast(t *testing.T) {
	h := buildHashmap(t, 8, []uint64{5})
	require.True(t, must(h.Remove(Key(5, 8))))
	require.True(t, h.IsEmpty())
	require.Nil(t, must(h.Get(Key(5, 8))))
}

func TestHashmapKeyLength(t *testing.T) {
	h := buildHashmap(t, 8, []uint64{1})
	_, err := h.Get(Key(1, 9))
	require.ErrorIs(t, err, errors.InvalidArgument)
	require.ErrorIs(t, h.Set(Key(1, 7), u32(t, 1)), errors.InvalidArgument)
	_, err = h.Remove(Key(1, 16))
	require.ErrorIs(t, err, errors.InvalidArgument)
}

func TestHashmapMalformedFork(t *testing.T) {
	// A fork at the root with a single reference
	b := cell.NewBuilder()
	require.NoError(t, storeLabel(b, cell.BitString{}, 8))
	require.NoError(t, b.StoreRef(cell.Empty()))
	root := must(b.Finalize())

	h := HashmapFromRoot(8, root)
	_, err := h.Get(Key(1, 8))
	require.ErrorIs(t, err, errors.CellUnderflow)
}

func TestHashmapIterateOrder(t *testing.T) {
	keys := randomKeys(3, 30, 12)
	h := buildHashmap(t, 12, keys)

	var got []uint64
	ok, err := h.Iterate(func(key cell.BitString, value *cell.Slice) (bool, error) {
		got = append(got, key.Uint())
		require.Equal(t, uint32(key.Uint()), loadU32(t, value))
		return true, nil
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.IsIncreasing(t, got)
	require.Len(t, got, len(keys))

	// Stopping early propagates
	var n int
	ok, err = h.Iterate(func(cell.BitString, *cell.Slice) (bool, error) {
		n++
		return n < 5, nil
	})
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 5, n)
}

var signedKeys = []int64{-5, 3, 100, -128}

func signedMap(t testing.TB) Hashmap {
	h := NewHashmap(8)
	for _, k := range signedKeys {
		require.NoError(t, h.Set(SignedKey(k, 8), u32(t, uint32(k))))
	}
	return h
}

func TestHashmapMinMax(t *testing.T) {
	h := signedMap(t)

	key, _, err := h.Min(false)
	require.NoError(t, err)
	require.Equal(t, uint64(3), key.Uint())
	key, _, err = h.Max(false)
	require.NoError(t, err)
	require.Equal(t, uint64(0xFB), key.Uint())

	key, _, err = h.Min(true)
	require.NoError(t, err)
	require.Equal(t, uint64(0x80), key.Uint())
	key, _, err = h.Max(true)
	require.NoError(t, err)
	require.Equal(t, uint64(100), key.Uint())

	empty := NewHashmap(8)
	_, v, err := empty.Min(false)
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestHashmapFindLeaf(t *testing.T) {
	h := signedMap(t)
	cases := []struct {
		key              int64
		next, eq, signed bool
		want             int64
		found            bool
	}{
		{0x10, true, false, false, 100, true},
		{100, true, true, false, 100, true},
		{100, true, false, false, 0x80, true},
		{100, false, false, false, 3, true},
		{3, false, false, false, 0, false},
		{0xFB, true, false, false, 0, false},
		{-1, true, false, true, 3, true},
		{0, false, false, true, -5, true},
		{-128, false, false, true, 0, false},
		{-128, false, true, true, -128, true},
		{101, true, false, true, 0, false},
	}
	for _, c := range cases {
		key, v, err := h.FindLeaf(SignedKey(c.key, 8), c.next, c.eq, c.signed)
		require.NoError(t, err)
		if !c.found {
			require.Nil(t, v, "%+v", c)
			continue
		}
		require.NotNil(t, v, "%+v", c)
		require.Equal(t, SignedKey(c.want, 8).Uint(), key.Uint(), "%+v", c)
	}
}

func TestHashmapSplitMerge(t *testing.T) {
	keys := randomKeys(11, 40, 16)
	h := buildHashmap(t, 16, keys)

	left, right, err := h.Split(cell.BitString{})
	require.NoError(t, err)
	_, err = left.Iterate(func(key cell.BitString, _ *cell.Slice) (bool, error) {
		require.False(t, key.Bit(0))
		return true, nil
	})
	require.NoError(t, err)
	_, err = right.Iterate(func(key cell.BitString, _ *cell.Slice) (bool, error) {
		require.True(t, key.Bit(0))
		return true, nil
	})
	require.NoError(t, err)
	require.Equal(t, len(keys), must(left.Len())+must(right.Len()))

	require.NoError(t, left.Merge(right, cell.BitString{}))
	require.Equal(t, h.Root().ReprHash(), left.Root().ReprHash())

	// Merging maps that share the next bit fails
	a := buildHashmap(t, 8, []uint64{0x01})
	b := buildHashmap(t, 8, []uint64{0x02})
	require.ErrorIs(t, a.Merge(b, cell.BitString{}), errors.InvalidArgument)

	// Merging with an empty map is a no-op
	empty := NewHashmap(8)
	require.NoError(t, a.Merge(empty, cell.BitString{}))
	require.NoError(t, empty.Merge(a, cell.BitString{}))
	require.Equal(t, a.Root().ReprHash(), empty.Root().ReprHash())
}

func TestHashmapSubtree(t *testing.T) {
	h := buildHashmap(t, 8, []uint64{0x10, 0x11, 0x1F, 0x20, 0xF0})

	sub, err := h.SubtreeWithPrefix(binKey(t, "0001"))
	require.NoError(t, err)
	require.Equal(t, 3, must(sub.Len()))
	require.Equal(t, buildHashmap(t, 8, []uint64{0x10, 0x11, 0x1F}).Root().ReprHash(), sub.Root().ReprHash())

	stripped, err := h.SubtreeWithoutPrefix(binKey(t, "0001"))
	require.NoError(t, err)
	require.Equal(t, 4, stripped.BitLen())
	require.Equal(t, buildHashmapValues(t, 4, map[uint64]uint32{0x0: 0x10, 0x1: 0x11, 0xF: 0x1F}).Root().ReprHash(), stripped.Root().ReprHash())

	none, err := h.SubtreeWithPrefix(binKey(t, "01"))
	require.NoError(t, err)
	require.True(t, none.IsEmpty())
}

func buildHashmapValues(t testing.TB, bitLen int, entries map[uint64]uint32) Hashmap {
	h := NewHashmap(bitLen)
	for k, v := range entries {
		require.NoError(t, h.Set(Key(k, bitLen), u32(t, v)))
	}
	return h
}

func TestHashmapFilter(t *testing.T) {
	h := buildHashmap(t, 8, []uint64{1, 2, 3, 4, 5, 6})
	err := h.Filter(func(key cell.BitString, _ *cell.Slice) (FilterAction, error) {
		switch {
		case key.Uint() == 5:
			return FilterStop, nil
		case key.Uint()%2 == 0:
			return FilterRemove, nil
		}
		return FilterAccept, nil
	})
	require.NoError(t, err)
	require.Equal(t, buildHashmap(t, 8, []uint64{1, 3, 5, 6}).Root().ReprHash(), h.Root().ReprHash())
}

func TestHashmapScanDiff(t *testing.T) {
	a := buildHashmap(t, 8, []uint64{1, 2, 3})
	b := buildHashmap(t, 8, []uint64{2, 3, 4})
	require.NoError(t, b.Set(Key(3, 8), u32(t, 33)))

	type diff struct {
		key          uint64
		mine, theirs bool
	}
	var got []diff
	ok, err := a.ScanDiff(b, func(key cell.BitString, mine, theirs *cell.Slice) (bool, error) {
		got = append(got, diff{key.Uint(), mine != nil, theirs != nil})
		return true, nil
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []diff{{1, true, false}, {3, true, true}, {4, false, true}}, got)

	got = nil
	_, err = a.ScanDiff(a, func(key cell.BitString, mine, theirs *cell.Slice) (bool, error) {
		got = append(got, diff{key.Uint(), true, true})
		return true, nil
	})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestHashmapStoreLoad(t *testing.T) {
	h := buildHashmap(t, 32, randomKeys(5, 20, 32))
	c := must(cell.ToCell(h))
	s := must(c.BeginParse())
	got, err := LoadHashmapE(s, 32)
	require.NoError(t, err)
	require.Equal(t, h.Root().ReprHash(), got.Root().ReprHash())

	empty := must(cell.ToCell(NewHashmap(32)))
	require.Equal(t, 1, empty.BitLen())
}

func TestEmptyAccessors(t *testing.T) {
	require.Equal(t, 8, NewHashmap(8).BitLen())
	require.True(t, NewHashmap(8).IsEmpty())
	require.Nil(t, NewHashmap(8).Root())
	require.Zero(t, must(NewHashmap(8).Len()))

	require.Equal(t, 16, NewAugHashmap[sum](16).BitLen())
	require.True(t, NewAugHashmap[sum](16).IsEmpty())
	require.Nil(t, NewAugHashmap[sum](16).Root())
	require.Zero(t, NewAugHashmap[sum](16).RootExtra())
}
