// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package cell

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

func sampleTree(t testing.TB) *Cell {
	shared := leaf(t, 0xABC, 12)
	left := node(t, 1, shared, leaf(t, 1, 1))
	right := node(t, 2, shared)
	return node(t, 3, left, right, Empty())
}

func TestBOCRoundTrip(t *testing.T) {
	root := sampleTree(t)
	for _, opts := range []SerializeOptions{{}, {CRC32C: true}, {Index: true}, {Index: true, CRC32C: true}} {
		data, err := Serialize([]*Cell{root}, opts)
		require.NoError(t, err)
		require.Equal(t, []byte{0xb5, 0xee, 0x9c, 0x72}, data[:4])

		roots, err := Deserialize(data)
		require.NoError(t, err)
		require.Len(t, roots, 1)
		require.Equal(t, root.ReprHash(), roots[0].ReprHash())
	}
}

func TestBOCDeduplicates(t *testing.T) {
	root := sampleTree(t)
	data, err := Serialize([]*Cell{root}, SerializeOptions{})
	require.NoError(t, err)

	// 6 distinct cells, one byte per count
	require.Equal(t, byte(6), data[6])
}

func TestBOCMultipleRoots(t *testing.T) {
	a := sampleTree(t)
	b := leaf(t, 0xABC, 12)
	data, err := Serialize([]*Cell{a, b}, DefaultSerializeOptions)
	require.NoError(t, err)
	roots, err := Deserialize(data)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	require.Equal(t, a.ReprHash(), roots[0].ReprHash())
	require.Equal(t, b.ReprHash(), roots[1].ReprHash())

	_, err = FromBOC(data)
	require.ErrorIs(t, err, errors.InvalidData)
}

func TestBOCExotic(t *testing.T) {
	c := sampleTree(t)
	p, err := NewPrunedBranch(c, 0)
	require.NoError(t, err)
	root := node(t, 1, p, Empty())

	s, err := ToBase64(root)
	require.NoError(t, err)
	got, err := FromBase64(s)
	require.NoError(t, err)
	require.Equal(t, root.ReprHash(), got.ReprHash())
	require.Equal(t, root.Hash(0), got.Hash(0))
	require.Equal(t, LevelMask(1), got.LevelMask())
}

func TestBOCCorrupt(t *testing.T) {
	data, err := ToBOC(sampleTree(t))
	require.NoError(t, err)

	bad := append([]byte(nil), data...)
	bad[len(bad)-5] ^= 1
	_, err = FromBOC(bad)
	require.ErrorIs(t, err, errors.InvalidData)

	_, err = FromBOC(data[:len(data)-1])
	require.ErrorIs(t, err, errors.InvalidData)

	bad = append([]byte(nil), data...)
	bad[0] = 0
	_, err = FromBOC(bad)
	require.ErrorIs(t, err, errors.InvalidData)

	_, err = FromHex("zz")
	require.ErrorIs(t, err, errors.InvalidData)
}
