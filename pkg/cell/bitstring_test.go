// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package cell

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func bin(t testing.TB, s string) BitString {
	t.Helper()
	b, err := ParseBinary(s)
	require.NoError(t, err)
	return b
}

func TestBitStringString(t *testing.T) {
	cases := map[string]string{
		"":         "x{}",
		"0100":     "x{4}",
		"1":        "x{C_}",
		"10101010": "x{AA}",
		"101":      "x{B_}",
		"1111110":  "x{FD_}",
	}
	for in, out := range cases {
		require.Equal(t, out, bin(t, in).String(), in)
	}
}

func TestBitStringOps(t *testing.T) {
	a := bin(t, "1011001")
	b := bin(t, "10110111")

	require.Equal(t, 5, a.CommonPrefixLen(b))
	require.True(t, b.HasPrefix(bin(t, "1011")))
	require.False(t, b.HasPrefix(a))
	require.Equal(t, "110", a.Slice(2, 5).Binary())
	require.Equal(t, "011", a.Slice(1, 4).Binary())
	require.Equal(t, "001", a.Suffix(4).Binary())
	require.Equal(t, "101100110110111", a.Append(b).Binary())
	require.Equal(t, uint64(0b1011001), a.Uint())
	require.Equal(t, "0000101", BitStringFromUint(5, 7).Binary())

	require.True(t, bin(t, "0000").IsSame())
	require.True(t, bin(t, "111").IsSame())
	require.False(t, bin(t, "110").IsSame())

	require.True(t, a.Equal(bin(t, "1011001")))
	require.False(t, a.Equal(bin(t, "10110010")))
}

func TestBitStringCompare(t *testing.T) {
	require.Equal(t, 0, bin(t, "101").Compare(bin(t, "101")))
	require.Equal(t, -1, bin(t, "10").Compare(bin(t, "101")))
	require.Equal(t, +1, bin(t, "101").Compare(bin(t, "10")))
	require.Equal(t, -1, bin(t, "1001").Compare(bin(t, "101")))
	require.Equal(t, +1, bin(t, "11").Compare(bin(t, "1011")))
}

func TestUnpad(t *testing.T) {
	b := bin(t, "101")
	got, err := unpad(b.padded(), false)
	require.NoError(t, err)
	require.True(t, b.Equal(got))

	_, err = unpad([]byte{0x80, 0x00}, false)
	require.Error(t, err)
}
