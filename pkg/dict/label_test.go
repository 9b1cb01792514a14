// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package dict

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

func binKey(t testing.TB, s string) cell.BitString {
	t.Helper()
	b, err := cell.ParseBinary(s)
	require.NoError(t, err)
	return b
}

func TestLabelEncoding(t *testing.T) {
	cases := []struct {
		label   string
		max     int
		encoded string
	}{
		{"", 16, "00"},
		{"1", 16, "0101"},
		{"0110", 4, "10100" + "0110"},
		{"1111111111111111", 16, "11" + "1" + "10000"},
		{"0000", 16, "11" + "0" + "00100"},
		{"1011001110", 16, "10" + "01010" + "1011001110"},
		{"11", 2, "11" + "1" + "10"},
		{"01", 2, "0110" + "01"},
	}
	for _, c := range cases {
		b := cell.NewBuilder()
		require.NoError(t, storeLabel(b, binKey(t, c.label), c.max))
		require.Equal(t, c.encoded, b.Bits().Binary(), "label %q max %d", c.label, c.max)

		cl, err := b.Finalize()
		require.NoError(t, err)
		s, err := cl.BeginParse()
		require.NoError(t, err)
		got, err := loadLabel(s, c.max)
		require.NoError(t, err)
		require.Equal(t, c.label, got.Binary())
		require.Equal(t, 0, s.BitsLeft())
	}
}

func TestLabelTooLong(t *testing.T) {
	b := cell.NewBuilder()
	require.NoError(t, storeLabel(b, binKey(t, "0101"), 8))
	c, err := b.Finalize()
	require.NoError(t, err)
	s, err := c.BeginParse()
	require.NoError(t, err)
	_, err = loadLabel(s, 3)
	require.ErrorIs(t, err, errors.InvalidData)

	require.ErrorIs(t, storeLabel(cell.NewBuilder(), binKey(t, "0101"), 3), errors.InvalidArgument)
}
