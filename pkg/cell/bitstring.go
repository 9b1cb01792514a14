// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package cell

import (
	"bytes"
	"encoding/hex"
	"strings"

	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

// BitString is an immutable sequence of bits, stored most significant bit
// first. Operations that produce a new BitString never modify the receiver.
type BitString struct {
	data []byte
	n    int
}

// NewBitString returns a bit string holding the first n bits of data.
func NewBitString(data []byte, n int) BitString {
	if n > len(data)*8 {
		n = len(data) * 8
	}
	b := make([]byte, (n+7)/8)
	copy(b, data)
	if n&7 != 0 {
		b[len(b)-1] &= ^byte(0xFF >> (n & 7))
	}
	return BitString{b, n}
}

// BitStringFromBytes returns a bit string holding all of data.
func BitStringFromBytes(data []byte) BitString {
	return NewBitString(data, len(data)*8)
}

// BitStringFromUint returns the n low bits of v as a bit string.
func BitStringFromUint(v uint64, n int) BitString {
	var b BitString
	for i := n - 1; i >= 0; i-- {
		b = b.AppendBit(i < 64 && (v>>uint(i))&1 == 1)
	}
	return b
}

// ParseBinary parses a string of '0' and '1' characters.
func ParseBinary(s string) (BitString, error) {
	var b BitString
	for _, c := range s {
		switch c {
		case '0':
			b = b.AppendBit(false)
		case '1':
			b = b.AppendBit(true)
		default:
			return BitString{}, errors.InvalidArgument.WithFormat("invalid binary digit %q", c)
		}
	}
	return b, nil
}

// Len returns the number of bits.
func (b BitString) Len() int { return b.n }

// IsEmpty returns true if the bit string has no bits.
func (b BitString) IsEmpty() bool { return b.n == 0 }

// Bit returns the i'th bit.
func (b BitString) Bit(i int) bool {
	BIdx := i >> 3               // Calculate the byte index
	bit := byte(0x80) >> (i & 7) // The mask starts at the high end bit in the byte
	return b.data[BIdx]&bit != 0
}

// Bytes returns the bits packed into bytes. Trailing bits of the last byte
// are zero.
func (b BitString) Bytes() []byte {
	c := make([]byte, len(b.data))
	copy(c, b.data)
	return c
}

// Slice returns bits [from, to).
func (b BitString) Slice(from, to int) BitString {
	if from < 0 || to > b.n || from > to {
		panic("bit string slice out of range")
	}
	if from&7 == 0 {
		return NewBitString(b.data[from>>3:], to-from)
	}
	var c BitString
	c.data = make([]byte, 0, (to-from+7)/8)
	for i := from; i < to; i++ {
		c = c.AppendBit(b.Bit(i))
	}
	return c
}

// Suffix returns the bits from position from onwards.
func (b BitString) Suffix(from int) BitString { return b.Slice(from, b.n) }

// AppendBit returns a copy of b with v appended.
func (b BitString) AppendBit(v bool) BitString {
	c := BitString{n: b.n + 1}
	c.data = make([]byte, (c.n+7)/8, (c.n+7)/8+8)
	copy(c.data, b.data)
	if v {
		c.data[b.n>>3] |= byte(0x80) >> (b.n & 7)
	}
	return c
}

// Append returns the concatenation of b and o.
func (b BitString) Append(o BitString) BitString {
	c := BitString{n: b.n + o.n}
	c.data = make([]byte, (c.n+7)/8)
	copy(c.data, b.data)
	if b.n&7 == 0 {
		copy(c.data[b.n>>3:], o.data)
		return c
	}
	for i := 0; i < o.n; i++ {
		if o.Bit(i) {
			j := b.n + i
			c.data[j>>3] |= byte(0x80) >> (j & 7)
		}
	}
	return c
}

// CommonPrefixLen returns the length of the longest common prefix of b and o.
func (b BitString) CommonPrefixLen(o BitString) int {
	n := b.n
	if o.n < n {
		n = o.n
	}
	i := 0
	for ; i+8 <= n && i&7 == 0; i += 8 {
		if b.data[i>>3] != o.data[i>>3] {
			break
		}
	}
	for ; i < n; i++ {
		if b.Bit(i) != o.Bit(i) {
			return i
		}
	}
	return n
}

// HasPrefix returns true if p is a prefix of b.
func (b BitString) HasPrefix(p BitString) bool {
	return p.n <= b.n && b.CommonPrefixLen(p) == p.n
}

// IsSame returns true if every bit equals the first.
func (b BitString) IsSame() bool {
	for i := 1; i < b.n; i++ {
		if b.Bit(i) != b.Bit(0) {
			return false
		}
	}
	return true
}

// Equal returns true if b and o hold the same bits.
func (b BitString) Equal(o BitString) bool {
	return b.n == o.n && bytes.Equal(b.data, o.data)
}

// Compare orders bit strings lexicographically, a proper prefix sorting
// first.
func (b BitString) Compare(o BitString) int {
	p := b.CommonPrefixLen(o)
	switch {
	case p == b.n && p == o.n:
		return 0
	case p == b.n:
		return -1
	case p == o.n:
		return +1
	case o.Bit(p):
		return -1
	default:
		return +1
	}
}

// Uint returns the bits as an unsigned big-endian integer. Only the low 64
// bits are kept.
func (b BitString) Uint() uint64 {
	var v uint64
	for i := 0; i < b.n; i++ {
		v <<= 1
		if b.Bit(i) {
			v |= 1
		}
	}
	return v
}

// Binary returns the bits as a string of '0' and '1'.
func (b BitString) Binary() string {
	var sb strings.Builder
	for i := 0; i < b.n; i++ {
		if b.Bit(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// String formats the bits as x{...} hex. When the length is not a multiple of
// four the bits are completed with a 1 bit and zeros and suffixed with _.
func (b BitString) String() string {
	if b.n&3 == 0 {
		s := hex.EncodeToString(b.data)
		return "x{" + strings.ToUpper(s[:b.n/4]) + "}"
	}

	c := b.AppendBit(true)
	for c.n&3 != 0 {
		c = c.AppendBit(false)
	}
	s := hex.EncodeToString(c.data)
	return "x{" + strings.ToUpper(s[:c.n/4]) + "_}"
}

// padded returns the bytes of b completed with a 1 bit when b does not end on
// a byte boundary, as used for hashing and serialization.
func (b BitString) padded() []byte {
	c := b.Bytes()
	if b.n&7 != 0 {
		c[b.n>>3] |= byte(0x80) >> (b.n & 7)
	}
	return c
}

// unpad strips the completion tag from data holding a cell's bits.
func unpad(data []byte, aligned bool) (BitString, error) {
	if aligned {
		return BitStringFromBytes(data), nil
	}
	if len(data) == 0 {
		return BitString{}, errors.InvalidData.With("missing completion tag")
	}
	last := data[len(data)-1]
	if last == 0 {
		return BitString{}, errors.InvalidData.With("missing completion tag")
	}
	tz := 0
	for last&(1<<tz) == 0 {
		tz++
	}
	return NewBitString(data, len(data)*8-tz-1), nil
}
