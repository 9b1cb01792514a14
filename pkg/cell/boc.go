// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package cell

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"hash/crc32"
	"math/bits"

	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

const bocMagic = 0xb5ee9c72

const (
	bocFlagIndex  = 0x80
	bocFlagCRC32C = 0x40
	bocFlagCache  = 0x20
	bocSizeMask   = 0x07
)

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// SerializeOptions controls the optional parts of a serialized bag of cells.
type SerializeOptions struct {
	Index  bool
	CRC32C bool
}

// DefaultSerializeOptions includes a CRC32-C checksum and no index.
var DefaultSerializeOptions = SerializeOptions{CRC32C: true}

type bocCell struct {
	cell *Cell
	refs []int
}

// Serialize encodes the trees rooted at roots as a bag of cells. Cells are
// deduplicated by representation hash and written parents first.
func Serialize(roots []*Cell, opts SerializeOptions) ([]byte, error) {
	if len(roots) == 0 {
		return nil, errors.InvalidArgument.With("no roots")
	}
	roots = append([]*Cell(nil), roots...)

	// Post-order, children first. Cells are written as stored, without
	// virtualization.
	index := map[Hash]int{}
	var order []*Cell
	var visit func(c *Cell)
	visit = func(c *Cell) {
		h := c.ReprHash()
		if _, ok := index[h]; ok {
			return
		}
		index[h] = -1
		for _, r := range c.refs {
			visit(r.stored())
		}
		index[h] = len(order)
		order = append(order, c)
	}
	for i, r := range roots {
		roots[i] = r.stored()
		visit(roots[i])
	}

	// Reverse so parents come first
	n := len(order)
	cells := make([]bocCell, n)
	for i, c := range order {
		cells[n-1-i].cell = c
	}
	for h, i := range index {
		index[h] = n - 1 - i
	}
	for i := range cells {
		for _, r := range cells[i].cell.refs {
			cells[i].refs = append(cells[i].refs, index[r.stored().ReprHash()])
		}
	}

	sizeBytes := byteLen(uint64(n))
	var body bytes.Buffer
	offsets := make([]uint64, n)
	for i, c := range cells {
		writeCellRecord(&body, c, sizeBytes)
		offsets[i] = uint64(body.Len())
	}
	offBytes := byteLen(uint64(body.Len()))

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(bocMagic))
	flags := byte(sizeBytes)
	if opts.Index {
		flags |= bocFlagIndex
	}
	if opts.CRC32C {
		flags |= bocFlagCRC32C
	}
	buf.WriteByte(flags)
	buf.WriteByte(byte(offBytes))
	writeUint(&buf, uint64(n), sizeBytes)
	writeUint(&buf, uint64(len(roots)), sizeBytes)
	writeUint(&buf, 0, sizeBytes) // absent
	writeUint(&buf, uint64(body.Len()), offBytes)
	for _, r := range roots {
		writeUint(&buf, uint64(index[r.ReprHash()]), sizeBytes)
	}
	if opts.Index {
		for _, off := range offsets {
			writeUint(&buf, off, offBytes)
		}
	}
	buf.Write(body.Bytes())

	if opts.CRC32C {
		var sum [4]byte
		binary.LittleEndian.PutUint32(sum[:], crc32.Checksum(buf.Bytes(), crcTable))
		buf.Write(sum[:])
	}
	return buf.Bytes(), nil
}

func writeCellRecord(buf *bytes.Buffer, c bocCell, sizeBytes int) {
	d1 := byte(len(c.refs)) + byte(c.cell.mask)<<5
	if c.cell.IsExotic() {
		d1 += 8
	}
	n := c.cell.bits.Len()
	buf.WriteByte(d1)
	buf.WriteByte(byte(n/8 + (n+7)/8))
	buf.Write(c.cell.bits.padded())
	for _, r := range c.refs {
		writeUint(buf, uint64(r), sizeBytes)
	}
}

func writeUint(buf *bytes.Buffer, v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		buf.WriteByte(byte(v >> (8 * i)))
	}
}

func byteLen(v uint64) int {
	n := (bits.Len64(v) + 7) / 8
	if n == 0 {
		return 1
	}
	return n
}

type bocReader struct {
	data []byte
	pos  int
}

func (r *bocReader) bytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, errors.InvalidData.WithFormat("bag of cells is truncated at %d", r.pos)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *bocReader) uint(n int) (uint64, error) {
	b, err := r.bytes(n)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, b := range b {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

type rawCell struct {
	typ      Type
	bits     BitString
	mask     LevelMask
	refs     []int
	hasCache bool
}

// Deserialize decodes a bag of cells and returns its roots.
func Deserialize(data []byte) ([]*Cell, error) {
	r := &bocReader{data: data}
	magic, err := r.uint(4)
	if err != nil {
		return nil, err
	}
	if magic != bocMagic {
		return nil, errors.InvalidData.WithFormat("invalid bag of cells magic %08x", magic)
	}

	flags, err := r.uint(1)
	if err != nil {
		return nil, err
	}
	sizeBytes := int(flags & bocSizeMask)
	if sizeBytes == 0 || sizeBytes > 4 {
		return nil, errors.InvalidData.WithFormat("invalid reference size %d", sizeBytes)
	}
	offBytes, err := r.uint(1)
	if err != nil {
		return nil, err
	}
	if offBytes == 0 || offBytes > 8 {
		return nil, errors.InvalidData.WithFormat("invalid offset size %d", offBytes)
	}

	cellCount, err := r.uint(sizeBytes)
	if err != nil {
		return nil, err
	}
	rootCount, err := r.uint(sizeBytes)
	if err != nil {
		return nil, err
	}
	absent, err := r.uint(sizeBytes)
	if err != nil {
		return nil, err
	}
	totalSize, err := r.uint(int(offBytes))
	if err != nil {
		return nil, err
	}
	switch {
	case rootCount == 0 || rootCount > cellCount:
		return nil, errors.InvalidData.WithFormat("invalid root count %d for %d cells", rootCount, cellCount)
	case absent > 0:
		return nil, errors.InvalidData.With("absent cells are not supported")
	case cellCount > uint64(len(data)) || totalSize > uint64(len(data)):
		return nil, errors.InvalidData.With("bag of cells is truncated")
	}

	rootIdx := make([]int, rootCount)
	for i := range rootIdx {
		v, err := r.uint(sizeBytes)
		if err != nil {
			return nil, err
		}
		if v >= cellCount {
			return nil, errors.InvalidData.WithFormat("root index %d out of range", v)
		}
		rootIdx[i] = int(v)
	}

	if flags&bocFlagIndex != 0 {
		_, err = r.bytes(int(cellCount) * int(offBytes))
		if err != nil {
			return nil, err
		}
	}

	start := r.pos
	raw := make([]rawCell, cellCount)
	for i := range raw {
		raw[i], err = readCellRecord(r, sizeBytes)
		if err != nil {
			return nil, errors.InvalidData.WithFormat("cell %d: %w", i, err)
		}
		for _, ref := range raw[i].refs {
			if ref <= i || ref >= len(raw) {
				return nil, errors.InvalidData.WithFormat("cell %d: reference %d is not topologically ordered", i, ref)
			}
		}
	}
	if uint64(r.pos-start) != totalSize {
		return nil, errors.InvalidData.WithFormat("cell data is %d bytes, header says %d", r.pos-start, totalSize)
	}

	if flags&bocFlagCRC32C != 0 {
		sum, err := r.bytes(4)
		if err != nil {
			return nil, err
		}
		want := crc32.Checksum(data[:r.pos-4], crcTable)
		if binary.LittleEndian.Uint32(sum) != want {
			return nil, errors.InvalidData.With("crc32c mismatch")
		}
	}
	if r.pos != len(data) {
		return nil, errors.InvalidData.WithFormat("%d trailing bytes", len(data)-r.pos)
	}

	// Build from the last cell, which has no references, to the first
	cells := make([]*Cell, cellCount)
	for i := len(raw) - 1; i >= 0; i-- {
		b := &Builder{typ: raw[i].typ, bits: raw[i].bits}
		for _, ref := range raw[i].refs {
			b.refs = append(b.refs, cells[ref])
		}
		c, err := b.Finalize()
		if err != nil {
			return nil, errors.InvalidData.WithFormat("cell %d: %w", i, err)
		}
		if c.mask != raw[i].mask {
			return nil, errors.InvalidData.WithFormat("cell %d: level mask is %s, want %s", i, raw[i].mask, c.mask)
		}
		cells[i] = c
	}

	roots := make([]*Cell, len(rootIdx))
	for i, idx := range rootIdx {
		roots[i] = cells[idx]
	}
	return roots, nil
}

func readCellRecord(r *bocReader, sizeBytes int) (rawCell, error) {
	var c rawCell
	d, err := r.bytes(2)
	if err != nil {
		return c, err
	}
	d1, d2 := d[0], d[1]
	refCount := int(d1 & 7)
	if refCount > MaxRefs {
		return c, errors.InvalidData.WithFormat("%d references", refCount)
	}
	exotic := d1&8 != 0
	c.hasCache = d1&16 != 0
	c.mask = LevelMask(d1 >> 5)

	if c.hasCache {
		// Stored hashes and depths are recomputed on load
		_, err = r.bytes(c.mask.HashCount() * (32 + 2))
		if err != nil {
			return c, err
		}
	}

	data, err := r.bytes(int(d2+1) / 2)
	if err != nil {
		return c, err
	}
	c.bits, err = unpad(data, d2&1 == 0)
	if err != nil {
		return c, err
	}

	c.typ = Ordinary
	if exotic {
		if c.bits.Len() < 8 {
			return c, errors.InvalidData.With("exotic cell has no type byte")
		}
		c.typ = Type(data[0])
		if c.typ == Ordinary {
			return c, errors.InvalidData.With("exotic cell has ordinary type byte")
		}
	}

	c.refs = make([]int, refCount)
	for i := range c.refs {
		v, err := r.uint(sizeBytes)
		if err != nil {
			return c, err
		}
		c.refs[i] = int(v)
	}
	return c, nil
}

// ToBOC serializes a single root with the default options.
func ToBOC(root *Cell) ([]byte, error) {
	return Serialize([]*Cell{root}, DefaultSerializeOptions)
}

// FromBOC deserializes a bag of cells with exactly one root.
func FromBOC(data []byte) (*Cell, error) {
	roots, err := Deserialize(data)
	if err != nil {
		return nil, err
	}
	if len(roots) != 1 {
		return nil, errors.InvalidData.WithFormat("want 1 root, got %d", len(roots))
	}
	return roots[0], nil
}

// ToBase64 serializes a single root and encodes it as standard base64.
func ToBase64(root *Cell) (string, error) {
	b, err := ToBOC(root)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// FromBase64 decodes a base64-encoded bag of cells with one root.
func FromBase64(s string) (*Cell, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.InvalidData.WithFormat("decode base64: %w", err)
	}
	return FromBOC(b)
}

// ToHex serializes a single root and encodes it as hex.
func ToHex(root *Cell) (string, error) {
	b, err := ToBOC(root)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// FromHex decodes a hex-encoded bag of cells with one root.
func FromHex(s string) (*Cell, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.InvalidData.WithFormat("decode hex: %w", err)
	}
	return FromBOC(b)
}
