// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package dict

import (
	"math/bits"

	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

// lenBits returns the width of the length field of a label that can be at
// most max bits long.
func lenBits(max int) int { return bits.Len(uint(max)) }

// storeLabel writes label using the shortest of the three encodings:
//
//	hml_short$0 len:(Unary ~n) s:(n * Bit)
//	hml_long$10 n:(#<= m) s:(n * Bit)
//	hml_same$11 v:Bit n:(#<= m)
func storeLabel(b *cell.Builder, label cell.BitString, max int) error {
	n := label.Len()
	if n > max {
		return errors.InvalidArgument.WithFormat("label of %d bits exceeds %d", n, max)
	}
	k := lenBits(max)

	var err error
	switch {
	case n > 1 && k < 2*n-1 && label.IsSame():
		err = b.StoreUint(0b11, 2)
		if err == nil {
			err = b.StoreBit(label.Bit(0))
		}
		if err == nil {
			err = b.StoreUint(uint64(n), k)
		}
		return err

	case k < n:
		err = b.StoreUint(0b10, 2)
		if err == nil {
			err = b.StoreUint(uint64(n), k)
		}

	default:
		err = b.StoreBit(false)
		for i := 0; err == nil && i < n; i++ {
			err = b.StoreBit(true)
		}
		if err == nil {
			err = b.StoreBit(false)
		}
	}
	if err != nil {
		return err
	}
	return b.StoreBits(label)
}

// loadLabel reads a label that can be at most max bits long.
func loadLabel(s *cell.Slice, max int) (cell.BitString, error) {
	first, err := s.LoadBit()
	if err != nil {
		return cell.BitString{}, err
	}

	if !first {
		n, err := s.LoadUnary()
		if err != nil {
			return cell.BitString{}, err
		}
		if n > max {
			return cell.BitString{}, errors.InvalidData.WithFormat("short label of %d bits exceeds %d", n, max)
		}
		return s.LoadBits(n)
	}

	same, err := s.LoadBit()
	if err != nil {
		return cell.BitString{}, err
	}
	k := lenBits(max)

	if !same {
		n, err := s.LoadUint(k)
		if err != nil {
			return cell.BitString{}, err
		}
		if int(n) > max {
			return cell.BitString{}, errors.InvalidData.WithFormat("long label of %d bits exceeds %d", n, max)
		}
		return s.LoadBits(int(n))
	}

	v, err := s.LoadBit()
	if err != nil {
		return cell.BitString{}, err
	}
	n, err := s.LoadUint(k)
	if err != nil {
		return cell.BitString{}, err
	}
	if int(n) > max {
		return cell.BitString{}, errors.InvalidData.WithFormat("same label of %d bits exceeds %d", n, max)
	}
	var label cell.BitString
	for i := 0; i < int(n); i++ {
		label = label.AppendBit(v)
	}
	return label, nil
}
