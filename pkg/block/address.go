// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package block

import (
	"fmt"

	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

// MaxShardPrefixBits is the longest shard prefix.
const MaxShardPrefixBits = 60

// ShardIdent identifies a shard by workchain and account address prefix.
// Prefix holds the prefix in its high PrefixBits bits.
//
//	shard_ident$00 shard_pfx_bits:(#<= 60) workchain_id:int32 shard_prefix:uint64 = ShardIdent;
type ShardIdent struct {
	Workchain  int32
	PrefixBits uint8
	Prefix     uint64
}

// FullShard returns the shard covering the whole workchain.
func FullShard(workchain int32) ShardIdent {
	return ShardIdent{Workchain: workchain}
}

// IsFull returns true if the shard covers the whole workchain.
func (s ShardIdent) IsFull() bool { return s.PrefixBits == 0 }

// ContainsAccount returns true if the account address starts with the shard
// prefix.
func (s ShardIdent) ContainsAccount(addr cell.Hash) bool {
	if s.IsFull() {
		return true
	}
	n := int(s.PrefixBits)
	pfx := cell.BitStringFromBytes(addr[:]).Slice(0, n).Uint()
	return pfx == s.Prefix>>(64-n)
}

func (s ShardIdent) String() string {
	return fmt.Sprintf("%d:%016x/%d", s.Workchain, s.Prefix, s.PrefixBits)
}

func (s ShardIdent) StoreTo(b *cell.Builder) error {
	if s.PrefixBits > MaxShardPrefixBits {
		return errors.InvalidArgument.WithFormat("shard prefix has %d bits", s.PrefixBits)
	}
	err := b.StoreUint(0, 2)
	if err == nil {
		err = b.StoreUint(uint64(s.PrefixBits), 6)
	}
	if err == nil {
		err = b.StoreInt(int64(s.Workchain), 32)
	}
	if err == nil {
		err = b.StoreUint64(s.Prefix)
	}
	return err
}

func (ShardIdent) LoadFrom(s *cell.Slice) (ShardIdent, error) {
	var v ShardIdent
	err := s.CheckTag(0, 2, "shard_ident")
	if err != nil {
		return v, err
	}
	n, err := s.LoadUint(6)
	if err != nil {
		return v, err
	}
	if n > MaxShardPrefixBits {
		return v, errors.InvalidData.WithFormat("shard prefix has %d bits", n)
	}
	v.PrefixBits = uint8(n)
	wc, err := s.LoadInt(32)
	if err != nil {
		return v, err
	}
	v.Workchain = int32(wc)
	v.Prefix, err = s.LoadUint64()
	return v, err
}

// MsgAddressInt is an internal address.
//
//	addr_std$10 anycast:(Maybe Anycast) workchain_id:int8 address:bits256 = MsgAddressInt;
//
// Anycast addresses are not supported.
type MsgAddressInt struct {
	Workchain int8
	Address   cell.Hash
}

func (a MsgAddressInt) String() string {
	return fmt.Sprintf("%d:%v", a.Workchain, a.Address)
}

func (a MsgAddressInt) StoreTo(b *cell.Builder) error {
	err := b.StoreUint(0b10, 2)
	if err == nil {
		err = b.StoreBit(false)
	}
	if err == nil {
		err = b.StoreInt(int64(a.Workchain), 8)
	}
	if err == nil {
		err = b.StoreHash(a.Address)
	}
	return err
}

func (MsgAddressInt) LoadFrom(s *cell.Slice) (MsgAddressInt, error) {
	var a MsgAddressInt
	err := s.CheckTag(0b10, 2, "addr_std")
	if err != nil {
		return a, err
	}
	anycast, err := s.LoadBit()
	if err != nil {
		return a, err
	}
	if anycast {
		return a, errors.InvalidData.With("anycast addresses are not supported")
	}
	wc, err := s.LoadInt(8)
	if err != nil {
		return a, err
	}
	a.Workchain = int8(wc)
	a.Address, err = s.LoadHash()
	return a, err
}

// MsgAddressExt is an external address. The zero value is addr_none.
//
//	addr_none$00 = MsgAddressExt;
//	addr_extern$01 len:(## 9) external_address:(bits len) = MsgAddressExt;
type MsgAddressExt struct {
	Address cell.BitString
}

func (a MsgAddressExt) StoreTo(b *cell.Builder) error {
	if a.Address.IsEmpty() {
		return b.StoreUint(0b00, 2)
	}
	if a.Address.Len() >= 1<<9 {
		return errors.InvalidArgument.WithFormat("external address has %d bits", a.Address.Len())
	}
	err := b.StoreUint(0b01, 2)
	if err == nil {
		err = b.StoreUint(uint64(a.Address.Len()), 9)
	}
	if err == nil {
		err = b.StoreBits(a.Address)
	}
	return err
}

func (MsgAddressExt) LoadFrom(s *cell.Slice) (MsgAddressExt, error) {
	var a MsgAddressExt
	tag, err := s.LoadUint(2)
	if err != nil {
		return a, err
	}
	switch tag {
	case 0b00:
		return a, nil
	case 0b01:
		n, err := s.LoadUint(9)
		if err != nil {
			return a, err
		}
		a.Address, err = s.LoadBits(int(n))
		return a, err
	}
	return a, errors.InvalidConstructorTag.WithFormat("invalid MsgAddressExt tag %02b", tag)
}

// BlockSeqNoAndShard identifies the block a shard state belongs to.
type BlockSeqNoAndShard struct {
	SeqNo     uint32
	VertSeqNo uint32
	Shard     ShardIdent
}
