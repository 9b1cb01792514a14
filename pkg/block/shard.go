// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package block

import (
	"math/bits"

	"gitlab.com/accumulatenetwork/blockcells/pkg/bintree"
	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
	"gitlab.com/accumulatenetwork/blockcells/pkg/dict"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

// BinTreeKey returns the path of the shard in its workchain's shard tree.
// The key of the full shard is empty.
func (s ShardIdent) BinTreeKey() cell.BitString {
	if s.IsFull() {
		return cell.BitString{}
	}
	n := int(s.PrefixBits)
	return cell.BitStringFromUint(s.Prefix>>(64-n), n)
}

// shardFromKey is the inverse of BinTreeKey.
func shardFromKey(workchain int32, key cell.BitString) ShardIdent {
	s := ShardIdent{Workchain: workchain, PrefixBits: uint8(key.Len())}
	if !key.IsEmpty() {
		s.Prefix = key.Uint() << (64 - key.Len())
	}
	return s
}

// prefixWithTag returns the prefix with a marker bit set right after it.
func (s ShardIdent) prefixWithTag() uint64 {
	return s.Prefix | 1<<(63-s.PrefixBits)
}

// fullKey returns the workchain followed by the tagged prefix.
func (s ShardIdent) fullKey() cell.BitString {
	return dict.SignedKey(int64(s.Workchain), 32).Append(dict.Key(s.prefixWithTag(), 64))
}

func shardFromFullKey(key cell.BitString) (ShardIdent, error) {
	if key.Len() != 96 {
		return ShardIdent{}, errors.InvalidData.WithFormat("shard key has %d bits", key.Len())
	}
	wc := int32(uint32(key.Slice(0, 32).Uint()))
	tagged := key.Suffix(32).Uint()
	if tagged == 0 {
		return ShardIdent{}, errors.InvalidData.With("shard key has no tag bit")
	}
	n := 63 - bits.TrailingZeros64(tagged)
	if n > MaxShardPrefixBits {
		return ShardIdent{}, errors.InvalidData.WithFormat("invalid shard prefix %016x", tagged)
	}
	return ShardIdent{Workchain: wc, PrefixBits: uint8(n), Prefix: tagged &^ (1 << (63 - n))}, nil
}

// ShardDescr describes the latest block of a shard. Only the block
// identity, its logical time range and the collected fees are kept.
//
//	shard_descr#b seq_no:uint32 start_lt:uint64 end_lt:uint64
//	  root_hash:bits256 file_hash:bits256
//	  fees_collected:CurrencyCollection = ShardDescr;
type ShardDescr struct {
	SeqNo         uint32
	StartLT       uint64
	EndLT         uint64
	RootHash      cell.Hash
	FileHash      cell.Hash
	FeesCollected CurrencyCollection
}

func (d ShardDescr) StoreTo(b *cell.Builder) error {
	err := b.StoreUint(0xb, 4)
	if err == nil {
		err = b.StoreUint32(d.SeqNo)
	}
	if err == nil {
		err = b.StoreUint64(d.StartLT)
	}
	if err == nil {
		err = b.StoreUint64(d.EndLT)
	}
	if err == nil {
		err = b.StoreHash(d.RootHash)
	}
	if err == nil {
		err = b.StoreHash(d.FileHash)
	}
	if err == nil {
		err = d.FeesCollected.StoreTo(b)
	}
	return err
}

func (ShardDescr) LoadFrom(s *cell.Slice) (ShardDescr, error) {
	var d ShardDescr
	err := s.CheckTag(0xb, 4, "shard_descr")
	if err == nil {
		d.SeqNo, err = s.LoadUint32()
	}
	if err == nil {
		d.StartLT, err = s.LoadUint64()
	}
	if err == nil {
		d.EndLT, err = s.LoadUint64()
	}
	if err == nil {
		d.RootHash, err = s.LoadHash()
	}
	if err == nil {
		d.FileHash, err = s.LoadHash()
	}
	if err == nil {
		d.FeesCollected, err = d.FeesCollected.LoadFrom(s)
	}
	return d, err
}

// ShardHashes holds the shard tree of every workchain.
//
//	_ (HashmapE 32 ^(BinTree ShardDescr)) = ShardHashes;
type ShardHashes struct {
	m dict.Hashmap
}

func NewShardHashes() *ShardHashes {
	return &ShardHashes{dict.NewHashmap(32)}
}

func workchainKey(wc int32) cell.BitString { return dict.SignedKey(int64(wc), 32) }

// SetWorkchain replaces the shard tree of a workchain.
func (h *ShardHashes) SetWorkchain(wc int32, tree bintree.BinTree[ShardDescr]) error {
	if tree.Root() == nil {
		return errors.InvalidArgument.WithFormat("empty shard tree for workchain %d", wc)
	}
	return h.m.SetRef(workchainKey(wc), tree.Root())
}

// Workchain returns the shard tree of a workchain, or nil.
func (h *ShardHashes) Workchain(wc int32) (*bintree.BinTree[ShardDescr], error) {
	c, err := h.m.GetRef(workchainKey(wc))
	if err != nil || c == nil {
		return nil, err
	}
	tree := bintree.FromRoot[ShardDescr](c)
	return &tree, nil
}

// FindShard returns the shard that contains the given shard, which may be
// the shard itself or one of its descendants.
func (h *ShardHashes) FindShard(shard ShardIdent) (ShardIdent, ShardDescr, bool, error) {
	return h.find(shard.Workchain, shard.BinTreeKey())
}

// FindAccount returns the shard the account belongs to.
func (h *ShardHashes) FindAccount(addr MsgAddressInt) (ShardIdent, ShardDescr, bool, error) {
	return h.find(int32(addr.Workchain), dict.HashKey(addr.Address))
}

func (h *ShardHashes) find(wc int32, key cell.BitString) (ShardIdent, ShardDescr, bool, error) {
	tree, err := h.Workchain(wc)
	if err != nil || tree == nil {
		return ShardIdent{}, ShardDescr{}, false, err
	}
	k, d, ok, err := tree.Find(key)
	if err != nil || !ok {
		return ShardIdent{}, ShardDescr{}, false, err
	}
	return shardFromKey(wc, k), d, true, nil
}

// SplitShard replaces a shard with its two children. fn derives the
// descriptors of the children from the descriptor of the parent.
func (h *ShardHashes) SplitShard(shard ShardIdent, fn func(ShardDescr) (left, right ShardDescr, err error)) (bool, error) {
	if shard.PrefixBits >= MaxShardPrefixBits {
		return false, errors.InvalidArgument.WithFormat("cannot split %v", shard)
	}
	tree, err := h.Workchain(shard.Workchain)
	if err != nil || tree == nil {
		return false, err
	}
	ok, err := tree.SplitWith(shard.BinTreeKey(), fn)
	if err != nil || !ok {
		return false, err
	}
	return true, h.SetWorkchain(shard.Workchain, *tree)
}

// Iterate calls fn for every shard of every workchain.
func (h *ShardHashes) Iterate(fn func(shard ShardIdent, descr ShardDescr) (bool, error)) (bool, error) {
	return h.m.Iterate(func(key cell.BitString, value *cell.Slice) (bool, error) {
		wc := int32(uint32(key.Uint()))
		c, err := value.LoadRef()
		if err != nil {
			return false, err
		}
		tree := bintree.FromRoot[ShardDescr](c)
		return tree.Iterate(func(k cell.BitString, d ShardDescr) (bool, error) {
			return fn(shardFromKey(wc, k), d)
		})
	})
}

func (h *ShardHashes) StoreTo(b *cell.Builder) error { return h.m.StoreTo(b) }

func (*ShardHashes) LoadFrom(s *cell.Slice) (*ShardHashes, error) {
	m, err := dict.LoadHashmapE(s, 32)
	if err != nil {
		return nil, err
	}
	return &ShardHashes{m}, nil
}

// ShardFeeCreated is the fees collected and the funds created by a shard.
//
//	shard_fee_created$_ fees:CurrencyCollection create:CurrencyCollection = ShardFeeCreated;
type ShardFeeCreated struct {
	Fees   CurrencyCollection
	Create CurrencyCollection
}

func (f ShardFeeCreated) Aug() (ShardFeeCreated, error) { return f, nil }

func (f ShardFeeCreated) Calc(o ShardFeeCreated) (ShardFeeCreated, error) {
	var r ShardFeeCreated
	var err error
	r.Fees, err = f.Fees.Calc(o.Fees)
	if err != nil {
		return r, err
	}
	r.Create, err = f.Create.Calc(o.Create)
	return r, err
}

func (f ShardFeeCreated) StoreTo(b *cell.Builder) error {
	err := f.Fees.StoreTo(b)
	if err != nil {
		return err
	}
	return f.Create.StoreTo(b)
}

func (ShardFeeCreated) LoadFrom(s *cell.Slice) (ShardFeeCreated, error) {
	var f ShardFeeCreated
	var err error
	f.Fees, err = f.Fees.LoadFrom(s)
	if err != nil {
		return f, err
	}
	f.Create, err = f.Create.LoadFrom(s)
	return f, err
}

// ShardFees holds the fees of each shard keyed by workchain and tagged
// prefix, augmented with their sum.
//
//	_ (HashmapAugE 96 ShardFeeCreated ShardFeeCreated) = ShardFees;
type ShardFees struct {
	m dict.AugHashmap[ShardFeeCreated]
}

func NewShardFees() *ShardFees {
	return &ShardFees{dict.NewAugHashmap[ShardFeeCreated](96)}
}

// Add adds fees and created funds to the record of a shard.
func (f *ShardFees) Add(shard ShardIdent, v ShardFeeCreated) error {
	cur, _, err := f.Get(shard)
	if err != nil {
		return err
	}
	sum, err := cur.Calc(v)
	if err != nil {
		return err
	}
	return f.m.SetAugmented(shard.fullKey(), sum)
}

// Get returns the record of a shard.
func (f *ShardFees) Get(shard ShardIdent) (ShardFeeCreated, bool, error) {
	s, err := f.m.Get(shard.fullKey())
	if err != nil || s == nil {
		return ShardFeeCreated{}, false, err
	}
	v, err := cell.Load[ShardFeeCreated](s, ShardFeeCreated{})
	return v, err == nil, err
}

// Total returns the sum over all shards.
func (f *ShardFees) Total() ShardFeeCreated { return f.m.RootExtra() }

// Single returns the shard and its record if exactly one shard is present.
func (f *ShardFees) Single() (ShardIdent, ShardFeeCreated, bool, error) {
	key, s, aug, err := f.m.Single()
	if err != nil || s == nil {
		return ShardIdent{}, ShardFeeCreated{}, false, err
	}
	shard, err := shardFromFullKey(key)
	if err != nil {
		return ShardIdent{}, ShardFeeCreated{}, false, err
	}
	return shard, aug, true, nil
}

func (f *ShardFees) StoreTo(b *cell.Builder) error { return f.m.StoreTo(b) }

func (*ShardFees) LoadFrom(s *cell.Slice) (*ShardFees, error) {
	m, err := dict.LoadAugHashmapE[ShardFeeCreated](s, 96)
	if err != nil {
		return nil, err
	}
	return &ShardFees{m}, nil
}
