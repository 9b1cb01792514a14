// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package block

import (
	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

// BlockInfo is the header of a block. References to previous blocks are not
// carried; the master block reference is kept as an opaque cell.
//
//	block_info#9bc7a987 version:uint32
//	  not_master:(## 1) after_merge:(## 1) before_split:(## 1)
//	  after_split:(## 1) want_split:Bool want_merge:Bool
//	  key_block:Bool vert_seqno_incr:(## 1)
//	  flags:(## 8) { flags <= 1 }
//	  seq_no:# vert_seq_no:# { vert_seq_no >= vert_seqno_incr }
//	  shard:ShardIdent gen_utime:uint32
//	  start_lt:uint64 end_lt:uint64
//	  gen_validator_list_hash_short:uint32
//	  gen_catchain_seqno:uint32
//	  min_ref_mc_seqno:uint32
//	  prev_key_block_seqno:uint32
//	  master_ref:not_master?^BlkMasterInfo = BlockInfo;
type BlockInfo struct {
	Version       uint32
	NotMaster     bool
	AfterMerge    bool
	BeforeSplit   bool
	AfterSplit    bool
	WantSplit     bool
	WantMerge     bool
	KeyBlock      bool
	VertSeqNoIncr bool
	Flags         uint8

	SeqNo     uint32
	VertSeqNo uint32
	Shard     ShardIdent
	GenUtime  uint32
	StartLT   uint64
	EndLT     uint64

	GenValidatorListHashShort uint32
	GenCatchainSeqNo          uint32
	MinRefMcSeqNo             uint32
	PrevKeyBlockSeqNo         uint32

	// MasterRef is present when NotMaster is set.
	MasterRef *cell.Cell
}

func (i *BlockInfo) StoreTo(b *cell.Builder) error {
	if i.Flags&^1 != 0 {
		return errors.InvalidArgument.WithFormat("block info flags %08b", i.Flags)
	}
	if i.Flags&1 != 0 {
		return errors.InvalidArgument.With("block info with a global version is not supported")
	}
	if i.VertSeqNoIncr && i.VertSeqNo == 0 {
		return errors.InvalidArgument.With("vertical seqno increment on vertical seqno 0")
	}
	if i.NotMaster != (i.MasterRef != nil) {
		return errors.InvalidArgument.With("master ref must be set exactly for non-master blocks")
	}

	err := b.StoreUint32(0x9bc7a987)
	if err == nil {
		err = b.StoreUint32(i.Version)
	}
	for _, v := range []bool{i.NotMaster, i.AfterMerge, i.BeforeSplit, i.AfterSplit, i.WantSplit, i.WantMerge, i.KeyBlock, i.VertSeqNoIncr} {
		if err == nil {
			err = b.StoreBit(v)
		}
	}
	if err == nil {
		err = b.StoreUint8(i.Flags)
	}
	if err == nil {
		err = b.StoreUint32(i.SeqNo)
	}
	if err == nil {
		err = b.StoreUint32(i.VertSeqNo)
	}
	if err == nil {
		err = i.Shard.StoreTo(b)
	}
	if err == nil {
		err = b.StoreUint32(i.GenUtime)
	}
	if err == nil {
		err = b.StoreUint64(i.StartLT)
	}
	if err == nil {
		err = b.StoreUint64(i.EndLT)
	}
	for _, v := range []uint32{i.GenValidatorListHashShort, i.GenCatchainSeqNo, i.MinRefMcSeqNo, i.PrevKeyBlockSeqNo} {
		if err == nil {
			err = b.StoreUint32(v)
		}
	}
	if err == nil && i.NotMaster {
		err = b.StoreRef(i.MasterRef)
	}
	return err
}

func (*BlockInfo) LoadFrom(s *cell.Slice) (*BlockInfo, error) {
	i := new(BlockInfo)
	err := s.CheckTag(0x9bc7a987, 32, "block_info")
	if err == nil {
		i.Version, err = s.LoadUint32()
	}
	for _, v := range []*bool{&i.NotMaster, &i.AfterMerge, &i.BeforeSplit, &i.AfterSplit, &i.WantSplit, &i.WantMerge, &i.KeyBlock, &i.VertSeqNoIncr} {
		if err == nil {
			*v, err = s.LoadBit()
		}
	}
	if err == nil {
		i.Flags, err = s.LoadUint8()
	}
	if err != nil {
		return nil, err
	}
	if i.Flags > 1 {
		return nil, errors.InvalidData.WithFormat("block info flags %08b", i.Flags)
	}
	if i.Flags&1 != 0 {
		return nil, errors.InvalidData.With("block info with a global version is not supported")
	}

	i.SeqNo, err = s.LoadUint32()
	if err == nil {
		i.VertSeqNo, err = s.LoadUint32()
	}
	if err == nil && i.VertSeqNoIncr && i.VertSeqNo == 0 {
		err = errors.InvalidData.With("vertical seqno increment on vertical seqno 0")
	}
	if err == nil {
		i.Shard, err = i.Shard.LoadFrom(s)
	}
	if err == nil {
		i.GenUtime, err = s.LoadUint32()
	}
	if err == nil {
		i.StartLT, err = s.LoadUint64()
	}
	if err == nil {
		i.EndLT, err = s.LoadUint64()
	}
	for _, v := range []*uint32{&i.GenValidatorListHashShort, &i.GenCatchainSeqNo, &i.MinRefMcSeqNo, &i.PrevKeyBlockSeqNo} {
		if err == nil {
			*v, err = s.LoadUint32()
		}
	}
	if err == nil && i.NotMaster {
		i.MasterRef, err = s.LoadRef()
	}
	if err != nil {
		return nil, err
	}
	return i, nil
}

// BlockExtra holds the message descriptors and account blocks of a block.
// The parts are kept as cells and decoded on demand, so that a block extra
// can be read from a proof that prunes some of them.
//
//	block_extra#4a33f6fd in_msg_descr:^InMsgDescr
//	  out_msg_descr:^OutMsgDescr
//	  account_blocks:^ShardAccountBlocks
//	  rand_seed:bits256 created_by:bits256
//	  custom:(Maybe ^McBlockExtra) = BlockExtra;
type BlockExtra struct {
	InMsgDescr    *cell.Cell
	OutMsgDescr   *cell.Cell
	AccountBlocks *cell.Cell
	RandSeed      cell.Hash
	CreatedBy     cell.Hash
	Custom        *cell.Cell
}

// NewBlockExtra serializes the parts of a block extra.
func NewBlockExtra(in *InMsgDescr, out *OutMsgDescr, accounts *ShardAccountBlocks) (*BlockExtra, error) {
	e := new(BlockExtra)
	var err error
	e.InMsgDescr, err = cell.ToCell(in)
	if err == nil {
		e.OutMsgDescr, err = cell.ToCell(out)
	}
	if err == nil {
		e.AccountBlocks, err = cell.ToCell(accounts)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (e *BlockExtra) ReadInMsgDescr() (*InMsgDescr, error) {
	return cell.LoadCell[*InMsgDescr](e.InMsgDescr, (*InMsgDescr)(nil))
}

func (e *BlockExtra) ReadOutMsgDescr() (*OutMsgDescr, error) {
	return cell.LoadCell[*OutMsgDescr](e.OutMsgDescr, (*OutMsgDescr)(nil))
}

func (e *BlockExtra) ReadAccountBlocks() (*ShardAccountBlocks, error) {
	return cell.LoadCell[*ShardAccountBlocks](e.AccountBlocks, (*ShardAccountBlocks)(nil))
}

func (e *BlockExtra) StoreTo(b *cell.Builder) error {
	err := b.StoreUint32(0x4a33f6fd)
	if err == nil {
		err = b.StoreRef(e.InMsgDescr)
	}
	if err == nil {
		err = b.StoreRef(e.OutMsgDescr)
	}
	if err == nil {
		err = b.StoreRef(e.AccountBlocks)
	}
	if err == nil {
		err = b.StoreHash(e.RandSeed)
	}
	if err == nil {
		err = b.StoreHash(e.CreatedBy)
	}
	if err == nil {
		err = b.StoreMaybeRef(e.Custom)
	}
	return err
}

func (*BlockExtra) LoadFrom(s *cell.Slice) (*BlockExtra, error) {
	e := new(BlockExtra)
	err := s.CheckTag(0x4a33f6fd, 32, "block_extra")
	if err == nil {
		e.InMsgDescr, err = s.LoadRef()
	}
	if err == nil {
		e.OutMsgDescr, err = s.LoadRef()
	}
	if err == nil {
		e.AccountBlocks, err = s.LoadRef()
	}
	if err == nil {
		e.RandSeed, err = s.LoadHash()
	}
	if err == nil {
		e.CreatedBy, err = s.LoadHash()
	}
	if err == nil {
		e.Custom, err = s.LoadMaybeRef()
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Block is a shard or masterchain block. The value flow is carried as an
// opaque cell. The state update is usually a Merkle update cell.
//
//	block#11ef55aa global_id:int32
//	  info:^BlockInfo value_flow:^ValueFlow
//	  state_update:^(MERKLE_UPDATE ShardState)
//	  extra:^BlockExtra = Block;
type Block struct {
	GlobalID    int32
	Info        *cell.Cell
	ValueFlow   *cell.Cell
	StateUpdate *cell.Cell
	Extra       *cell.Cell
}

// NewBlock serializes the parts of a block. A nil value flow or state
// update is stored as an empty cell.
func NewBlock(globalID int32, info *BlockInfo, valueFlow, stateUpdate *cell.Cell, extra *BlockExtra) (*Block, error) {
	b := &Block{GlobalID: globalID, ValueFlow: valueFlow, StateUpdate: stateUpdate}
	if b.ValueFlow == nil {
		b.ValueFlow = cell.Empty()
	}
	if b.StateUpdate == nil {
		b.StateUpdate = cell.Empty()
	}

	var err error
	b.Info, err = cell.ToCell(info)
	if err == nil {
		b.Extra, err = cell.ToCell(extra)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ReadInfo decodes the block info.
func (b *Block) ReadInfo() (*BlockInfo, error) {
	return cell.LoadCell[*BlockInfo](b.Info, (*BlockInfo)(nil))
}

// ReadExtra decodes the block extra.
func (b *Block) ReadExtra() (*BlockExtra, error) {
	return cell.LoadCell[*BlockExtra](b.Extra, (*BlockExtra)(nil))
}

// Hash returns the representation hash of the block cell, the block's
// root hash.
func (b *Block) Hash() (cell.Hash, error) {
	c, err := cell.ToCell(b)
	if err != nil {
		return cell.Hash{}, err
	}
	return c.ReprHash(), nil
}

func (b *Block) StoreTo(bld *cell.Builder) error {
	err := bld.StoreUint32(0x11ef55aa)
	if err == nil {
		err = bld.StoreInt(int64(b.GlobalID), 32)
	}
	for _, r := range []*cell.Cell{b.Info, b.ValueFlow, b.StateUpdate, b.Extra} {
		if err == nil {
			err = bld.StoreRef(r)
		}
	}
	return err
}

func (*Block) LoadFrom(s *cell.Slice) (*Block, error) {
	b := new(Block)
	err := s.CheckTag(0x11ef55aa, 32, "block")
	if err != nil {
		return nil, err
	}
	id, err := s.LoadInt(32)
	if err != nil {
		return nil, err
	}
	b.GlobalID = int32(id)
	for _, r := range []**cell.Cell{&b.Info, &b.ValueFlow, &b.StateUpdate, &b.Extra} {
		if err == nil {
			*r, err = s.LoadRef()
		}
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// LoadBlock decodes a block cell.
func LoadBlock(c *cell.Cell) (*Block, error) {
	return cell.LoadCell[*Block](c, (*Block)(nil))
}
