// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package block

import (
	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
	"gitlab.com/accumulatenetwork/blockcells/pkg/dict"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

// AccountStatus is the status of an account before or after a transaction.
//
//	acc_state_uninit$00 acc_state_frozen$01 acc_state_active$10 acc_state_nonexist$11
type AccountStatus uint8

const (
	AccStateUninit AccountStatus = iota
	AccStateFrozen
	AccStateActive
	AccStateNonexist
)

// HashUpdate records the hashes of a value before and after a change.
//
//	update_hashes#72 {X:Type} old_hash:bits256 new_hash:bits256 = HASH_UPDATE X;
type HashUpdate struct {
	OldHash cell.Hash
	NewHash cell.Hash
}

func (h HashUpdate) StoreTo(b *cell.Builder) error {
	err := b.StoreUint8(0x72)
	if err == nil {
		err = b.StoreHash(h.OldHash)
	}
	if err == nil {
		err = b.StoreHash(h.NewHash)
	}
	return err
}

func (HashUpdate) LoadFrom(s *cell.Slice) (HashUpdate, error) {
	var h HashUpdate
	err := s.CheckTag(0x72, 8, "update_hashes")
	if err == nil {
		h.OldHash, err = s.LoadHash()
	}
	if err == nil {
		h.NewHash, err = s.LoadHash()
	}
	return h, err
}

// Transaction is a transaction of an account. The description is carried
// as an opaque cell.
//
//	transaction$0111 account_addr:bits256 lt:uint64 prev_trans_hash:bits256
//	  prev_trans_lt:uint64 now:uint32 outmsg_cnt:uint15
//	  orig_status:AccountStatus end_status:AccountStatus
//	  ^[ in_msg:(Maybe ^(Message Any)) out_msgs:(HashmapE 15 ^(Message Any)) ]
//	  total_fees:CurrencyCollection state_update:^(HASH_UPDATE Account)
//	  description:^TransactionDescr = Transaction;
type Transaction struct {
	AccountAddr   cell.Hash
	LT            uint64
	PrevTransHash cell.Hash
	PrevTransLT   uint64
	Now           uint32
	OrigStatus    AccountStatus
	EndStatus     AccountStatus
	InMsg         *cell.Cell
	TotalFees     CurrencyCollection
	StateUpdate   HashUpdate
	Description   *cell.Cell

	outMsgs dict.Hashmap
	outCnt  uint16
}

func (t *Transaction) outMsgMap() dict.Hashmap {
	return dict.HashmapFromRoot(15, t.outMsgs.Root())
}

// AddOutMsg appends an outbound message.
func (t *Transaction) AddOutMsg(msg *cell.Cell) error {
	if t.outCnt >= 1<<15-1 {
		return errors.OutOfRange.With("too many outbound messages")
	}
	h := t.outMsgMap()
	err := h.SetRef(dict.Key(uint64(t.outCnt), 15), msg)
	if err != nil {
		return err
	}
	t.outMsgs = h
	t.outCnt++
	return nil
}

// OutMsgCount returns the number of outbound messages.
func (t *Transaction) OutMsgCount() int { return int(t.outCnt) }

// OutMsg returns the i'th outbound message cell, or nil.
func (t *Transaction) OutMsg(i int) (*cell.Cell, error) {
	h := t.outMsgMap()
	return h.GetRef(dict.Key(uint64(i), 15))
}

// Hash returns the representation hash of the transaction cell.
func (t *Transaction) Hash() (cell.Hash, error) {
	c, err := cell.ToCell(t)
	if err != nil {
		return cell.Hash{}, err
	}
	return c.ReprHash(), nil
}

func (t *Transaction) StoreTo(b *cell.Builder) error {
	msgs := cell.NewBuilder()
	err := msgs.StoreMaybeRef(t.InMsg)
	if err == nil {
		err = t.outMsgMap().StoreTo(msgs)
	}
	if err != nil {
		return err
	}

	desc := t.Description
	if desc == nil {
		desc = cell.Empty()
	}

	err = b.StoreUint(0b0111, 4)
	if err == nil {
		err = b.StoreHash(t.AccountAddr)
	}
	if err == nil {
		err = b.StoreUint64(t.LT)
	}
	if err == nil {
		err = b.StoreHash(t.PrevTransHash)
	}
	if err == nil {
		err = b.StoreUint64(t.PrevTransLT)
	}
	if err == nil {
		err = b.StoreUint32(t.Now)
	}
	if err == nil {
		err = b.StoreUint(uint64(t.outCnt), 15)
	}
	if err == nil {
		err = b.StoreUint(uint64(t.OrigStatus), 2)
	}
	if err == nil {
		err = b.StoreUint(uint64(t.EndStatus), 2)
	}
	if err == nil {
		err = b.StoreAsRef(builderValue{msgs})
	}
	if err == nil {
		err = t.TotalFees.StoreTo(b)
	}
	if err == nil {
		err = b.StoreAsRef(t.StateUpdate)
	}
	if err == nil {
		err = b.StoreRef(desc)
	}
	return err
}

func (*Transaction) LoadFrom(s *cell.Slice) (*Transaction, error) {
	t := new(Transaction)
	err := s.CheckTag(0b0111, 4, "transaction")
	if err == nil {
		t.AccountAddr, err = s.LoadHash()
	}
	if err == nil {
		t.LT, err = s.LoadUint64()
	}
	if err == nil {
		t.PrevTransHash, err = s.LoadHash()
	}
	if err == nil {
		t.PrevTransLT, err = s.LoadUint64()
	}
	if err == nil {
		t.Now, err = s.LoadUint32()
	}
	var cnt, orig, end uint64
	if err == nil {
		cnt, err = s.LoadUint(15)
	}
	if err == nil {
		orig, err = s.LoadUint(2)
	}
	if err == nil {
		end, err = s.LoadUint(2)
	}
	if err != nil {
		return nil, err
	}
	t.outCnt, t.OrigStatus, t.EndStatus = uint16(cnt), AccountStatus(orig), AccountStatus(end)

	msgs, err := s.LoadRefSlice()
	if err != nil {
		return nil, err
	}
	t.InMsg, err = msgs.LoadMaybeRef()
	if err == nil {
		t.outMsgs, err = dict.LoadHashmapE(msgs, 15)
	}
	if err == nil {
		err = msgs.EnsureEmpty()
	}
	if err != nil {
		return nil, errors.InvalidData.WithFormat("load transaction messages: %w", err)
	}

	t.TotalFees, err = t.TotalFees.LoadFrom(s)
	if err != nil {
		return nil, err
	}
	up, err := s.LoadRef()
	if err != nil {
		return nil, err
	}
	t.StateUpdate, err = cell.LoadCell[HashUpdate](up, HashUpdate{})
	if err != nil {
		return nil, err
	}
	t.Description, err = s.LoadRef()
	if err != nil {
		return nil, err
	}
	return t, nil
}

// LoadTransaction decodes a transaction cell.
func LoadTransaction(c *cell.Cell) (*Transaction, error) {
	return cell.LoadCell[*Transaction](c, (*Transaction)(nil))
}

// builderValue stores the contents of a builder.
type builderValue struct{ b *cell.Builder }

func (v builderValue) StoreTo(b *cell.Builder) error { return b.StoreBuilder(v.b) }

// AccountBlock holds the transactions of one account in a block, keyed by
// logical time and augmented with their total fees.
//
//	acc_trans#5 account_addr:bits256
//	  transactions:(HashmapAug 64 ^Transaction CurrencyCollection)
//	  state_update:^(HASH_UPDATE Account) = AccountBlock;
//
// The transactions are stored as a HashmapAugE so that an account block
// may be empty while it is being assembled.
type AccountBlock struct {
	AccountAddr  cell.Hash
	Transactions dict.AugHashmap[CurrencyCollection]
	StateUpdate  HashUpdate
}

func NewAccountBlock(addr cell.Hash) *AccountBlock {
	return &AccountBlock{
		AccountAddr:  addr,
		Transactions: dict.NewAugHashmap[CurrencyCollection](64),
	}
}

// AddTransaction adds a transaction of the account.
func (a *AccountBlock) AddTransaction(t *Transaction) error {
	if t.AccountAddr != a.AccountAddr {
		return errors.InvalidArgument.WithFormat("transaction of %v added to the block of %v", t.AccountAddr, a.AccountAddr)
	}
	c, err := cell.ToCell(t)
	if err != nil {
		return err
	}
	return a.Transactions.SetRef(dict.Key(t.LT, 64), c, t.TotalFees)
}

// Transaction returns the transaction cell with the given logical time, or
// nil.
func (a *AccountBlock) Transaction(lt uint64) (*cell.Cell, error) {
	s, err := a.Transactions.Get(dict.Key(lt, 64))
	if err != nil || s == nil {
		return nil, err
	}
	return s.LoadRef()
}

// Aug returns the total fees of the transactions.
func (a *AccountBlock) Aug() (CurrencyCollection, error) {
	return a.Transactions.RootExtra(), nil
}

func (a *AccountBlock) StoreTo(b *cell.Builder) error {
	err := b.StoreUint(5, 4)
	if err == nil {
		err = b.StoreHash(a.AccountAddr)
	}
	if err == nil {
		err = a.Transactions.StoreTo(b)
	}
	if err == nil {
		err = b.StoreAsRef(a.StateUpdate)
	}
	return err
}

func (*AccountBlock) LoadFrom(s *cell.Slice) (*AccountBlock, error) {
	a := new(AccountBlock)
	err := s.CheckTag(5, 4, "acc_trans")
	if err == nil {
		a.AccountAddr, err = s.LoadHash()
	}
	if err == nil {
		a.Transactions, err = dict.LoadAugHashmapE[CurrencyCollection](s, 64)
	}
	if err != nil {
		return nil, err
	}
	up, err := s.LoadRef()
	if err != nil {
		return nil, err
	}
	a.StateUpdate, err = cell.LoadCell[HashUpdate](up, HashUpdate{})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ShardAccountBlocks holds the account blocks of a block by account
// address, augmented with their total fees.
//
//	_ (HashmapAugE 256 AccountBlock CurrencyCollection) = ShardAccountBlocks;
type ShardAccountBlocks struct {
	m dict.AugHashmap[CurrencyCollection]
}

func NewShardAccountBlocks() *ShardAccountBlocks {
	return &ShardAccountBlocks{dict.NewAugHashmap[CurrencyCollection](256)}
}

// Add adds or replaces the block of an account.
func (a *ShardAccountBlocks) Add(ab *AccountBlock) error {
	return a.m.SetAugmented(dict.HashKey(ab.AccountAddr), ab)
}

// Get returns the block of the given account, or nil.
func (a *ShardAccountBlocks) Get(addr cell.Hash) (*AccountBlock, error) {
	s, err := a.m.Get(dict.HashKey(addr))
	if err != nil || s == nil {
		return nil, err
	}
	return cell.Load[*AccountBlock](s, (*AccountBlock)(nil))
}

// TotalFees returns the fees of all transactions.
func (a *ShardAccountBlocks) TotalFees() CurrencyCollection { return a.m.RootExtra() }

func (a *ShardAccountBlocks) StoreTo(b *cell.Builder) error { return a.m.StoreTo(b) }

func (*ShardAccountBlocks) LoadFrom(s *cell.Slice) (*ShardAccountBlocks, error) {
	m, err := dict.LoadAugHashmapE[CurrencyCollection](s, 256)
	if err != nil {
		return nil, err
	}
	return &ShardAccountBlocks{m}, nil
}
