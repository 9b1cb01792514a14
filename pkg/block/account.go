// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package block

import (
	"github.com/holiman/uint256"
	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
	"gitlab.com/accumulatenetwork/blockcells/pkg/dict"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

// MaxSplitDepth is the largest split depth of an account.
const MaxSplitDepth = 30

// StorageUsed is the storage occupied by an account.
//
//	storage_used$_ cells:(VarUInteger 7) bits:(VarUInteger 7)
//	  public_cells:(VarUInteger 7) = StorageUsed;
type StorageUsed struct {
	Cells       uint64
	Bits        uint64
	PublicCells uint64
}

func (u StorageUsed) StoreTo(b *cell.Builder) error {
	var err error
	for _, v := range []uint64{u.Cells, u.Bits, u.PublicCells} {
		if err == nil {
			err = storeVarUint(b, uint256.NewInt(v), 7)
		}
	}
	return err
}

func (StorageUsed) LoadFrom(s *cell.Slice) (StorageUsed, error) {
	var u StorageUsed
	var err error
	for _, v := range []*uint64{&u.Cells, &u.Bits, &u.PublicCells} {
		var x uint256.Int
		if err == nil {
			x, err = loadVarUint(s, 7)
			*v = x.Uint64()
		}
	}
	return u, err
}

// StateInit is the code and data of an active account. Tick-tock flags and
// libraries are not supported.
//
//	_ split_depth:(Maybe (## 5)) special:(Maybe TickTock)
//	  code:(Maybe ^Cell) data:(Maybe ^Cell)
//	  library:(HashmapE 256 SimpleLib) = StateInit;
type StateInit struct {
	// SplitDepth is zero when absent.
	SplitDepth uint8
	Code       *cell.Cell
	Data       *cell.Cell
}

func (i *StateInit) StoreTo(b *cell.Builder) error {
	if i.SplitDepth > MaxSplitDepth {
		return errors.InvalidArgument.WithFormat("split depth %d", i.SplitDepth)
	}
	var err error
	if i.SplitDepth == 0 {
		err = b.StoreBit(false)
	} else {
		err = b.StoreUint(1<<5|uint64(i.SplitDepth), 6)
	}
	if err == nil {
		err = b.StoreBit(false)
	}
	if err == nil {
		err = b.StoreMaybeRef(i.Code)
	}
	if err == nil {
		err = b.StoreMaybeRef(i.Data)
	}
	if err == nil {
		err = b.StoreBit(false)
	}
	return err
}

func (*StateInit) LoadFrom(s *cell.Slice) (*StateInit, error) {
	i := new(StateInit)
	ok, err := s.LoadBit()
	if err == nil && ok {
		var d uint64
		d, err = s.LoadUint(5)
		i.SplitDepth = uint8(d)
	}
	if err == nil {
		ok, err = s.LoadBit()
		if err == nil && ok {
			err = errors.InvalidData.With("tick-tock accounts are not supported")
		}
	}
	if err == nil {
		i.Code, err = s.LoadMaybeRef()
	}
	if err == nil {
		i.Data, err = s.LoadMaybeRef()
	}
	if err == nil {
		ok, err = s.LoadBit()
		if err == nil && ok {
			err = errors.InvalidData.With("account libraries are not supported")
		}
	}
	if err != nil {
		return nil, err
	}
	return i, nil
}

// Account is the state of an account. The zero value with None set is the
// nonexistent account.
//
//	account_none$0 = Account;
//	account$1 addr:MsgAddressInt storage_stat:StorageInfo
//	  storage:AccountStorage = Account;
//	storage_info$_ used:StorageUsed last_paid:uint32
//	  due_payment:(Maybe Grams) = StorageInfo;
//	account_storage$_ last_trans_lt:uint64
//	  balance:CurrencyCollection state:AccountState = AccountStorage;
//	account_uninit$00 = AccountState;
//	account_active$1 _:StateInit = AccountState;
//	account_frozen$01 state_hash:bits256 = AccountState;
type Account struct {
	None bool

	Addr        MsgAddressInt
	Used        StorageUsed
	LastPaid    uint32
	DuePayment  *Grams
	LastTransLT uint64
	Balance     CurrencyCollection

	// Status is one of AccStateUninit, AccStateActive or AccStateFrozen.
	Status     AccountStatus
	StateInit  *StateInit
	FrozenHash cell.Hash
}

// Hash returns the representation hash of the account cell.
func (a *Account) Hash() (cell.Hash, error) {
	c, err := cell.ToCell(a)
	if err != nil {
		return cell.Hash{}, err
	}
	return c.ReprHash(), nil
}

// Aug returns the split depth and balance of the account.
func (a *Account) Aug() (DepthBalanceInfo, error) {
	if a.None {
		return DepthBalanceInfo{}, nil
	}
	d := DepthBalanceInfo{Balance: a.Balance}
	if a.Status == AccStateActive {
		d.SplitDepth = a.StateInit.SplitDepth
	}
	return d, nil
}

func (a *Account) StoreTo(b *cell.Builder) error {
	if a.None {
		return b.StoreBit(false)
	}

	err := b.StoreBit(true)
	if err == nil {
		err = a.Addr.StoreTo(b)
	}
	if err == nil {
		err = a.Used.StoreTo(b)
	}
	if err == nil {
		err = b.StoreUint32(a.LastPaid)
	}
	if err == nil {
		err = b.StoreBit(a.DuePayment != nil)
	}
	if err == nil && a.DuePayment != nil {
		err = a.DuePayment.StoreTo(b)
	}
	if err == nil {
		err = b.StoreUint64(a.LastTransLT)
	}
	if err == nil {
		err = a.Balance.StoreTo(b)
	}
	if err != nil {
		return err
	}

	switch a.Status {
	case AccStateUninit:
		return b.StoreUint(0b00, 2)
	case AccStateFrozen:
		err = b.StoreUint(0b01, 2)
		if err == nil {
			err = b.StoreHash(a.FrozenHash)
		}
		return err
	case AccStateActive:
		if a.StateInit == nil {
			return errors.InvalidArgument.With("active account has no state init")
		}
		err = b.StoreBit(true)
		if err == nil {
			err = a.StateInit.StoreTo(b)
		}
		return err
	}
	return errors.InvalidArgument.WithFormat("invalid account status %d", a.Status)
}

func (*Account) LoadFrom(s *cell.Slice) (*Account, error) {
	a := new(Account)
	ok, err := s.LoadBit()
	if err != nil {
		return nil, err
	}
	if !ok {
		a.None = true
		return a, nil
	}

	a.Addr, err = a.Addr.LoadFrom(s)
	if err == nil {
		a.Used, err = a.Used.LoadFrom(s)
	}
	if err == nil {
		a.LastPaid, err = s.LoadUint32()
	}
	if err == nil {
		ok, err = s.LoadBit()
	}
	if err == nil && ok {
		var g Grams
		g, err = g.LoadFrom(s)
		a.DuePayment = &g
	}
	if err == nil {
		a.LastTransLT, err = s.LoadUint64()
	}
	if err == nil {
		a.Balance, err = a.Balance.LoadFrom(s)
	}
	if err == nil {
		ok, err = s.LoadBit()
	}
	if err != nil {
		return nil, err
	}

	if ok {
		a.Status = AccStateActive
		a.StateInit, err = cell.Load[*StateInit](s, (*StateInit)(nil))
		if err != nil {
			return nil, err
		}
		return a, nil
	}

	ok, err = s.LoadBit()
	if err != nil {
		return nil, err
	}
	if !ok {
		a.Status = AccStateUninit
		return a, nil
	}
	a.Status = AccStateFrozen
	a.FrozenHash, err = s.LoadHash()
	if err != nil {
		return nil, err
	}
	return a, nil
}

// LoadAccount decodes an account cell.
func LoadAccount(c *cell.Cell) (*Account, error) {
	return cell.LoadCell[*Account](c, (*Account)(nil))
}

// DepthBalanceInfo is the augmentation of ShardAccounts.
//
//	depth_balance$_ split_depth:(#<= 30) balance:CurrencyCollection = DepthBalanceInfo;
type DepthBalanceInfo struct {
	SplitDepth uint8
	Balance    CurrencyCollection
}

// Calc adds the balances and keeps the larger split depth.
func (d DepthBalanceInfo) Calc(o DepthBalanceInfo) (DepthBalanceInfo, error) {
	r := DepthBalanceInfo{SplitDepth: max(d.SplitDepth, o.SplitDepth)}
	var err error
	r.Balance, err = d.Balance.Calc(o.Balance)
	return r, err
}

func (d DepthBalanceInfo) StoreTo(b *cell.Builder) error {
	if d.SplitDepth > MaxSplitDepth {
		return errors.InvalidArgument.WithFormat("split depth %d", d.SplitDepth)
	}
	err := b.StoreUint(uint64(d.SplitDepth), 5)
	if err != nil {
		return err
	}
	return d.Balance.StoreTo(b)
}

func (DepthBalanceInfo) LoadFrom(s *cell.Slice) (DepthBalanceInfo, error) {
	var d DepthBalanceInfo
	v, err := s.LoadUint(5)
	if err != nil {
		return d, err
	}
	if v > MaxSplitDepth {
		return d, errors.InvalidData.WithFormat("split depth %d", v)
	}
	d.SplitDepth = uint8(v)
	d.Balance, err = d.Balance.LoadFrom(s)
	return d, err
}

// ShardAccount is an account with the hash and logical time of its last
// transaction.
//
//	account_descr$_ account:^Account last_trans_hash:bits256
//	  last_trans_lt:uint64 = ShardAccount;
type ShardAccount struct {
	Account       *cell.Cell
	LastTransHash cell.Hash
	LastTransLT   uint64
}

// NewShardAccount serializes the account.
func NewShardAccount(a *Account, lastTransHash cell.Hash, lastTransLT uint64) (*ShardAccount, error) {
	c, err := cell.ToCell(a)
	if err != nil {
		return nil, err
	}
	return &ShardAccount{c, lastTransHash, lastTransLT}, nil
}

// ReadAccount decodes the account.
func (a *ShardAccount) ReadAccount() (*Account, error) {
	return LoadAccount(a.Account)
}

func (a *ShardAccount) Aug() (DepthBalanceInfo, error) {
	acc, err := a.ReadAccount()
	if err != nil {
		return DepthBalanceInfo{}, errors.UnknownError.Wrap(err)
	}
	return acc.Aug()
}

func (a *ShardAccount) StoreTo(b *cell.Builder) error {
	err := b.StoreRef(a.Account)
	if err == nil {
		err = b.StoreHash(a.LastTransHash)
	}
	if err == nil {
		err = b.StoreUint64(a.LastTransLT)
	}
	return err
}

func (*ShardAccount) LoadFrom(s *cell.Slice) (*ShardAccount, error) {
	a := new(ShardAccount)
	var err error
	a.Account, err = s.LoadRef()
	if err == nil {
		a.LastTransHash, err = s.LoadHash()
	}
	if err == nil {
		a.LastTransLT, err = s.LoadUint64()
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ShardAccounts holds the accounts of a shard by address, augmented with
// their balances.
//
//	_ (HashmapAugE 256 ShardAccount DepthBalanceInfo) = ShardAccounts;
type ShardAccounts struct {
	m dict.AugHashmap[DepthBalanceInfo]
}

func NewShardAccounts() *ShardAccounts {
	return &ShardAccounts{dict.NewAugHashmap[DepthBalanceInfo](256)}
}

// Insert adds or replaces an account.
func (a *ShardAccounts) Insert(acc *Account, lastTransHash cell.Hash, lastTransLT uint64) error {
	if acc.None {
		return errors.InvalidArgument.With("cannot insert a nonexistent account")
	}
	sa, err := NewShardAccount(acc, lastTransHash, lastTransLT)
	if err != nil {
		return err
	}
	return a.m.SetAugmented(dict.HashKey(acc.Addr.Address), sa)
}

// Get returns the account with the given address, or nil.
func (a *ShardAccounts) Get(addr cell.Hash) (*ShardAccount, error) {
	s, err := a.m.Get(dict.HashKey(addr))
	if err != nil || s == nil {
		return nil, err
	}
	return cell.Load[*ShardAccount](s, (*ShardAccount)(nil))
}

// Remove removes an account.
func (a *ShardAccounts) Remove(addr cell.Hash) (bool, error) {
	return a.m.Remove(dict.HashKey(addr))
}

// Balance returns the total balance and largest split depth.
func (a *ShardAccounts) Balance() DepthBalanceInfo { return a.m.RootExtra() }

func (a *ShardAccounts) StoreTo(b *cell.Builder) error { return a.m.StoreTo(b) }

func (*ShardAccounts) LoadFrom(s *cell.Slice) (*ShardAccounts, error) {
	m, err := dict.LoadAugHashmapE[DepthBalanceInfo](s, 256)
	if err != nil {
		return nil, err
	}
	return &ShardAccounts{m}, nil
}

// ShardStateUnsplit is the state of a shard. The outbound message queue is
// carried as an opaque cell and the accounts are decoded on demand.
// Libraries, the master reference and the masterchain extra are not
// supported.
//
//	shard_state#9023afe2 global_id:int32 shard_id:ShardIdent
//	  seq_no:uint32 vert_seq_no:# gen_utime:uint32 gen_lt:uint64
//	  min_ref_mc_seqno:uint32 out_msg_queue_info:^OutMsgQueueInfo
//	  before_split:(## 1) accounts:^ShardAccounts
//	  ^[ overload_history:uint64 underload_history:uint64
//	  total_balance:CurrencyCollection
//	  total_validator_fees:CurrencyCollection
//	  libraries:(HashmapE 256 LibDescr)
//	  master_ref:(Maybe BlkMasterInfo) ]
//	  custom:(Maybe ^McStateExtra) = ShardStateUnsplit;
type ShardStateUnsplit struct {
	GlobalID      int32
	Shard         ShardIdent
	SeqNo         uint32
	VertSeqNo     uint32
	GenUtime      uint32
	GenLT         uint64
	MinRefMcSeqNo uint32
	OutMsgQueue   *cell.Cell
	BeforeSplit   bool
	Accounts      *cell.Cell

	OverloadHistory    uint64
	UnderloadHistory   uint64
	TotalBalance       CurrencyCollection
	TotalValidatorFees CurrencyCollection
}

// WriteAccounts serializes the accounts and updates the total balance.
func (s *ShardStateUnsplit) WriteAccounts(a *ShardAccounts) error {
	c, err := cell.ToCell(a)
	if err != nil {
		return err
	}
	s.Accounts = c
	s.TotalBalance = a.Balance().Balance
	return nil
}

// ReadAccounts decodes the accounts.
func (s *ShardStateUnsplit) ReadAccounts() (*ShardAccounts, error) {
	if s.Accounts == nil {
		return NewShardAccounts(), nil
	}
	return cell.LoadCell[*ShardAccounts](s.Accounts, (*ShardAccounts)(nil))
}

func (s *ShardStateUnsplit) StoreTo(b *cell.Builder) error {
	queue, accounts := s.OutMsgQueue, s.Accounts
	if queue == nil {
		queue = cell.Empty()
	}
	if accounts == nil {
		c, err := cell.ToCell(NewShardAccounts())
		if err != nil {
			return err
		}
		accounts = c
	}

	other := cell.NewBuilder()
	err := other.StoreUint64(s.OverloadHistory)
	if err == nil {
		err = other.StoreUint64(s.UnderloadHistory)
	}
	if err == nil {
		err = s.TotalBalance.StoreTo(other)
	}
	if err == nil {
		err = s.TotalValidatorFees.StoreTo(other)
	}
	if err == nil {
		// Libraries and master ref
		err = other.StoreUint(0, 2)
	}
	if err != nil {
		return err
	}

	err = b.StoreUint32(0x9023afe2)
	if err == nil {
		err = b.StoreInt(int64(s.GlobalID), 32)
	}
	if err == nil {
		err = s.Shard.StoreTo(b)
	}
	if err == nil {
		err = b.StoreUint32(s.SeqNo)
	}
	if err == nil {
		err = b.StoreUint32(s.VertSeqNo)
	}
	if err == nil {
		err = b.StoreUint32(s.GenUtime)
	}
	if err == nil {
		err = b.StoreUint64(s.GenLT)
	}
	if err == nil {
		err = b.StoreUint32(s.MinRefMcSeqNo)
	}
	if err == nil {
		err = b.StoreRef(queue)
	}
	if err == nil {
		err = b.StoreBit(s.BeforeSplit)
	}
	if err == nil {
		err = b.StoreRef(accounts)
	}
	if err == nil {
		err = b.StoreAsRef(builderValue{other})
	}
	if err == nil {
		err = b.StoreBit(false)
	}
	return err
}

func (*ShardStateUnsplit) LoadFrom(s *cell.Slice) (*ShardStateUnsplit, error) {
	ss := new(ShardStateUnsplit)
	err := s.CheckTag(0x9023afe2, 32, "shard_state")
	if err != nil {
		return nil, err
	}
	id, err := s.LoadInt(32)
	if err != nil {
		return nil, err
	}
	ss.GlobalID = int32(id)

	ss.Shard, err = ss.Shard.LoadFrom(s)
	if err == nil {
		ss.SeqNo, err = s.LoadUint32()
	}
	if err == nil {
		ss.VertSeqNo, err = s.LoadUint32()
	}
	if err == nil {
		ss.GenUtime, err = s.LoadUint32()
	}
	if err == nil {
		ss.GenLT, err = s.LoadUint64()
	}
	if err == nil {
		ss.MinRefMcSeqNo, err = s.LoadUint32()
	}
	if err == nil {
		ss.OutMsgQueue, err = s.LoadRef()
	}
	if err == nil {
		ss.BeforeSplit, err = s.LoadBit()
	}
	if err == nil {
		ss.Accounts, err = s.LoadRef()
	}
	if err != nil {
		return nil, err
	}

	// The second cell may be pruned in a proof of an account
	other, err := s.LoadRef()
	if err != nil {
		return nil, err
	}
	if !other.IsPruned() {
		err = ss.loadOther(other)
		if err != nil {
			return nil, err
		}
	}

	custom, err := s.LoadBit()
	if err != nil {
		return nil, err
	}
	if custom {
		return nil, errors.InvalidData.With("masterchain state extra is not supported")
	}
	return ss, nil
}

func (s *ShardStateUnsplit) loadOther(c *cell.Cell) error {
	sl, err := c.BeginParse()
	if err != nil {
		return err
	}
	s.OverloadHistory, err = sl.LoadUint64()
	if err == nil {
		s.UnderloadHistory, err = sl.LoadUint64()
	}
	if err == nil {
		s.TotalBalance, err = s.TotalBalance.LoadFrom(sl)
	}
	if err == nil {
		s.TotalValidatorFees, err = s.TotalValidatorFees.LoadFrom(sl)
	}
	var v uint64
	if err == nil {
		v, err = sl.LoadUint(2)
	}
	if err == nil && v != 0 {
		err = errors.InvalidData.With("shard state libraries and master ref are not supported")
	}
	if err == nil {
		err = sl.EnsureEmpty()
	}
	return err
}

// LoadShardState decodes a shard state cell.
func LoadShardState(c *cell.Cell) (*ShardStateUnsplit, error) {
	return cell.LoadCell[*ShardStateUnsplit](c, (*ShardStateUnsplit)(nil))
}
