// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package block

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func addr(b ...byte) cell.Hash {
	var h cell.Hash
	copy(h[:], b)
	return h
}

func TestShardContainsAccount(t *testing.T) {
	cases := []struct {
		Name   string
		Shard  ShardIdent
		Addr   cell.Hash
		Result bool
	}{
		{"Full", FullShard(0), addr(0xFF), true},
		{"Left", ShardIdent{PrefixBits: 1, Prefix: 0}, addr(0x7F), true},
		{"Left/Miss", ShardIdent{PrefixBits: 1, Prefix: 0}, addr(0x80), false},
		{"Right", ShardIdent{PrefixBits: 1, Prefix: 1 << 63}, addr(0x80), true},
		{"Deep", ShardIdent{PrefixBits: 12, Prefix: 0xABC << 52}, addr(0xAB, 0xCF), true},
		{"Deep/Miss", ShardIdent{PrefixBits: 12, Prefix: 0xABC << 52}, addr(0xAB, 0xDF), false},
	}
	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			require.Equal(t, c.Result, c.Shard.ContainsAccount(c.Addr))
		})
	}
}

func TestShardIdentStoreLoad(t *testing.T) {
	s := ShardIdent{Workchain: -1, PrefixBits: 4, Prefix: 0xA << 60}
	c := must(cell.ToCell(s))
	require.Equal(t, 2+6+32+64, c.BitLen())
	require.Equal(t, s, must(cell.LoadCell[ShardIdent](c, ShardIdent{})))

	err := ShardIdent{PrefixBits: 61}.StoreTo(cell.NewBuilder())
	require.ErrorIs(t, err, errors.InvalidArgument)
}

func TestGrams(t *testing.T) {
	g := NewGrams(1000)
	c := must(cell.ToCell(g))
	require.Equal(t, 4+16, c.BitLen())
	require.Equal(t, uint64(1000), must(cell.LoadCell[Grams](c, Grams{})).Uint64())

	// Zero is a lone length field
	require.Equal(t, 4, must(cell.ToCell(Grams{})).BitLen())

	sum, err := g.Add(NewGrams(24))
	require.NoError(t, err)
	require.Equal(t, "1024", sum.String())
}

func TestCurrencyCollectionCalc(t *testing.T) {
	a := NewCurrencyCollection(5)
	a.Other = must(a.Other.Set(7, NewVarUInteger32(100)))
	b := NewCurrencyCollection(6)
	b.Other = must(b.Other.Set(7, NewVarUInteger32(1)))
	b.Other = must(b.Other.Set(9, NewVarUInteger32(2)))

	sum, err := a.Calc(b)
	require.NoError(t, err)
	require.Equal(t, uint64(11), sum.Grams.Uint64())
	v, ok, err := sum.Other.Get(7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(101), v.Uint64())
	v, ok, err = sum.Other.Get(9)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(2), v.Uint64())

	loaded := must(cell.LoadCell[CurrencyCollection](must(cell.ToCell(sum)), CurrencyCollection{}))
	require.Equal(t, uint64(11), loaded.Grams.Uint64())
	_, ok, err = loaded.Other.Get(9)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMessageStoreLoad(t *testing.T) {
	body := must(cell.ToCell(NewGrams(42)))
	msg := &Message{
		Kind:      Internal,
		Bounce:    true,
		Src:       MsgAddressInt{Address: addr(1)},
		Dest:      MsgAddressInt{Workchain: -1, Address: addr(2)},
		Value:     NewCurrencyCollection(1000),
		FwdFee:    NewGrams(3),
		CreatedLT: 150,
		CreatedAt: 1700000000,
		Body:      body,
	}
	c := must(cell.ToCell(msg))
	loaded, err := LoadMessage(c)
	require.NoError(t, err)
	require.Equal(t, Internal, loaded.Kind)
	require.True(t, loaded.Bounce)
	require.Equal(t, msg.Dest, loaded.Dest)
	require.Equal(t, uint64(150), loaded.CreatedLT)
	require.Equal(t, body.ReprHash(), loaded.Body.ReprHash())
	require.Equal(t, must(msg.Hash()), must(loaded.Hash()))

	ext := &Message{Kind: ExternalOut, Src: MsgAddressInt{Address: addr(1)}, CreatedLT: 7}
	loaded, err = LoadMessage(must(cell.ToCell(ext)))
	require.NoError(t, err)
	require.Equal(t, ExternalOut, loaded.Kind)
	require.Nil(t, loaded.Body)
}

func TestTransactionStoreLoad(t *testing.T) {
	in := must(cell.ToCell(&Message{Kind: ExternalIn, Dest: MsgAddressInt{Address: addr(1)}}))
	out := must(cell.ToCell(&Message{Kind: ExternalOut, Src: MsgAddressInt{Address: addr(1)}, CreatedLT: 101}))

	tr := &Transaction{AccountAddr: addr(1), LT: 100, Now: 5, EndStatus: AccStateActive, InMsg: in, TotalFees: NewCurrencyCollection(9)}
	require.NoError(t, tr.AddOutMsg(out))
	require.NoError(t, tr.AddOutMsg(out))

	c := must(cell.ToCell(tr))
	loaded, err := LoadTransaction(c)
	require.NoError(t, err)
	require.Equal(t, 2, loaded.OutMsgCount())
	require.Equal(t, out.ReprHash(), must(loaded.OutMsg(1)).ReprHash())
	require.Nil(t, must(loaded.OutMsg(2)))
	require.Equal(t, in.ReprHash(), loaded.InMsg.ReprHash())
	require.Equal(t, AccStateActive, loaded.EndStatus)
	require.Equal(t, c.ReprHash(), must(loaded.Hash()))
}

func TestAccountBlocksFees(t *testing.T) {
	blocks := NewShardAccountBlocks()
	for i, a := range []cell.Hash{addr(0x10), addr(0x20)} {
		ab := NewAccountBlock(a)
		for lt := uint64(1); lt <= 3; lt++ {
			tr := &Transaction{AccountAddr: a, LT: lt, TotalFees: NewCurrencyCollection(lt * uint64(i+1))}
			require.NoError(t, ab.AddTransaction(tr))
		}
		require.Equal(t, uint64(6*(i+1)), must(ab.Aug()).Grams.Uint64())
		require.NoError(t, blocks.Add(ab))
	}
	require.Equal(t, uint64(18), blocks.TotalFees().Grams.Uint64())

	err := NewAccountBlock(addr(1)).AddTransaction(&Transaction{AccountAddr: addr(2)})
	require.ErrorIs(t, err, errors.InvalidArgument)

	loaded := must(cell.LoadCell[*ShardAccountBlocks](must(cell.ToCell(blocks)), (*ShardAccountBlocks)(nil)))
	require.Equal(t, uint64(18), loaded.TotalFees().Grams.Uint64())
	ab := must(loaded.Get(addr(0x20)))
	require.NotNil(t, ab)
	require.Equal(t, uint64(12), must(ab.Aug()).Grams.Uint64())
	require.NotNil(t, must(ab.Transaction(2)))
	require.Nil(t, must(ab.Transaction(4)))
	require.Nil(t, must(loaded.Get(addr(0x30))))
}

func TestMsgDescrFees(t *testing.T) {
	msg := must(cell.ToCell(&Message{Kind: Internal, Dest: MsgAddressInt{Address: addr(1)}}))
	env := must(cell.ToCell(&MsgEnvelope{FwdFeeRemaining: NewGrams(7), Message: msg}))
	tr := must(cell.ToCell(&Transaction{AccountAddr: addr(1)}))

	in := NewInMsgDescr()
	require.NoError(t, in.Add(&InMsg{Kind: ImportImm, Message: env, Transaction: tr, FwdFee: NewGrams(3)}))
	require.Equal(t, uint64(3), in.Fees().FeesCollected.Uint64())
	m := must(in.Get(msg.ReprHash()))
	require.NotNil(t, m)
	require.Equal(t, msg.ReprHash(), must(m.MessageCell()).ReprHash())

	out := NewOutMsgDescr()
	require.NoError(t, out.Add(&OutMsg{Kind: ExportNew, Message: env, Transaction: tr}))
	o := must(out.Get(msg.ReprHash()))
	require.NotNil(t, o)
	require.Equal(t, uint64(7), must(o.Aug()).Grams.Uint64())

	_, err := cell.LoadCell[*InMsg](must(cell.ToCell(&OutMsg{Kind: ExportNew, Message: env, Transaction: tr})), (*InMsg)(nil))
	require.ErrorIs(t, err, errors.InvalidConstructorTag)
}

func TestAccountStoreLoad(t *testing.T) {
	due := NewGrams(4)
	cases := []struct {
		Name    string
		Account *Account
	}{
		{"None", &Account{None: true}},
		{"Uninit", &Account{Addr: MsgAddressInt{Address: addr(1)}, Balance: NewCurrencyCollection(5)}},
		{"Frozen", &Account{Addr: MsgAddressInt{Address: addr(1)}, Status: AccStateFrozen, FrozenHash: addr(9), DuePayment: &due}},
		{"Active", &Account{
			Addr:        MsgAddressInt{Address: addr(1)},
			Used:        StorageUsed{Cells: 3, Bits: 500},
			LastTransLT: 77,
			Status:      AccStateActive,
			StateInit:   &StateInit{SplitDepth: 4, Code: cell.Empty()},
		}},
	}
	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			raw := must(cell.ToCell(c.Account))
			loaded, err := LoadAccount(raw)
			require.NoError(t, err)
			require.Equal(t, c.Account.None, loaded.None)
			require.Equal(t, c.Account.Status, loaded.Status)
			require.Equal(t, raw.ReprHash(), must(loaded.Hash()))
		})
	}
}

func TestShardAccountsBalance(t *testing.T) {
	accounts := NewShardAccounts()
	require.NoError(t, accounts.Insert(&Account{Addr: MsgAddressInt{Address: addr(1)}, Balance: NewCurrencyCollection(10)}, cell.Hash{}, 0))
	require.NoError(t, accounts.Insert(&Account{
		Addr:      MsgAddressInt{Address: addr(2)},
		Balance:   NewCurrencyCollection(20),
		Status:    AccStateActive,
		StateInit: &StateInit{SplitDepth: 3},
	}, cell.Hash{}, 0))

	bal := accounts.Balance()
	require.Equal(t, uint64(30), bal.Balance.Grams.Uint64())
	require.Equal(t, uint8(3), bal.SplitDepth)

	ok, err := accounts.Remove(addr(2))
	require.NoError(t, err)
	require.True(t, ok)
	bal = accounts.Balance()
	require.Equal(t, uint64(10), bal.Balance.Grams.Uint64())
	require.Equal(t, uint8(0), bal.SplitDepth)

	err = accounts.Insert(&Account{None: true}, cell.Hash{}, 0)
	require.ErrorIs(t, err, errors.InvalidArgument)
}

func TestShardStateStoreLoad(t *testing.T) {
	accounts := NewShardAccounts()
	require.NoError(t, accounts.Insert(&Account{Addr: MsgAddressInt{Address: addr(1)}, Balance: NewCurrencyCollection(10)}, cell.Hash{}, 0))

	ss := &ShardStateUnsplit{GlobalID: -239, Shard: FullShard(0), SeqNo: 12, GenLT: 1000}
	require.NoError(t, ss.WriteAccounts(accounts))
	require.Equal(t, uint64(10), ss.TotalBalance.Grams.Uint64())

	loaded, err := LoadShardState(must(cell.ToCell(ss)))
	require.NoError(t, err)
	require.Equal(t, int32(-239), loaded.GlobalID)
	require.Equal(t, uint32(12), loaded.SeqNo)
	require.Equal(t, uint64(10), loaded.TotalBalance.Grams.Uint64())
	sa := must(must(loaded.ReadAccounts()).Get(addr(1)))
	require.NotNil(t, sa)
	require.Equal(t, uint64(10), must(sa.ReadAccount()).Balance.Grams.Uint64())
}

func TestBlockInfoValidation(t *testing.T) {
	_, err := cell.ToCell(&BlockInfo{Flags: 2})
	require.ErrorIs(t, err, errors.InvalidArgument)
	_, err = cell.ToCell(&BlockInfo{NotMaster: true})
	require.ErrorIs(t, err, errors.InvalidArgument)

	info := &BlockInfo{NotMaster: true, MasterRef: cell.Empty(), SeqNo: 3, Shard: FullShard(0), StartLT: 1, EndLT: 2}
	loaded := must(cell.LoadCell[*BlockInfo](must(cell.ToCell(info)), (*BlockInfo)(nil)))
	require.Equal(t, info.SeqNo, loaded.SeqNo)
	require.True(t, loaded.NotMaster)
	require.NotNil(t, loaded.MasterRef)
}
