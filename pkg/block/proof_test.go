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
	"gitlab.com/accumulatenetwork/blockcells/pkg/merkle"
)

type testBlock struct {
	Root     *cell.Cell
	ID       cell.Hash
	Tr1, Tr2 *Transaction
	InMsg    *Message
	OutMsg   *Message
	OldState *cell.Cell
	NewState *cell.Cell
	Accounts []*Account
}

var (
	accA = addr(0x10)
	accB = addr(0x11)
)

func newState(t testing.TB, seqNo uint32, balA, balB uint64) (*cell.Cell, []*Account) {
	t.Helper()
	accs := []*Account{
		{Addr: MsgAddressInt{Address: accA}, Balance: NewCurrencyCollection(balA), LastTransLT: 110},
		{Addr: MsgAddressInt{Address: accB}, Balance: NewCurrencyCollection(balB), LastTransLT: 120, Status: AccStateActive, StateInit: &StateInit{Code: cell.Empty()}},
	}
	accounts := NewShardAccounts()
	for _, a := range accs {
		require.NoError(t, accounts.Insert(a, cell.Hash{}, a.LastTransLT))
	}
	ss := &ShardStateUnsplit{GlobalID: -239, Shard: ShardIdent{PrefixBits: 1}, SeqNo: seqNo, GenLT: 200}
	require.NoError(t, ss.WriteAccounts(accounts))
	return must(cell.ToCell(ss)), accs
}

func buildBlock(t testing.TB) *testBlock {
	t.Helper()
	b := new(testBlock)

	b.InMsg = &Message{Kind: ExternalIn, Dest: MsgAddressInt{Address: accA}}
	inCell := must(cell.ToCell(b.InMsg))
	b.Tr1 = &Transaction{AccountAddr: accA, LT: 110, InMsg: inCell, TotalFees: NewCurrencyCollection(5)}
	tr1Cell := must(cell.ToCell(b.Tr1))

	b.OutMsg = &Message{Kind: Internal, Src: MsgAddressInt{Address: accB}, Dest: MsgAddressInt{Address: accA}, Value: NewCurrencyCollection(10), CreatedLT: 121}
	outCell := must(cell.ToCell(b.OutMsg))
	env := must(cell.ToCell(&MsgEnvelope{FwdFeeRemaining: NewGrams(2), Message: outCell}))
	b.Tr2 = &Transaction{AccountAddr: accB, LT: 120, TotalFees: NewCurrencyCollection(7)}
	require.NoError(t, b.Tr2.AddOutMsg(outCell))
	tr2Cell := must(cell.ToCell(b.Tr2))

	blocks := NewShardAccountBlocks()
	for _, tr := range []*Transaction{b.Tr1, b.Tr2} {
		ab := NewAccountBlock(tr.AccountAddr)
		require.NoError(t, ab.AddTransaction(tr))
		require.NoError(t, blocks.Add(ab))
	}
	in := NewInMsgDescr()
	require.NoError(t, in.Add(&InMsg{Kind: ImportExt, Message: inCell, Transaction: tr1Cell}))
	out := NewOutMsgDescr()
	require.NoError(t, out.Add(&OutMsg{Kind: ExportNew, Message: env, Transaction: tr2Cell}))
	extra := must(NewBlockExtra(in, out, blocks))

	b.OldState, _ = newState(t, 5, 100, 50)
	b.NewState, b.Accounts = newState(t, 6, 90, 60)
	update := must(merkle.CreateUpdate(b.OldState, b.NewState))

	info := &BlockInfo{SeqNo: 6, Shard: ShardIdent{PrefixBits: 1}, StartLT: 100, EndLT: 200}
	blk := must(NewBlock(-239, info, nil, must(update.Cell()), extra))
	b.Root = must(cell.ToCell(blk))
	b.ID = b.Root.ReprHash()
	return b
}

func proveTransaction(t testing.TB, b *testBlock, tr *Transaction) *merkle.Proof {
	t.Helper()
	usage := cell.NewUsageTree(b.Root)
	blk := must(LoadBlock(usage.Root()))
	must(blk.ReadInfo())
	extra := must(blk.ReadExtra())
	ab := must(must(extra.ReadAccountBlocks()).Get(tr.AccountAddr))
	require.NotNil(t, ab)
	require.NotNil(t, must(ab.Transaction(tr.LT)))
	return must(merkle.CreateProofByUsage(b.Root, usage))
}

func proveMessage(t testing.TB, b *testBlock, msg *Message) *merkle.Proof {
	t.Helper()
	h := must(msg.Hash())
	usage := cell.NewUsageTree(b.Root)
	blk := must(LoadBlock(usage.Root()))
	must(blk.ReadInfo())
	extra := must(blk.ReadExtra())
	if m := must(must(extra.ReadInMsgDescr()).Get(h)); m != nil {
		must(m.MessageCell())
	}
	if m := must(must(extra.ReadOutMsgDescr()).Get(h)); m != nil {
		must(m.MessageHash())
	}
	return must(merkle.CreateProofByUsage(b.Root, usage))
}

func requireProofError(t testing.TB, err error, cause errors.Status) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, errors.WrongMerkleProof)
	require.ErrorIs(t, err, cause)
}

func TestBlockStateUpdate(t *testing.T) {
	b := buildBlock(t)
	blk := must(LoadBlock(b.Root))
	update := must(merkle.LoadUpdate(blk.StateUpdate))
	require.Equal(t, b.OldState.ReprHash(), update.OldHash)
	applied := must(update.Apply(b.OldState))
	require.Equal(t, b.NewState.ReprHash(), applied.ReprHash())
}

func TestCheckTransactionProof(t *testing.T) {
	b := buildBlock(t)

	for _, tr := range []*Transaction{b.Tr1, b.Tr2} {
		proof := proveTransaction(t, b, tr)
		require.NoError(t, CheckTransactionProof(proof, tr, b.ID))

		// Through a bag of cells
		c := must(cell.FromBOC(must(cell.ToBOC(must(proof.Cell())))))
		require.NoError(t, CheckTransactionProof(must(merkle.LoadProof(c)), tr, b.ID))
	}

	proof := proveTransaction(t, b, b.Tr1)
	modify := func(fn func(tr *Transaction)) *Transaction {
		tr := *b.Tr1
		fn(&tr)
		return &tr
	}

	t.Run("WrongBlock", func(t *testing.T) {
		requireProofError(t, CheckTransactionProof(proof, b.Tr1, cell.Hash{1}), errors.HashMismatch)
	})

	t.Run("WrongShard", func(t *testing.T) {
		tr := modify(func(tr *Transaction) { tr.AccountAddr = addr(0x90) })
		requireProofError(t, CheckTransactionProof(proof, tr, b.ID), errors.WrongShard)
	})

	t.Run("OutOfRange", func(t *testing.T) {
		tr := modify(func(tr *Transaction) { tr.LT = 300 })
		requireProofError(t, CheckTransactionProof(proof, tr, b.ID), errors.OutOfRange)
		tr = modify(func(tr *Transaction) { tr.LT = 99 })
		requireProofError(t, CheckTransactionProof(proof, tr, b.ID), errors.OutOfRange)
	})

	t.Run("NoAccountBlock", func(t *testing.T) {
		tr := modify(func(tr *Transaction) { tr.AccountAddr = addr(0x40) })
		requireProofError(t, CheckTransactionProof(proof, tr, b.ID), errors.NotFound)
	})

	t.Run("NoTransaction", func(t *testing.T) {
		tr := modify(func(tr *Transaction) { tr.LT = 111 })
		requireProofError(t, CheckTransactionProof(proof, tr, b.ID), errors.NotFound)
	})

	t.Run("WrongHash", func(t *testing.T) {
		tr := modify(func(tr *Transaction) { tr.Now = 99 })
		requireProofError(t, CheckTransactionProof(proof, tr, b.ID), errors.HashMismatch)
	})

	t.Run("Pruned", func(t *testing.T) {
		usage := cell.NewUsageTree(b.Root)
		must(must(LoadBlock(usage.Root())).ReadInfo())
		proof := must(merkle.CreateProofByUsage(b.Root, usage))
		requireProofError(t, CheckTransactionProof(proof, b.Tr1, b.ID), errors.PrunedCellAccess)
	})
}

func TestCheckBlockInfoProof(t *testing.T) {
	b := buildBlock(t)
	blk := must(LoadBlock(b.Root))

	info, err := CheckBlockInfoProof(blk, b.ID, b.ID)
	require.NoError(t, err)
	require.Equal(t, uint32(6), info.SeqNo)

	_, err = CheckBlockInfoProof(blk, b.ID, cell.Hash{})
	requireProofError(t, err, errors.HashMismatch)
}

func TestCheckMessageProof(t *testing.T) {
	b := buildBlock(t)
	tr1 := must(b.Tr1.Hash())
	tr2 := must(b.Tr2.Hash())

	inProof := proveMessage(t, b, b.InMsg)
	outProof := proveMessage(t, b, b.OutMsg)
	require.NoError(t, CheckMessageProof(inProof, b.InMsg, b.ID, &tr1))
	require.NoError(t, CheckMessageProof(outProof, b.OutMsg, b.ID, &tr2))

	t.Run("NoTransactionID", func(t *testing.T) {
		requireProofError(t, CheckMessageProof(inProof, b.InMsg, b.ID, nil), errors.NotFound)
		requireProofError(t, CheckMessageProof(outProof, b.OutMsg, b.ID, nil), errors.NotFound)
	})

	t.Run("WrongTransactionID", func(t *testing.T) {
		requireProofError(t, CheckMessageProof(inProof, b.InMsg, b.ID, &tr2), errors.HashMismatch)
		requireProofError(t, CheckMessageProof(outProof, b.OutMsg, b.ID, &tr1), errors.HashMismatch)
	})

	t.Run("WrongBlock", func(t *testing.T) {
		requireProofError(t, CheckMessageProof(inProof, b.InMsg, cell.Hash{}, &tr1), errors.HashMismatch)
	})

	t.Run("NoMessage", func(t *testing.T) {
		other := *b.OutMsg
		other.CreatedLT++
		requireProofError(t, CheckMessageProof(outProof, &other, b.ID, &tr2), errors.NotFound)
	})

	t.Run("PrunedDescr", func(t *testing.T) {
		// The descriptor is read but its dictionary root is not
		usage := cell.NewUsageTree(b.Root)
		blk := must(LoadBlock(usage.Root()))
		must(blk.ReadInfo())
		must(must(blk.ReadExtra()).ReadOutMsgDescr())
		proof := must(merkle.CreateProofByUsage(b.Root, usage))
		requireProofError(t, CheckMessageProof(proof, b.OutMsg, b.ID, &tr2), errors.PrunedCellAccess)
	})
}

func TestCheckTransactionID(t *testing.T) {
	tr := cell.Empty()
	h := tr.ReprHash()
	other := cell.Hash{1}

	require.NoError(t, checkTransactionID(nil, nil))
	require.NoError(t, checkTransactionID(&h, tr))
	requireProofError(t, checkTransactionID(nil, tr), errors.NotFound)
	requireProofError(t, checkTransactionID(&h, nil), errors.NotFound)
	requireProofError(t, checkTransactionID(&other, tr), errors.HashMismatch)
}

func TestCheckAccountProof(t *testing.T) {
	b := buildBlock(t)
	prove := func(addr cell.Hash) *merkle.Proof {
		usage := cell.NewUsageTree(b.NewState)
		ss := must(LoadShardState(usage.Root()))
		must(must(ss.ReadAccounts()).Get(addr))
		return must(merkle.CreateProofByUsage(b.NewState, usage))
	}

	for _, acc := range b.Accounts {
		id, err := CheckAccountProof(prove(acc.Addr.Address), acc)
		require.NoError(t, err)
		require.Equal(t, uint32(6), id.SeqNo)
		require.Equal(t, ShardIdent{PrefixBits: 1}, id.Shard)
	}

	proof := prove(accA)

	t.Run("None", func(t *testing.T) {
		_, err := CheckAccountProof(proof, &Account{None: true})
		require.ErrorIs(t, err, errors.InvalidData)
	})

	t.Run("WrongHash", func(t *testing.T) {
		acc := *b.Accounts[0]
		acc.Balance = NewCurrencyCollection(1)
		_, err := CheckAccountProof(proof, &acc)
		requireProofError(t, err, errors.HashMismatch)
	})

	t.Run("NoAccount", func(t *testing.T) {
		acc := *b.Accounts[0]
		acc.Addr.Address = addr(0x40)
		_, err := CheckAccountProof(proof, &acc)
		requireProofError(t, err, errors.NotFound)
	})

	t.Run("PrunedAccount", func(t *testing.T) {
		// The proof of A prunes the branch holding B
		_, err := CheckAccountProof(proof, b.Accounts[1])
		requireProofError(t, err, errors.PrunedCellAccess)
	})
}
