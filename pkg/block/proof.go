// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package block

import (
	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
	"gitlab.com/accumulatenetwork/blockcells/pkg/merkle"
)

func wrongProof(cause error, format string, args ...interface{}) error {
	return errors.WrongMerkleProof.Skip(1).WithCauseAndFormat(cause, format, args...)
}

// CheckBlockInfoProof verifies that a proof hash is the given block hash and
// returns the block's info.
func CheckBlockInfoProof(block *Block, proofHash, blockHash cell.Hash) (*BlockInfo, error) {
	if proofHash != blockHash {
		return nil, wrongProof(errors.HashMismatch.WithFormat("proof hash %v, block hash %v", proofHash, blockHash),
			"proof hash is not equal to the given block hash")
	}
	info, err := block.ReadInfo()
	if err != nil {
		return nil, wrongProof(err, "extract block info from proof")
	}
	return info, nil
}

func readProofBlock(proof *merkle.Proof) (*Block, error) {
	block, err := LoadBlock(proof.Virtualize())
	if err != nil {
		return nil, wrongProof(err, "extract block from proof")
	}
	return block, nil
}

func readProofExtra(block *Block) (*BlockExtra, error) {
	extra, err := block.ReadExtra()
	if err != nil {
		return nil, wrongProof(err, "extract block extra from proof")
	}
	return extra, nil
}

// CheckTransactionProof verifies that the transaction is part of the block
// with the given root hash. The proof must include the block info and the
// path to the transaction's root cell.
func CheckTransactionProof(proof *merkle.Proof, tr *Transaction, blockID cell.Hash) error {
	block, err := readProofBlock(proof)
	if err != nil {
		return err
	}
	info, err := CheckBlockInfoProof(block, proof.Hash, blockID)
	if err != nil {
		return err
	}

	if !info.Shard.ContainsAccount(tr.AccountAddr) {
		return wrongProof(errors.WrongShard.WithFormat("account %v is not in shard %v", tr.AccountAddr, info.Shard),
			"account address in transaction belongs to another shardchain")
	}
	if tr.LT < info.StartLT || tr.LT > info.EndLT {
		return wrongProof(errors.OutOfRange.WithFormat("logical time %d is not in [%d, %d]", tr.LT, info.StartLT, info.EndLT),
			"transaction's logical time doesn't belong to block's logical time interval")
	}

	extra, err := readProofExtra(block)
	if err != nil {
		return err
	}
	blocks, err := extra.ReadAccountBlocks()
	if err != nil {
		return wrongProof(err, "extract account blocks from proof")
	}
	ab, err := blocks.Get(tr.AccountAddr)
	if err != nil {
		return wrongProof(err, "extract account block from proof")
	}
	if ab == nil {
		return wrongProof(errors.NotFound.WithFormat("account %v", tr.AccountAddr), "no account block in proof")
	}

	c, err := ab.Transaction(tr.LT)
	if err != nil {
		return wrongProof(err, "extract transaction from dictionary in proof")
	}
	if c == nil {
		return wrongProof(errors.NotFound.WithFormat("transaction %d", tr.LT), "no transaction in proof")
	}
	h, err := tr.Hash()
	if err != nil {
		return errors.UnknownError.Wrap(err)
	}
	if c.ReprHash() != h {
		return wrongProof(errors.HashMismatch.WithFormat("proof has %v, transaction has %v", c.ReprHash(), h),
			"wrong transaction's hash in proof")
	}
	return nil
}

// checkTransactionID verifies the claimed transaction of a message against
// the transaction cell found in the proof. Either may be absent, but not
// only one of them.
func checkTransactionID(given *cell.Hash, tr *cell.Cell) error {
	switch {
	case given == nil && tr != nil:
		return wrongProof(errors.NotFound.With("no transaction id given"),
			"invalid transaction id: none is passed, but the transaction exists in a block")
	case given != nil && tr == nil:
		return wrongProof(errors.NotFound.WithFormat("transaction %v", *given),
			"invalid transaction id: it is passed, but the transaction doesn't exist in a block")
	case given == nil:
		return nil
	}
	if h := tr.ReprHash(); h != *given {
		return wrongProof(errors.HashMismatch.WithFormat("proof has %v, given %v", h, *given), "invalid transaction id")
	}
	return nil
}

// CheckMessageProof verifies that the message is imported or exported by
// the block with the given root hash, and that it belongs to the given
// transaction. The inbound descriptor is tried first; if it cannot be read
// or does not hold the message, the outbound descriptor is used.
func CheckMessageProof(proof *merkle.Proof, msg *Message, blockID cell.Hash, trID *cell.Hash) error {
	block, err := readProofBlock(proof)
	if err != nil {
		return err
	}
	_, err = CheckBlockInfoProof(block, proof.Hash, blockID)
	if err != nil {
		return err
	}
	extra, err := readProofExtra(block)
	if err != nil {
		return err
	}

	msgHash, err := msg.Hash()
	if err != nil {
		return errors.UnknownError.Wrap(err)
	}

	if in, err := extra.ReadInMsgDescr(); err == nil {
		if m, err := in.Get(msgHash); err == nil && m != nil {
			err = checkTransactionID(trID, m.Transaction)
			if err != nil {
				return err
			}
			c, err := m.MessageCell()
			if err != nil {
				return wrongProof(err, "extract message from in message")
			}
			if c.ReprHash() != msgHash {
				return wrongProof(errors.HashMismatch.WithFormat("proof has %v, message has %v", c.ReprHash(), msgHash),
					"wrong message's hash in proof")
			}
			return nil
		}
	}

	out, err := extra.ReadOutMsgDescr()
	if err != nil {
		return wrongProof(err, "extract out msg descr from proof")
	}
	m, err := out.Get(msgHash)
	if err != nil {
		return wrongProof(err, "extract out message from proof")
	}
	if m == nil {
		return wrongProof(errors.NotFound.WithFormat("message %v", msgHash), "no message in proof")
	}
	h, err := m.MessageHash()
	if err != nil {
		return wrongProof(err, "extract message from out message")
	}
	err = checkTransactionID(trID, m.Transaction)
	if err != nil {
		return err
	}
	if h != msgHash {
		return wrongProof(errors.HashMismatch.WithFormat("proof has %v, message has %v", h, msgHash),
			"wrong message's hash in proof")
	}
	return nil
}

// CheckAccountProof verifies that the account is part of the shard state
// the proof was created from, and returns the block the state belongs to.
// The proof must include the path to the account's root cell.
func CheckAccountProof(proof *merkle.Proof, acc *Account) (*BlockSeqNoAndShard, error) {
	if acc.None {
		return nil, errors.InvalidData.With("account can't be none")
	}

	ss, err := LoadShardState(proof.Virtualize())
	if err != nil {
		return nil, wrongProof(err, "extract shard state from proof")
	}
	accounts, err := ss.ReadAccounts()
	if err != nil {
		return nil, wrongProof(err, "extract accounts dict from proof")
	}

	sa, err := accounts.Get(acc.Addr.Address)
	if err != nil {
		return nil, wrongProof(err, "extract account from proof")
	}
	if sa == nil {
		return nil, wrongProof(errors.NotFound.WithFormat("account %v", acc.Addr), "no account in proof")
	}
	h, err := acc.Hash()
	if err != nil {
		return nil, errors.UnknownError.Wrap(err)
	}
	if sa.Account.ReprHash() != h {
		return nil, wrongProof(errors.HashMismatch.WithFormat("proof has %v, account has %v", sa.Account.ReprHash(), h),
			"wrong account's hash in proof")
	}
	return &BlockSeqNoAndShard{SeqNo: ss.SeqNo, VertSeqNo: ss.VertSeqNo, Shard: ss.Shard}, nil
}
