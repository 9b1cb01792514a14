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

// ImportFees is the augmentation of an InMsgDescr.
//
//	import_fees$_ fees_collected:Grams value_imported:CurrencyCollection = ImportFees;
type ImportFees struct {
	FeesCollected Grams
	ValueImported CurrencyCollection
}

func (f ImportFees) Calc(o ImportFees) (ImportFees, error) {
	var r ImportFees
	var err error
	r.FeesCollected, err = f.FeesCollected.Add(o.FeesCollected)
	if err != nil {
		return r, err
	}
	r.ValueImported, err = f.ValueImported.Calc(o.ValueImported)
	return r, err
}

func (f ImportFees) StoreTo(b *cell.Builder) error {
	err := f.FeesCollected.StoreTo(b)
	if err != nil {
		return err
	}
	return f.ValueImported.StoreTo(b)
}

func (ImportFees) LoadFrom(s *cell.Slice) (ImportFees, error) {
	var f ImportFees
	var err error
	f.FeesCollected, err = f.FeesCollected.LoadFrom(s)
	if err != nil {
		return f, err
	}
	f.ValueImported, err = f.ValueImported.LoadFrom(s)
	return f, err
}

// InMsgKind is the constructor of an InMsg.
type InMsgKind uint8

const (
	// ImportExt is msg_import_ext$000.
	ImportExt InMsgKind = 0b000

	// ImportImm is msg_import_imm$011.
	ImportImm InMsgKind = 0b011
)

// InMsg describes how a message entered a block.
//
//	msg_import_ext$000 msg:^(Message Any) transaction:^Transaction = InMsg;
//	msg_import_imm$011 in_msg:^MsgEnvelope transaction:^Transaction fwd_fee:Grams = InMsg;
type InMsg struct {
	Kind InMsgKind

	// Message is the message cell for ImportExt and the envelope cell for
	// ImportImm.
	Message     *cell.Cell
	Transaction *cell.Cell
	FwdFee      Grams
}

// MessageCell returns the cell of the imported message.
func (m *InMsg) MessageCell() (*cell.Cell, error) {
	if m.Kind == ImportExt {
		return m.Message, nil
	}
	env, err := cell.LoadCell[*MsgEnvelope](m.Message, (*MsgEnvelope)(nil))
	if err != nil {
		return nil, err
	}
	return env.Message, nil
}

// Aug returns the fees collected by importing the message.
func (m *InMsg) Aug() (ImportFees, error) {
	if m.Kind == ImportExt {
		return ImportFees{}, nil
	}
	return ImportFees{FeesCollected: m.FwdFee}, nil
}

func (m *InMsg) StoreTo(b *cell.Builder) error {
	err := b.StoreUint(uint64(m.Kind), 3)
	if err == nil {
		err = b.StoreRef(m.Message)
	}
	if err == nil {
		err = b.StoreRef(m.Transaction)
	}
	if err == nil && m.Kind == ImportImm {
		err = m.FwdFee.StoreTo(b)
	}
	return err
}

func (*InMsg) LoadFrom(s *cell.Slice) (*InMsg, error) {
	tag, err := s.LoadUint(3)
	if err != nil {
		return nil, err
	}
	m := &InMsg{Kind: InMsgKind(tag)}
	switch m.Kind {
	case ImportExt, ImportImm:
	default:
		return nil, errors.InvalidConstructorTag.WithFormat("unsupported InMsg tag %03b", tag)
	}

	m.Message, err = s.LoadRef()
	if err == nil {
		m.Transaction, err = s.LoadRef()
	}
	if err == nil && m.Kind == ImportImm {
		m.FwdFee, err = m.FwdFee.LoadFrom(s)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// OutMsgKind is the constructor of an OutMsg.
type OutMsgKind uint8

const (
	// ExportExt is msg_export_ext$000.
	ExportExt OutMsgKind = 0b000

	// ExportNew is msg_export_new$001.
	ExportNew OutMsgKind = 0b001
)

// OutMsg describes how a message left a block.
//
//	msg_export_ext$000 msg:^(Message Any) transaction:^Transaction = OutMsg;
//	msg_export_new$001 out_msg:^MsgEnvelope transaction:^Transaction = OutMsg;
type OutMsg struct {
	Kind OutMsgKind

	// Message is the message cell for ExportExt and the envelope cell for
	// ExportNew.
	Message     *cell.Cell
	Transaction *cell.Cell
}

// MessageHash returns the hash of the exported message.
func (m *OutMsg) MessageHash() (cell.Hash, error) {
	if m.Kind == ExportExt {
		return m.Message.ReprHash(), nil
	}
	env, err := cell.LoadCell[*MsgEnvelope](m.Message, (*MsgEnvelope)(nil))
	if err != nil {
		return cell.Hash{}, err
	}
	return env.Message.ReprHash(), nil
}

// Aug returns the forwarding fees still held by the exported message.
func (m *OutMsg) Aug() (CurrencyCollection, error) {
	if m.Kind == ExportExt {
		return CurrencyCollection{}, nil
	}
	env, err := cell.LoadCell[*MsgEnvelope](m.Message, (*MsgEnvelope)(nil))
	if err != nil {
		return CurrencyCollection{}, err
	}
	return CurrencyCollection{Grams: env.FwdFeeRemaining}, nil
}

func (m *OutMsg) StoreTo(b *cell.Builder) error {
	err := b.StoreUint(uint64(m.Kind), 3)
	if err == nil {
		err = b.StoreRef(m.Message)
	}
	if err == nil {
		err = b.StoreRef(m.Transaction)
	}
	return err
}

func (*OutMsg) LoadFrom(s *cell.Slice) (*OutMsg, error) {
	tag, err := s.LoadUint(3)
	if err != nil {
		return nil, err
	}
	m := &OutMsg{Kind: OutMsgKind(tag)}
	switch m.Kind {
	case ExportExt, ExportNew:
	default:
		return nil, errors.InvalidConstructorTag.WithFormat("unsupported OutMsg tag %03b", tag)
	}

	m.Message, err = s.LoadRef()
	if err == nil {
		m.Transaction, err = s.LoadRef()
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// InMsgDescr holds the inbound messages of a block by message hash.
//
//	_ (HashmapAugE 256 InMsg ImportFees) = InMsgDescr;
type InMsgDescr struct {
	m dict.AugHashmap[ImportFees]
}

func NewInMsgDescr() *InMsgDescr {
	return &InMsgDescr{dict.NewAugHashmap[ImportFees](256)}
}

// Add adds an inbound message, keyed by the hash of the message.
func (d *InMsgDescr) Add(m *InMsg) error {
	msg, err := m.MessageCell()
	if err != nil {
		return err
	}
	return d.m.SetAugmented(dict.HashKey(msg.ReprHash()), m)
}

// Get returns the inbound message with the given hash, or nil.
func (d *InMsgDescr) Get(hash cell.Hash) (*InMsg, error) {
	s, err := d.m.Get(dict.HashKey(hash))
	if err != nil || s == nil {
		return nil, err
	}
	return cell.Load[*InMsg](s, (*InMsg)(nil))
}

// Fees returns the fees of all inbound messages.
func (d *InMsgDescr) Fees() ImportFees { return d.m.RootExtra() }

func (d *InMsgDescr) StoreTo(b *cell.Builder) error { return d.m.StoreTo(b) }

func (*InMsgDescr) LoadFrom(s *cell.Slice) (*InMsgDescr, error) {
	m, err := dict.LoadAugHashmapE[ImportFees](s, 256)
	if err != nil {
		return nil, err
	}
	return &InMsgDescr{m}, nil
}

// OutMsgDescr holds the outbound messages of a block by message hash.
//
//	_ (HashmapAugE 256 OutMsg CurrencyCollection) = OutMsgDescr;
type OutMsgDescr struct {
	m dict.AugHashmap[CurrencyCollection]
}

func NewOutMsgDescr() *OutMsgDescr {
	return &OutMsgDescr{dict.NewAugHashmap[CurrencyCollection](256)}
}

// Add adds an outbound message, keyed by the hash of the message.
func (d *OutMsgDescr) Add(m *OutMsg) error {
	h, err := m.MessageHash()
	if err != nil {
		return err
	}
	return d.m.SetAugmented(dict.HashKey(h), m)
}

// Get returns the outbound message with the given hash, or nil.
func (d *OutMsgDescr) Get(hash cell.Hash) (*OutMsg, error) {
	s, err := d.m.Get(dict.HashKey(hash))
	if err != nil || s == nil {
		return nil, err
	}
	return cell.Load[*OutMsg](s, (*OutMsg)(nil))
}

func (d *OutMsgDescr) StoreTo(b *cell.Builder) error { return d.m.StoreTo(b) }

func (*OutMsgDescr) LoadFrom(s *cell.Slice) (*OutMsgDescr, error) {
	m, err := dict.LoadAugHashmapE[CurrencyCollection](s, 256)
	if err != nil {
		return nil, err
	}
	return &OutMsgDescr{m}, nil
}
