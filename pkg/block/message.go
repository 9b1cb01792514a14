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

// MessageKind is the constructor of a message header.
type MessageKind int

const (
	// Internal is int_msg_info$0.
	Internal MessageKind = iota

	// ExternalIn is ext_in_msg_info$10.
	ExternalIn

	// ExternalOut is ext_out_msg_info$11.
	ExternalOut
)

func (k MessageKind) String() string {
	switch k {
	case Internal:
		return "internal"
	case ExternalIn:
		return "external inbound"
	case ExternalOut:
		return "external outbound"
	}
	return "unknown"
}

// Message is a message with its header. The fields used depend on the kind.
//
//	int_msg_info$0 ihr_disabled:Bool bounce:Bool bounced:Bool
//	  src:MsgAddressInt dest:MsgAddressInt value:CurrencyCollection
//	  ihr_fee:Grams fwd_fee:Grams created_lt:uint64 created_at:uint32 = CommonMsgInfo;
//	ext_in_msg_info$10 src:MsgAddressExt dest:MsgAddressInt import_fee:Grams = CommonMsgInfo;
//	ext_out_msg_info$11 src:MsgAddressInt dest:MsgAddressExt created_lt:uint64 created_at:uint32 = CommonMsgInfo;
//	message$_ {X:Type} info:CommonMsgInfo init:(Maybe (Either StateInit ^StateInit))
//	  body:(Either X ^X) = Message X;
//
// Messages never carry an init. A non-nil body is stored as a reference.
type Message struct {
	Kind        MessageKind
	IhrDisabled bool
	Bounce      bool
	Bounced     bool
	Src         MsgAddressInt
	Dest        MsgAddressInt
	ExtSrc      MsgAddressExt
	ExtDest     MsgAddressExt
	Value       CurrencyCollection
	IhrFee      Grams
	FwdFee      Grams
	ImportFee   Grams
	CreatedLT   uint64
	CreatedAt   uint32
	Body        *cell.Cell
}

// Hash returns the representation hash of the message cell.
func (m *Message) Hash() (cell.Hash, error) {
	c, err := cell.ToCell(m)
	if err != nil {
		return cell.Hash{}, err
	}
	return c.ReprHash(), nil
}

func (m *Message) StoreTo(b *cell.Builder) error {
	var err error
	store := func(v cell.Serializable) {
		if err == nil {
			err = v.StoreTo(b)
		}
	}
	bit := func(v bool) {
		if err == nil {
			err = b.StoreBit(v)
		}
	}

	switch m.Kind {
	case Internal:
		bit(false)
		bit(m.IhrDisabled)
		bit(m.Bounce)
		bit(m.Bounced)
		store(m.Src)
		store(m.Dest)
		store(m.Value)
		store(m.IhrFee)
		store(m.FwdFee)
		if err == nil {
			err = b.StoreUint64(m.CreatedLT)
		}
		if err == nil {
			err = b.StoreUint32(m.CreatedAt)
		}

	case ExternalIn:
		bit(true)
		bit(false)
		store(m.ExtSrc)
		store(m.Dest)
		store(m.ImportFee)

	case ExternalOut:
		bit(true)
		bit(true)
		store(m.Src)
		store(m.ExtDest)
		if err == nil {
			err = b.StoreUint64(m.CreatedLT)
		}
		if err == nil {
			err = b.StoreUint32(m.CreatedAt)
		}

	default:
		return errors.InvalidArgument.WithFormat("unknown message kind %d", m.Kind)
	}

	// No init
	bit(false)

	if m.Body == nil {
		bit(false)
	} else {
		bit(true)
		if err == nil {
			err = b.StoreRef(m.Body)
		}
	}
	return err
}

func (*Message) LoadFrom(s *cell.Slice) (*Message, error) {
	m := new(Message)
	err := m.loadHeader(s)
	if err != nil {
		return nil, errors.InvalidData.WithFormat("load message header: %w", err)
	}

	init, err := s.LoadBit()
	if err != nil {
		return nil, err
	}
	if init {
		return nil, errors.InvalidData.With("message init is not supported")
	}

	ref, err := s.LoadBit()
	if err != nil {
		return nil, err
	}
	if ref {
		m.Body, err = s.LoadRef()
		return m, err
	}
	if !s.IsEmpty() {
		return nil, errors.InvalidData.With("inline message bodies are not supported")
	}
	return m, nil
}

func (m *Message) loadHeader(s *cell.Slice) error {
	ext, err := s.LoadBit()
	if err != nil {
		return err
	}
	if !ext {
		m.Kind = Internal
		return m.loadInternal(s)
	}

	out, err := s.LoadBit()
	if err != nil {
		return err
	}
	if !out {
		m.Kind = ExternalIn
		m.ExtSrc, err = m.ExtSrc.LoadFrom(s)
		if err == nil {
			m.Dest, err = m.Dest.LoadFrom(s)
		}
		if err == nil {
			m.ImportFee, err = m.ImportFee.LoadFrom(s)
		}
		return err
	}

	m.Kind = ExternalOut
	m.Src, err = m.Src.LoadFrom(s)
	if err == nil {
		m.ExtDest, err = m.ExtDest.LoadFrom(s)
	}
	if err == nil {
		m.CreatedLT, err = s.LoadUint64()
	}
	if err == nil {
		m.CreatedAt, err = s.LoadUint32()
	}
	return err
}

func (m *Message) loadInternal(s *cell.Slice) error {
	var err error
	for _, v := range []*bool{&m.IhrDisabled, &m.Bounce, &m.Bounced} {
		*v, err = s.LoadBit()
		if err != nil {
			return err
		}
	}
	m.Src, err = m.Src.LoadFrom(s)
	if err == nil {
		m.Dest, err = m.Dest.LoadFrom(s)
	}
	if err == nil {
		m.Value, err = m.Value.LoadFrom(s)
	}
	if err == nil {
		m.IhrFee, err = m.IhrFee.LoadFrom(s)
	}
	if err == nil {
		m.FwdFee, err = m.FwdFee.LoadFrom(s)
	}
	if err == nil {
		m.CreatedLT, err = s.LoadUint64()
	}
	if err == nil {
		m.CreatedAt, err = s.LoadUint32()
	}
	return err
}

// LoadMessage decodes a message cell.
func LoadMessage(c *cell.Cell) (*Message, error) {
	return cell.LoadCell[*Message](c, (*Message)(nil))
}

// MsgEnvelope wraps an internal message in transit.
//
//	interm_addr_regular$0 use_dest_bits:(#<= 96) = IntermediateAddress;
//	msg_envelope#4 cur_addr:IntermediateAddress next_addr:IntermediateAddress
//	  fwd_fee_remaining:Grams msg:^(Message Any) = MsgEnvelope;
type MsgEnvelope struct {
	CurAddr         uint8
	NextAddr        uint8
	FwdFeeRemaining Grams
	Message         *cell.Cell
}

func storeIntermAddr(b *cell.Builder, v uint8) error {
	if v > 96 {
		return errors.InvalidArgument.WithFormat("intermediate address uses %d bits", v)
	}
	err := b.StoreBit(false)
	if err != nil {
		return err
	}
	return b.StoreUint(uint64(v), 7)
}

func loadIntermAddr(s *cell.Slice) (uint8, error) {
	err := s.CheckTag(0, 1, "interm_addr_regular")
	if err != nil {
		return 0, err
	}
	v, err := s.LoadUint(7)
	if err != nil {
		return 0, err
	}
	if v > 96 {
		return 0, errors.InvalidData.WithFormat("intermediate address uses %d bits", v)
	}
	return uint8(v), nil
}

func (e *MsgEnvelope) StoreTo(b *cell.Builder) error {
	err := b.StoreUint(4, 4)
	if err == nil {
		err = storeIntermAddr(b, e.CurAddr)
	}
	if err == nil {
		err = storeIntermAddr(b, e.NextAddr)
	}
	if err == nil {
		err = e.FwdFeeRemaining.StoreTo(b)
	}
	if err == nil {
		err = b.StoreRef(e.Message)
	}
	return err
}

func (*MsgEnvelope) LoadFrom(s *cell.Slice) (*MsgEnvelope, error) {
	e := new(MsgEnvelope)
	err := s.CheckTag(4, 4, "msg_envelope")
	if err == nil {
		e.CurAddr, err = loadIntermAddr(s)
	}
	if err == nil {
		e.NextAddr, err = loadIntermAddr(s)
	}
	if err == nil {
		e.FwdFeeRemaining, err = e.FwdFeeRemaining.LoadFrom(s)
	}
	if err == nil {
		e.Message, err = s.LoadRef()
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}
