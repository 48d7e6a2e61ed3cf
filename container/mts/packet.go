/*
NAME
  packet.go

DESCRIPTION
  The 188-byte TS packet: its fixed 4-byte header, the TsPayload sum
  type describing what the packet carries, and the header's bit-level
  codec.

AUTHOR
  Saxon Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mts

import (
	"io"

	"github.com/pkg/errors"
)

// PacketSize is the fixed size in bytes of every TS packet.
const PacketSize = 188

// SyncByte is the fixed first byte of every TS packet.
const SyncByte = 0x47

// TsHeader is the fixed 4-byte TS packet header.
type TsHeader struct {
	TransportErrorIndicator    bool
	PayloadUnitStartIndicator  bool
	TransportPriority          bool
	Pid                        Pid
	TransportScramblingControl TransportScramblingControl
	AdaptationFieldControl     AdaptationFieldControl
	ContinuityCounter          ContinuityCounter
}

func readTsHeaderFrom(r io.Reader) (TsHeader, error) {
	sync, err := readByte(r)
	if err != nil {
		return TsHeader{}, err
	}
	if sync != SyncByte {
		return TsHeader{}, errors.Wrapf(ErrInvalidInput, "bad sync byte %#02x", sync)
	}
	n, err := readUint16(r)
	if err != nil {
		return TsHeader{}, err
	}
	tei := n&0x8000 != 0
	pusi := n&0x4000 != 0
	priority := n&0x2000 != 0
	pid, err := NewPid(n & 0x1FFF)
	if err != nil {
		return TsHeader{}, err
	}

	b, err := readByte(r)
	if err != nil {
		return TsHeader{}, err
	}
	tsc, err := TransportScramblingControlFromUint8(b >> 6)
	if err != nil {
		return TsHeader{}, err
	}
	afc, err := AdaptationFieldControlFromUint8((b >> 4) & 0x3)
	if err != nil {
		return TsHeader{}, err
	}
	cc, err := NewContinuityCounter(b & 0xF)
	if err != nil {
		return TsHeader{}, err
	}

	return TsHeader{
		TransportErrorIndicator:    tei,
		PayloadUnitStartIndicator:  pusi,
		TransportPriority:          priority,
		Pid:                        pid,
		TransportScramblingControl: tsc,
		AdaptationFieldControl:     afc,
		ContinuityCounter:          cc,
	}, nil
}

func (h TsHeader) writeTo(w io.Writer) error {
	if err := writeByte(w, SyncByte); err != nil {
		return err
	}
	var n uint16
	if h.TransportErrorIndicator {
		n |= 0x8000
	}
	if h.PayloadUnitStartIndicator {
		n |= 0x4000
	}
	if h.TransportPriority {
		n |= 0x2000
	}
	n |= h.Pid.Uint16()
	if err := writeUint16(w, n); err != nil {
		return err
	}
	b := h.TransportScramblingControl.Uint8()<<6 | uint8(h.AdaptationFieldControl)<<4 | h.ContinuityCounter.Uint8()
	return writeByte(w, b)
}

// TsPayload is the closed set of things a TS packet's payload may
// hold: a Program Association Table, a Program Map Table, the start
// of a PES packet, a continuation of a PES packet already in
// progress, or an empty null packet.
type TsPayload interface {
	MtsPayload()
}

// Pes is a TsPayload holding the start of a PES packet: its header and
// whatever elementary stream bytes fit in this TS packet.
type Pes struct {
	Header    PesHeader
	PacketLen uint16
	Data      []byte
}

func (*Pes) MtsPayload() {}

// Raw is a TsPayload holding a continuation of a PES packet already in
// progress (PayloadUnitStartIndicator clear). The Reader never yields
// Raw for a PID it has not learned; it rejects such payloads with
// ErrInvalidInput.
type Raw struct {
	Data []byte
}

func (*Raw) MtsPayload() {}

// Null is the TsPayload of a null packet (Pid 0x1FFF), carrying no
// meaningful content.
type Null struct{}

func (*Null) MtsPayload() {}

// TsPacket is a single decoded 188-byte TS packet.
type TsPacket struct {
	Header          TsHeader
	AdaptationField *AdaptationField
	Payload         TsPayload
}
