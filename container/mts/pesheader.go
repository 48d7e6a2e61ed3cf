/*
NAME
  pesheader.go

DESCRIPTION
  Codec for the PES (Packetized Elementary Stream) optional header:
  stream id, flags, and the optional PTS/DTS/ESCR fields that precede
  the elementary stream payload.

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

// PesStartCode is the 3-byte prefix (0x000001) preceding every PES
// packet's stream id.
const PesStartCode = 0x000001

const (
	ptsOnlyCheckBits = 0x2
	ptsDtsCheckBits  = 0x3
)

// PesHeader is the decoded PES optional header: the flags and optional
// timing fields that precede a PES packet's elementary stream data.
type PesHeader struct {
	StreamId                StreamId
	Priority                bool
	DataAlignmentIndicator  bool
	Copyright               bool
	OriginalOrCopy          bool
	PTS                     *Timestamp
	DTS                     *Timestamp
	ESCR                    *ClockReference
}

// OptionalHeaderLen returns the number of bytes occupied by this
// header's flag bytes and optional fields, following the start code,
// stream id and packet length, and preceding the payload. Consumers
// that only know pes_packet_len (as declared on the wire) subtract
// this to recover the elementary stream data length.
func (h *PesHeader) OptionalHeaderLen() int {
	n := 3
	if h.PTS != nil {
		n += 5
	}
	if h.DTS != nil {
		n += 5
	}
	if h.ESCR != nil {
		n += 6
	}
	return n
}


// ReadPesHeaderFrom reads the 6-byte PES packet prologue (start code,
// stream id, packet length) and the optional header that follows it,
// returning the header and the declared pes_packet_len (0 meaning
// "unbounded", permitted only for video streams on the wire).
func ReadPesHeaderFrom(r io.Reader) (*PesHeader, uint16, error) {
	n, err := readUintN(r, 3)
	if err != nil {
		return nil, 0, err
	}
	if n != PesStartCode {
		return nil, 0, errors.Wrapf(ErrInvalidInput, "bad pes start code %#06x", n)
	}
	sid, err := readByte(r)
	if err != nil {
		return nil, 0, err
	}
	streamId := NewStreamId(sid)

	packetLen, err := readUint16(r)
	if err != nil {
		return nil, 0, err
	}

	b0, err := readByte(r)
	if err != nil {
		return nil, 0, err
	}
	if b0&0xC0 != 0x80 {
		return nil, 0, errors.Wrap(ErrInvalidInput, "pes marker bits")
	}
	scramblingControl := (b0 >> 4) & 0x3
	if scramblingControl != 0 {
		return nil, 0, errors.Wrap(ErrUnsupported, "scrambled pes payload")
	}
	priority := b0&0x08 != 0
	dataAlignment := b0&0x04 != 0
	copyright := b0&0x02 != 0
	originalOrCopy := b0&0x01 != 0

	b1, err := readByte(r)
	if err != nil {
		return nil, 0, err
	}
	ptsFlag := b1&0x80 != 0
	dtsFlag := b1&0x40 != 0
	if dtsFlag && !ptsFlag {
		return nil, 0, errors.Wrap(ErrInvalidInput, "pes dts flag set without pts flag")
	}
	escrFlag := b1&0x20 != 0
	if b1&0x1F != 0 {
		return nil, 0, errors.Wrap(ErrUnsupported, "pes es rate, trick mode, copy info, crc or extension flags")
	}

	headerDataLen, err := readByte(r)
	if err != nil {
		return nil, 0, err
	}

	br := newBoundedReader(r, int(headerDataLen))

	h := &PesHeader{
		StreamId:               streamId,
		Priority:               priority,
		DataAlignmentIndicator: dataAlignment,
		Copyright:              copyright,
		OriginalOrCopy:         originalOrCopy,
	}

	if ptsFlag && dtsFlag {
		pts, err := ReadTimestampFrom(br, ptsDtsCheckBits)
		if err != nil {
			return nil, 0, errors.Wrap(err, "pts")
		}
		h.PTS = &pts
		dts, err := ReadTimestampFrom(br, ptsDtsCheckBits)
		if err != nil {
			return nil, 0, errors.Wrap(err, "dts")
		}
		h.DTS = &dts
	} else if ptsFlag {
		pts, err := ReadTimestampFrom(br, ptsOnlyCheckBits)
		if err != nil {
			return nil, 0, errors.Wrap(err, "pts")
		}
		h.PTS = &pts
	}
	if escrFlag {
		escr, err := ReadESCRFrom(br)
		if err != nil {
			return nil, 0, errors.Wrap(err, "escr")
		}
		h.ESCR = &escr
	}
	if err := consumeStuffing(br); err != nil {
		return nil, 0, errors.Wrap(err, "pes header stuffing")
	}

	return h, packetLen, nil
}

// WriteTo writes the PES prologue and optional header, declaring
// packetLen as the pes_packet_len field (0 for an unbounded video
// packet).
func (h *PesHeader) WriteTo(w io.Writer, packetLen uint16) error {
	if err := writeUintN(w, PesStartCode, 3); err != nil {
		return err
	}
	if err := writeByte(w, h.StreamId.Uint8()); err != nil {
		return err
	}
	if err := writeUint16(w, packetLen); err != nil {
		return err
	}

	b0 := byte(0x80)
	if h.Priority {
		b0 |= 0x08
	}
	if h.DataAlignmentIndicator {
		b0 |= 0x04
	}
	if h.Copyright {
		b0 |= 0x02
	}
	if h.OriginalOrCopy {
		b0 |= 0x01
	}
	if err := writeByte(w, b0); err != nil {
		return err
	}

	var b1 byte
	if h.PTS != nil {
		b1 |= 0x80
	}
	if h.DTS != nil {
		b1 |= 0x40
	}
	if h.ESCR != nil {
		b1 |= 0x20
	}
	if err := writeByte(w, b1); err != nil {
		return err
	}

	headerDataLen := h.OptionalHeaderLen() - 3
	if err := writeByte(w, byte(headerDataLen)); err != nil {
		return err
	}

	switch {
	case h.PTS != nil && h.DTS != nil:
		if err := h.PTS.WriteTo(w, ptsDtsCheckBits); err != nil {
			return errors.Wrap(err, "pts")
		}
		if err := h.DTS.WriteTo(w, ptsDtsCheckBits); err != nil {
			return errors.Wrap(err, "dts")
		}
	case h.PTS != nil:
		if err := h.PTS.WriteTo(w, ptsOnlyCheckBits); err != nil {
			return errors.Wrap(err, "pts")
		}
	}
	if h.ESCR != nil {
		if err := h.ESCR.WriteESCRTo(w); err != nil {
			return errors.Wrap(err, "escr")
		}
	}
	return nil
}
