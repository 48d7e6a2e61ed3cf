/*
NAME
  writer.go

DESCRIPTION
  Sequential TS packet writer: serializes a packet's payload, then fits
  it into the fixed 188-byte packet by growing or inserting an
  adaptation field to absorb whatever space the payload does not use.

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
	"bytes"
	"io"

	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"
)

// Writer encodes TsPacket values to a sequential byte stream.
type Writer struct {
	stream io.Writer
	logger logging.Logger
}

// NewWriter returns a Writer over stream, configured by opts.
func NewWriter(stream io.Writer, opts ...WriterOption) *Writer {
	w := &Writer{stream: stream, logger: noopLogger{}}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WritePacket serializes pkt to exactly PacketSize bytes. The declared
// AdaptationFieldControl and PayloadUnitStartIndicator on pkt.Header
// are both recomputed, not taken from the caller: AdaptationFieldControl
// is derived from whether pkt.AdaptationField is set and whether the
// serialized payload leaves free space that must be absorbed as
// stuffing, and PayloadUnitStartIndicator is set iff pkt.Payload is a
// Pat, Pmt, or Pes (never for a Raw continuation, a Null packet, or no
// payload at all).
func (w *Writer) WritePacket(pkt *TsPacket) error {
	var payloadBuf bytes.Buffer
	if pkt.Payload != nil {
		if err := writeTsPayload(&payloadBuf, pkt.Payload); err != nil {
			return err
		}
	}
	payload := payloadBuf.Bytes()
	if len(payload) > PacketSize-4 {
		return errors.Wrap(ErrInvalidInput, "payload exceeds packet capacity")
	}

	header := pkt.Header
	switch pkt.Payload.(type) {
	case *Pat, *Pmt, *Pes:
		header.PayloadUnitStartIndicator = true
	default:
		header.PayloadUnitStartIndicator = false
	}
	af := pkt.AdaptationField

	baseAfSize := 0
	if af != nil {
		baseAfSize = 1 + af.externalSize()
	}
	free := PacketSize - 4 - baseAfSize - len(payload)
	if free < 0 {
		return errors.Wrap(ErrInvalidInput, "adaptation field and payload do not fit in packet")
	}

	haveAf := af != nil || free > 0
	var afFieldLen int
	if haveAf {
		if af != nil {
			afFieldLen = af.externalSize() + free
		} else {
			afFieldLen = free - 1
		}
	}

	switch {
	case haveAf && len(payload) > 0:
		header.AdaptationFieldControl = AdaptationFieldAndPayload
	case haveAf:
		header.AdaptationFieldControl = AdaptationFieldOnly
	default:
		header.AdaptationFieldControl = PayloadOnly
	}

	if err := header.writeTo(w.stream); err != nil {
		return err
	}
	if haveAf {
		if af != nil {
			if err := af.WriteTo(w.stream, uint8(afFieldLen)); err != nil {
				return errors.Wrap(err, "adaptation field")
			}
		} else if err := WriteStuffingAdaptationField(w.stream, uint8(afFieldLen)); err != nil {
			return errors.Wrap(err, "stuffing adaptation field")
		}
	}
	if len(payload) > 0 {
		if _, err := w.stream.Write(payload); err != nil {
			return &WriteError{Err: err}
		}
	}

	w.logger.Debug("wrote ts packet", "pid", header.Pid.String(), "afc", header.AdaptationFieldControl, "payload_len", len(payload))
	return nil
}

func writeTsPayload(w io.Writer, p TsPayload) error {
	switch v := p.(type) {
	case *Pat:
		return v.WriteTo(w)
	case *Pmt:
		return v.WriteTo(w)
	case *Pes:
		if err := v.Header.WriteTo(w, v.PacketLen); err != nil {
			return errors.Wrap(err, "pes header")
		}
		if len(v.Data) == 0 {
			return nil
		}
		if _, err := w.Write(v.Data); err != nil {
			return &WriteError{Err: err}
		}
		return nil
	case *Raw:
		if len(v.Data) == 0 {
			return nil
		}
		if _, err := w.Write(v.Data); err != nil {
			return &WriteError{Err: err}
		}
		return nil
	case *Null, nil:
		return nil
	default:
		return errors.Wrap(ErrUnsupported, "unknown ts payload type")
	}
}
