/*
NAME
  adaptation.go

DESCRIPTION
  Codec for the TS packet adaptation field: presence flags, optional
  PCR/OPCR, splice countdown, private data, and the legal-time-window /
  piecewise-rate / seamless-splice extension.

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

// AdaptationFieldControl selects whether a TS packet carries an
// adaptation field, a payload, or both.
type AdaptationFieldControl uint8

const (
	PayloadOnly               AdaptationFieldControl = 0b01
	AdaptationFieldOnly       AdaptationFieldControl = 0b10
	AdaptationFieldAndPayload AdaptationFieldControl = 0b11
)

// AdaptationFieldControlFromUint8 decodes the 2-bit field. 0b00 is
// reserved for future use and is rejected.
func AdaptationFieldControlFromUint8(n uint8) (AdaptationFieldControl, error) {
	switch n {
	case 0b01, 0b10, 0b11:
		return AdaptationFieldControl(n), nil
	default:
		return 0, errors.Wrap(ErrInvalidInput, "reserved adaptation field control 0b00")
	}
}

func (c AdaptationFieldControl) HasAdaptationField() bool { return c != PayloadOnly }
func (c AdaptationFieldControl) HasPayload() bool          { return c != AdaptationFieldOnly }

// AdaptationField carries timing and housekeeping information separate
// from the TS packet payload.
type AdaptationField struct {
	DiscontinuityIndicator bool
	RandomAccessIndicator  bool
	ESPriorityIndicator    bool
	PCR                    *ClockReference
	OPCR                   *ClockReference
	SpliceCountdown        *int8
	TransportPrivateData   []byte
	Extension              *AdaptationExtensionField
}

// externalSize returns the number of bytes the field occupies on the
// wire, excluding the leading length byte.
func (a *AdaptationField) externalSize() int {
	n := 1 // flag byte
	if a.PCR != nil {
		n += 6
	}
	if a.OPCR != nil {
		n += 6
	}
	if a.SpliceCountdown != nil {
		n++
	}
	if len(a.TransportPrivateData) != 0 {
		n += 1 + len(a.TransportPrivateData) // length byte + data
	}
	if a.Extension != nil {
		n += a.Extension.externalSize()
	}
	return n
}

// ReadAdaptationFieldFrom reads the length-prefixed adaptation field. A
// zero length byte yields (nil, nil): no adaptation field is present.
func ReadAdaptationFieldFrom(r io.Reader) (*AdaptationField, error) {
	length, err := readByte(r)
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}
	br := newBoundedReader(r, int(length))

	flags, err := readByte(br)
	if err != nil {
		return nil, err
	}
	discontinuity := flags&0x80 != 0
	randomAccess := flags&0x40 != 0
	esPriority := flags&0x20 != 0
	pcrFlag := flags&0x10 != 0
	opcrFlag := flags&0x08 != 0
	spliceFlag := flags&0x04 != 0
	privateDataFlag := flags&0x02 != 0
	extensionFlag := flags&0x01 != 0

	a := &AdaptationField{
		DiscontinuityIndicator: discontinuity,
		RandomAccessIndicator:  randomAccess,
		ESPriorityIndicator:    esPriority,
	}

	if pcrFlag {
		pcr, err := ReadPCRFrom(br)
		if err != nil {
			return nil, errors.Wrap(err, "pcr")
		}
		a.PCR = &pcr
	}
	if opcrFlag {
		opcr, err := ReadPCRFrom(br)
		if err != nil {
			return nil, errors.Wrap(err, "opcr")
		}
		a.OPCR = &opcr
	}
	if spliceFlag {
		b, err := readByte(br)
		if err != nil {
			return nil, err
		}
		v := int8(b)
		a.SpliceCountdown = &v
	}
	if privateDataFlag {
		n, err := readByte(br)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, n)
		if err := readFull(br, buf); err != nil {
			return nil, errors.Wrap(err, "transport private data")
		}
		a.TransportPrivateData = buf
	}
	if extensionFlag {
		ext, err := readAdaptationExtensionFrom(br)
		if err != nil {
			return nil, err
		}
		a.Extension = ext
	}
	if err := consumeStuffing(br); err != nil {
		return nil, errors.Wrap(err, "adaptation field stuffing")
	}
	return a, nil
}

// WriteTo writes the adaptation field padded with stuffing to exactly
// fieldLen bytes (excluding the length byte itself).
func (a *AdaptationField) WriteTo(w io.Writer, fieldLen uint8) error {
	if err := writeByte(w, fieldLen); err != nil {
		return err
	}

	var flags byte
	if a.DiscontinuityIndicator {
		flags |= 0x80
	}
	if a.RandomAccessIndicator {
		flags |= 0x40
	}
	if a.ESPriorityIndicator {
		flags |= 0x20
	}
	if a.PCR != nil {
		flags |= 0x10
	}
	if a.OPCR != nil {
		flags |= 0x08
	}
	if a.SpliceCountdown != nil {
		flags |= 0x04
	}
	if len(a.TransportPrivateData) != 0 {
		flags |= 0x02
	}
	if a.Extension != nil {
		flags |= 0x01
	}
	if err := writeByte(w, flags); err != nil {
		return err
	}

	if a.PCR != nil {
		if err := a.PCR.WritePCRTo(w); err != nil {
			return err
		}
	}
	if a.OPCR != nil {
		if err := a.OPCR.WritePCRTo(w); err != nil {
			return err
		}
	}
	if a.SpliceCountdown != nil {
		if err := writeByte(w, byte(*a.SpliceCountdown)); err != nil {
			return err
		}
	}
	if len(a.TransportPrivateData) != 0 {
		if err := writeByte(w, byte(len(a.TransportPrivateData))); err != nil {
			return err
		}
		if _, err := w.Write(a.TransportPrivateData); err != nil {
			return &WriteError{Err: err}
		}
	}
	if a.Extension != nil {
		if err := a.Extension.writeTo(w); err != nil {
			return err
		}
	}

	stuffingLen := int(fieldLen) - a.externalSize()
	if stuffingLen < 0 {
		return errors.Wrap(ErrInvalidInput, "adaptation field does not fit in declared length")
	}
	return writeStuffing(w, stuffingLen)
}

// WriteStuffingAdaptationField emits a pure-stuffing adaptation field
// whose length byte is fieldLen, so it occupies 1+fieldLen bytes on the
// wire; used by the TS writer to absorb leftover free space with no
// real field to carry.
func WriteStuffingAdaptationField(w io.Writer, fieldLen uint8) error {
	if err := writeByte(w, fieldLen); err != nil {
		return err
	}
	if fieldLen == 0 {
		return nil
	}
	if err := writeByte(w, 0); err != nil {
		return err
	}
	return writeStuffing(w, int(fieldLen)-1)
}

// AdaptationExtensionField carries the legal-time-window, piecewise-rate
// and seamless-splice sub-fields.
type AdaptationExtensionField struct {
	LegalTimeWindow *LegalTimeWindow
	PiecewiseRate   *uint32
	SeamlessSplice  *SeamlessSplice
}

func (e *AdaptationExtensionField) externalSize() int {
	n := 2 // length + flags
	if e.LegalTimeWindow != nil {
		n += 2
	}
	if e.PiecewiseRate != nil {
		n += 3
	}
	if e.SeamlessSplice != nil {
		n += 5
	}
	return n
}

func readAdaptationExtensionFrom(r io.Reader) (*AdaptationExtensionField, error) {
	length, err := readByte(r)
	if err != nil {
		return nil, err
	}
	br := newBoundedReader(r, int(length))

	flags, err := readByte(br)
	if err != nil {
		return nil, err
	}
	ltwFlag := flags&0x80 != 0
	rateFlag := flags&0x40 != 0
	spliceFlag := flags&0x20 != 0

	e := &AdaptationExtensionField{}
	if ltwFlag {
		n, err := readUint16(br)
		if err != nil {
			return nil, err
		}
		e.LegalTimeWindow = &LegalTimeWindow{
			IsValid: n&0x8000 != 0,
			Offset:  n & 0x7FFF,
		}
	}
	if rateFlag {
		n, err := readUintN(br, 3)
		if err != nil {
			return nil, err
		}
		rate := uint32(n) & 0x3FFFFFFF
		e.PiecewiseRate = &rate
	}
	if spliceFlag {
		n, err := readUintN(br, 5)
		if err != nil {
			return nil, err
		}
		e.SeamlessSplice = &SeamlessSplice{
			SpliceType:        uint8(n >> 36),
			DTSNextAccessUnit: n & 0x0FFFFFFFFF,
		}
	}
	if err := consumeStuffing(br); err != nil {
		return nil, errors.Wrap(err, "adaptation extension stuffing")
	}
	return e, nil
}

func (e *AdaptationExtensionField) writeTo(w io.Writer) error {
	if err := writeByte(w, byte(e.externalSize()-1)); err != nil {
		return err
	}

	var flags byte
	if e.LegalTimeWindow != nil {
		flags |= 0x80
	}
	if e.PiecewiseRate != nil {
		flags |= 0x40
	}
	if e.SeamlessSplice != nil {
		flags |= 0x20
	}
	if err := writeByte(w, flags); err != nil {
		return err
	}

	if e.LegalTimeWindow != nil {
		var n uint16
		if e.LegalTimeWindow.IsValid {
			n |= 0x8000
		}
		n |= e.LegalTimeWindow.Offset & 0x7FFF
		if err := writeUint16(w, n); err != nil {
			return err
		}
	}
	if e.PiecewiseRate != nil {
		if err := writeUintN(w, uint64(*e.PiecewiseRate&0x3FFFFFFF), 3); err != nil {
			return err
		}
	}
	if e.SeamlessSplice != nil {
		n := uint64(e.SeamlessSplice.SpliceType)<<36 | e.SeamlessSplice.DTSNextAccessUnit&0x0FFFFFFFFF
		if err := writeUintN(w, n, 5); err != nil {
			return err
		}
	}
	return nil
}

// LegalTimeWindow is the LTW adaptation extension sub-field.
type LegalTimeWindow struct {
	IsValid bool
	Offset  uint16 // 15-bit
}

// SeamlessSplice is the seamless-splice adaptation extension sub-field.
type SeamlessSplice struct {
	SpliceType        uint8  // 4-bit
	DTSNextAccessUnit uint64 // 36-bit, timestamp-style marker-bit layout folded into one field
}
