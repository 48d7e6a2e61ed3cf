/*
NAME
  pmt.go

DESCRIPTION
  Program Map Table: the PSI table (id 0x02) enumerating a program's
  elementary streams, their stream types, and descriptors.

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

// PmtTableID is the fixed table id of a Program Map Table.
const PmtTableID = 0x02

const maxProgramInfoLen = 0x3FF

// Descriptor is a tag-length-value descriptor attached to a PMT's
// program info or to an individual ES info entry.
type Descriptor struct {
	Tag  uint8
	Data []byte
}

func readDescriptorsFrom(b []byte) ([]Descriptor, error) {
	var out []Descriptor
	for len(b) > 0 {
		if len(b) < 2 {
			return nil, errors.Wrap(ErrInvalidInput, "truncated descriptor")
		}
		tag, length := b[0], b[1]
		if len(b) < 2+int(length) {
			return nil, errors.Wrap(ErrInvalidInput, "descriptor length overruns region")
		}
		data := make([]byte, length)
		copy(data, b[2:2+int(length)])
		out = append(out, Descriptor{Tag: tag, Data: data})
		b = b[2+int(length):]
	}
	return out, nil
}

func writeDescriptors(ds []Descriptor) []byte {
	var out []byte
	for _, d := range ds {
		out = append(out, d.Tag, uint8(len(d.Data)))
		out = append(out, d.Data...)
	}
	return out
}

func descriptorsLen(ds []Descriptor) int {
	n := 0
	for _, d := range ds {
		n += 2 + len(d.Data)
	}
	return n
}

// EsInfo describes one elementary stream carried by the program: its
// coding (StreamType), its PID, and any attached descriptors.
type EsInfo struct {
	StreamType  StreamType
	ElementaryPid Pid
	Descriptors []Descriptor
}

// Pmt is the decoded content of a Program Map Table.
type Pmt struct {
	ProgramNum    uint16
	PcrPid        *Pid // nil encodes "none" (wire value 0x1FFF)
	VersionNumber VersionNumber
	ProgramInfo   []Descriptor
	EsInfo        []EsInfo
}

func (*Pmt) MtsPayload() {}

// Descriptor returns the first program-info descriptor with the given
// tag, or (nil, false) if none is present.
func (p *Pmt) Descriptor(tag uint8) ([]byte, bool) {
	for _, d := range p.ProgramInfo {
		if d.Tag == tag {
			return d.Data, true
		}
	}
	return nil, false
}

// SetDescriptor replaces the program-info descriptor with the given
// tag, appending it if not already present.
func (p *Pmt) SetDescriptor(tag uint8, data []byte) {
	for i, d := range p.ProgramInfo {
		if d.Tag == tag {
			p.ProgramInfo[i].Data = data
			return
		}
	}
	p.ProgramInfo = append(p.ProgramInfo, Descriptor{Tag: tag, Data: data})
}

// ReadPmtFrom reads the PSI pointer field, a single PMT table, and its
// CRC-32 trailer.
func ReadPmtFrom(r io.Reader) (*Pmt, error) {
	if err := ReadPointerField(r); err != nil {
		return nil, err
	}
	header, syntax, err := readPsiTableFrom(r)
	if err != nil {
		return nil, err
	}
	if header.TableID != PmtTableID {
		return nil, errors.Wrapf(ErrInvalidInput, "unexpected pmt table id %#02x", header.TableID)
	}
	if header.PrivateBit {
		return nil, errors.Wrap(ErrInvalidInput, "pmt private bit set")
	}
	if syntax == nil {
		return nil, errors.Wrap(ErrInvalidInput, "pmt missing syntax section")
	}
	if syntax.SectionNumber != 0 || syntax.LastSectionNumber != 0 {
		return nil, errors.Wrap(ErrInvalidInput, "pmt spans multiple sections")
	}
	if !syntax.CurrentNextIndicator {
		return nil, errors.Wrap(ErrInvalidInput, "pmt current_next_indicator clear")
	}

	body := syntax.TableData
	if len(body) < 4 {
		return nil, errors.Wrap(ErrInvalidInput, "pmt body truncated")
	}
	n := uint16(body[0])<<8 | uint16(body[1])
	if n&0xE000 != 0xE000 {
		return nil, errors.Wrap(ErrInvalidInput, "pmt pcr pid reserved bits")
	}
	pcrPidRaw := n & 0x1FFF
	var pcrPid *Pid
	if pcrPidRaw != uint16(NullPid) {
		pid, err := NewPid(pcrPidRaw)
		if err != nil {
			return nil, err
		}
		pcrPid = &pid
	}

	n = uint16(body[2])<<8 | uint16(body[3])
	if n&0xF000 != 0xF000 {
		return nil, errors.Wrap(ErrInvalidInput, "pmt program info reserved bits")
	}
	if n&0x0C00 != 0 {
		return nil, errors.Wrap(ErrInvalidInput, "pmt program info unused bits")
	}
	programInfoLen := int(n & 0x03FF)
	body = body[4:]
	if len(body) < programInfoLen {
		return nil, errors.Wrap(ErrInvalidInput, "pmt program info length overruns body")
	}
	programInfo, err := readDescriptorsFrom(body[:programInfoLen])
	if err != nil {
		return nil, errors.Wrap(err, "pmt program info")
	}
	body = body[programInfoLen:]

	var esInfo []EsInfo
	for len(body) > 0 {
		if len(body) < 5 {
			return nil, errors.Wrap(ErrInvalidInput, "truncated es info entry")
		}
		streamType, err := StreamTypeFromUint8(body[0])
		if err != nil {
			return nil, err
		}
		n := uint16(body[1])<<8 | uint16(body[2])
		if n&0xE000 != 0xE000 {
			return nil, errors.Wrap(ErrInvalidInput, "es info pid reserved bits")
		}
		pid, err := NewPid(n & 0x1FFF)
		if err != nil {
			return nil, err
		}
		n = uint16(body[3])<<8 | uint16(body[4])
		if n&0xF000 != 0xF000 {
			return nil, errors.Wrap(ErrInvalidInput, "es info length reserved bits")
		}
		if n&0x0C00 != 0 {
			return nil, errors.Wrap(ErrInvalidInput, "es info length unused bits")
		}
		esInfoLen := int(n & 0x03FF)
		body = body[5:]
		if len(body) < esInfoLen {
			return nil, errors.Wrap(ErrInvalidInput, "es info length overruns body")
		}
		descriptors, err := readDescriptorsFrom(body[:esInfoLen])
		if err != nil {
			return nil, errors.Wrap(err, "es info descriptors")
		}
		body = body[esInfoLen:]
		esInfo = append(esInfo, EsInfo{StreamType: streamType, ElementaryPid: pid, Descriptors: descriptors})
	}

	if err := consumeStuffing(r); err != nil {
		return nil, errors.Wrap(err, "pmt trailing stuffing")
	}

	return &Pmt{
		ProgramNum:    syntax.TableIDExtension,
		PcrPid:        pcrPid,
		VersionNumber: syntax.VersionNumber,
		ProgramInfo:   programInfo,
		EsInfo:        esInfo,
	}, nil
}

// WriteTo writes the pointer field, the PMT table, and its CRC-32
// trailer.
func (p *Pmt) WriteTo(w io.Writer) error {
	if err := WritePointerField(w); err != nil {
		return err
	}

	pcrPidRaw := uint16(NullPid)
	if p.PcrPid != nil {
		pcrPidRaw = p.PcrPid.Uint16()
	}

	programInfoLen := descriptorsLen(p.ProgramInfo)
	if programInfoLen > maxProgramInfoLen {
		return errors.Wrap(ErrInvalidInput, "pmt program info too long")
	}

	var body []byte
	n := uint16(0xE000) | pcrPidRaw
	body = append(body, byte(n>>8), byte(n))
	n = uint16(0xF000) | uint16(programInfoLen)
	body = append(body, byte(n>>8), byte(n))
	body = append(body, writeDescriptors(p.ProgramInfo)...)

	for _, es := range p.EsInfo {
		esInfoLen := descriptorsLen(es.Descriptors)
		if esInfoLen > maxProgramInfoLen {
			return errors.Wrap(ErrInvalidInput, "pmt es info too long")
		}
		body = append(body, es.StreamType.Uint8())
		n := uint16(0xE000) | es.ElementaryPid.Uint16()
		body = append(body, byte(n>>8), byte(n))
		n = uint16(0xF000) | uint16(esInfoLen)
		body = append(body, byte(n>>8), byte(n))
		body = append(body, writeDescriptors(es.Descriptors)...)
	}

	syntax := &PsiTableSyntax{
		TableIDExtension:     p.ProgramNum,
		VersionNumber:        p.VersionNumber,
		CurrentNextIndicator: true,
		SectionNumber:        0,
		LastSectionNumber:    0,
		TableData:            body,
	}
	return writePsiTableTo(w, PsiTableHeader{TableID: PmtTableID}, syntax)
}
