/*
NAME
  pat.go

DESCRIPTION
  Program Association Table: the PSI table (id 0x00) mapping program
  numbers to the PID carrying each program's PMT.

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

// PatTableID is the fixed table id of a Program Association Table.
const PatTableID = 0x00

// ProgramAssociation maps one program number to the PID carrying its
// PMT.
type ProgramAssociation struct {
	ProgramNum    uint16
	ProgramMapPid Pid
}

// Pat is the decoded content of a Program Association Table.
type Pat struct {
	TransportStreamID uint16
	VersionNumber     VersionNumber
	Entries           []ProgramAssociation
}

func (*Pat) MtsPayload() {}

// ReadPatFrom reads the PSI pointer field, a single PAT table, and its
// CRC-32 trailer.
func ReadPatFrom(r io.Reader) (*Pat, error) {
	if err := ReadPointerField(r); err != nil {
		return nil, err
	}
	header, syntax, err := readPsiTableFrom(r)
	if err != nil {
		return nil, err
	}
	if header.TableID != PatTableID {
		return nil, errors.Wrapf(ErrInvalidInput, "unexpected pat table id %#02x", header.TableID)
	}
	if header.PrivateBit {
		return nil, errors.Wrap(ErrInvalidInput, "pat private bit set")
	}
	if syntax == nil {
		return nil, errors.Wrap(ErrInvalidInput, "pat missing syntax section")
	}
	if syntax.SectionNumber != 0 || syntax.LastSectionNumber != 0 {
		return nil, errors.Wrap(ErrInvalidInput, "pat spans multiple sections")
	}
	if !syntax.CurrentNextIndicator {
		return nil, errors.Wrap(ErrInvalidInput, "pat current_next_indicator clear")
	}
	if len(syntax.TableData)%4 != 0 {
		return nil, errors.Wrap(ErrInvalidInput, "pat table data not a multiple of 4 bytes")
	}

	var entries []ProgramAssociation
	for i := 0; i+4 <= len(syntax.TableData); i += 4 {
		programNum := uint16(syntax.TableData[i])<<8 | uint16(syntax.TableData[i+1])
		n := uint16(syntax.TableData[i+2])<<8 | uint16(syntax.TableData[i+3])
		if n&0xE000 != 0xE000 {
			return nil, errors.Wrap(ErrInvalidInput, "pat entry reserved bits")
		}
		pid, err := NewPid(n & 0x1FFF)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ProgramAssociation{ProgramNum: programNum, ProgramMapPid: pid})
	}

	if err := consumeStuffing(r); err != nil {
		return nil, errors.Wrap(err, "pat trailing stuffing")
	}

	return &Pat{
		TransportStreamID: syntax.TableIDExtension,
		VersionNumber:     syntax.VersionNumber,
		Entries:           entries,
	}, nil
}

// WriteTo writes the pointer field, the PAT table, and its CRC-32
// trailer. It writes no trailing stuffing; the TS writer absorbs the
// packet's free space in an adaptation field instead.
func (p *Pat) WriteTo(w io.Writer) error {
	if err := WritePointerField(w); err != nil {
		return err
	}
	tableData := make([]byte, 0, 4*len(p.Entries))
	for _, e := range p.Entries {
		n := uint16(0xE000) | e.ProgramMapPid.Uint16()
		tableData = append(tableData, byte(e.ProgramNum>>8), byte(e.ProgramNum), byte(n>>8), byte(n))
	}
	syntax := &PsiTableSyntax{
		TableIDExtension:     p.TransportStreamID,
		VersionNumber:        p.VersionNumber,
		CurrentNextIndicator: true,
		SectionNumber:        0,
		LastSectionNumber:    0,
		TableData:            tableData,
	}
	return writePsiTableTo(w, PsiTableHeader{TableID: PatTableID}, syntax)
}
