/*
NAME
  psiframing.go

DESCRIPTION
  Program-Specific Information section framing: the pointer field, the
  per-table header and syntax section, and the CRC-32 trailer that
  protects each syntax section.

AUTHOR
  Saxon Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mts

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/pelagios/mpegts/container/mts/psi"
)

const maxSyntaxSectionLen = 1021

// PsiTableHeader is the 3-byte PSI table header preceding an optional
// syntax section.
type PsiTableHeader struct {
	TableID    uint8
	PrivateBit bool
}

// readPsiTableHeaderFrom reads the table header and returns the
// declared syntax_section_len alongside it.
func readPsiTableHeaderFrom(r io.Reader) (PsiTableHeader, uint16, error) {
	tableID, err := readByte(r)
	if err != nil {
		return PsiTableHeader{}, 0, err
	}
	n, err := readUint16(r)
	if err != nil {
		return PsiTableHeader{}, 0, err
	}
	syntaxIndicator := n&0x8000 != 0
	privateBit := n&0x4000 != 0
	if n&0x3000 != 0x3000 {
		return PsiTableHeader{}, 0, errors.Wrap(ErrInvalidInput, "psi table header reserved bits")
	}
	if n&0x0C00 != 0 {
		return PsiTableHeader{}, 0, errors.Wrap(ErrInvalidInput, "psi table header unused bits")
	}
	sectionLen := n & 0x03FF
	if sectionLen > maxSyntaxSectionLen {
		return PsiTableHeader{}, 0, errors.Wrap(ErrInvalidInput, "psi syntax section too long")
	}
	if syntaxIndicator && sectionLen == 0 {
		return PsiTableHeader{}, 0, errors.Wrap(ErrInvalidInput, "psi syntax section declared but empty")
	}
	if !syntaxIndicator {
		sectionLen = 0
	}
	return PsiTableHeader{TableID: tableID, PrivateBit: privateBit}, sectionLen, nil
}

func writePsiTableHeaderTo(w io.Writer, h PsiTableHeader, syntaxSectionLen uint16) error {
	if syntaxSectionLen > maxSyntaxSectionLen {
		return errors.Wrap(ErrInvalidInput, "psi syntax section too long")
	}
	if err := writeByte(w, h.TableID); err != nil {
		return err
	}
	var n uint16
	if syntaxSectionLen != 0 {
		n |= 0x8000
	}
	if h.PrivateBit {
		n |= 0x4000
	}
	n |= 0x3000
	n |= syntaxSectionLen
	return writeUint16(w, n)
}

// PsiTableSyntax is the syntax section following a PSI table header,
// trailed on the wire by a CRC-32 over the header and this section.
type PsiTableSyntax struct {
	TableIDExtension    uint16
	VersionNumber       VersionNumber
	CurrentNextIndicator bool
	SectionNumber       uint8
	LastSectionNumber   uint8
	TableData           []byte
}

func (s *PsiTableSyntax) externalSize() int {
	return 2 + 1 + 1 + 1 + len(s.TableData) + 4
}

// readPsiTableFrom reads a table header, optional syntax section, and
// (if present) verifies the trailing CRC-32.
func readPsiTableFrom(r io.Reader) (PsiTableHeader, *PsiTableSyntax, error) {
	header, syntaxLen, err := readPsiTableHeaderFrom(r)
	if err != nil {
		return PsiTableHeader{}, nil, err
	}
	if syntaxLen == 0 {
		return header, nil, nil
	}
	if syntaxLen < 4 {
		return PsiTableHeader{}, nil, errors.Wrap(ErrInvalidInput, "psi syntax section shorter than crc")
	}

	tableIDExt, err := readUint16(r)
	if err != nil {
		return PsiTableHeader{}, nil, err
	}
	b, err := readByte(r)
	if err != nil {
		return PsiTableHeader{}, nil, err
	}
	if b&0xC0 != 0xC0 {
		return PsiTableHeader{}, nil, errors.Wrap(ErrInvalidInput, "psi syntax reserved bits")
	}
	version, err := NewVersionNumber((b & 0x3E) >> 1)
	if err != nil {
		return PsiTableHeader{}, nil, err
	}
	currentNext := b&1 != 0
	sectionNumber, err := readByte(r)
	if err != nil {
		return PsiTableHeader{}, nil, err
	}
	lastSectionNumber, err := readByte(r)
	if err != nil {
		return PsiTableHeader{}, nil, err
	}
	dataLen := int(syntaxLen) - 5 - 4
	tableData := make([]byte, dataLen)
	if err := readFull(r, tableData); err != nil {
		return PsiTableHeader{}, nil, errors.Wrap(err, "psi table data")
	}

	// The header bytes participate in the CRC too: reconstruct and feed
	// them through an identical accumulator before comparing.
	headerCrc := psi.Sum(marshalPsiHeaderForCrc(header, syntaxLen))
	fullCrc := psi.Update(headerCrc, marshalPsiSyntaxForCrc(tableIDExt, b, sectionNumber, lastSectionNumber, tableData))

	var trailer [4]byte
	if err := readFull(r, trailer[:]); err != nil {
		return PsiTableHeader{}, nil, errors.Wrap(err, "psi crc trailer")
	}
	gotCrc := binary.BigEndian.Uint32(trailer[:])
	if gotCrc != fullCrc {
		return PsiTableHeader{}, nil, errors.Wrapf(ErrInvalidInput, "psi crc mismatch: got %#08x want %#08x", gotCrc, fullCrc)
	}

	return header, &PsiTableSyntax{
		TableIDExtension:     tableIDExt,
		VersionNumber:        version,
		CurrentNextIndicator: currentNext,
		SectionNumber:        sectionNumber,
		LastSectionNumber:    lastSectionNumber,
		TableData:            tableData,
	}, nil
}

// writePsiTableTo writes the table header, the syntax section (if
// non-nil), and its trailing CRC-32.
func writePsiTableTo(w io.Writer, header PsiTableHeader, syntax *PsiTableSyntax) error {
	if syntax == nil {
		return writePsiTableHeaderTo(w, header, 0)
	}
	syntaxLen := uint16(syntax.externalSize())
	if err := writePsiTableHeaderTo(w, header, syntaxLen); err != nil {
		return err
	}

	b := byte(0xC0) | syntax.VersionNumber.Uint8()<<1
	if syntax.CurrentNextIndicator {
		b |= 1
	}
	if err := writeUint16(w, syntax.TableIDExtension); err != nil {
		return err
	}
	if err := writeByte(w, b); err != nil {
		return err
	}
	if err := writeByte(w, syntax.SectionNumber); err != nil {
		return err
	}
	if err := writeByte(w, syntax.LastSectionNumber); err != nil {
		return err
	}
	if _, err := w.Write(syntax.TableData); err != nil {
		return &WriteError{Err: err}
	}

	var trailer [4]byte
	binary.BigEndian.PutUint32(trailer[:], combinePsiCrc(header, syntaxLen, syntax))
	if _, err := w.Write(trailer[:]); err != nil {
		return &WriteError{Err: err}
	}
	return nil
}

// combinePsiCrc computes the CRC over the header and syntax bytes from
// the in-memory table; used on write to produce the trailer after the
// header and syntax section have been written to w.
func combinePsiCrc(header PsiTableHeader, syntaxLen uint16, syntax *PsiTableSyntax) uint32 {
	crc := psi.Sum(marshalPsiHeaderForCrc(header, syntaxLen))
	b := byte(0xC0) | syntax.VersionNumber.Uint8()<<1
	if syntax.CurrentNextIndicator {
		b |= 1
	}
	return psi.Update(crc, marshalPsiSyntaxForCrc(syntax.TableIDExtension, b, syntax.SectionNumber, syntax.LastSectionNumber, syntax.TableData))
}

func marshalPsiHeaderForCrc(h PsiTableHeader, syntaxLen uint16) []byte {
	n := uint16(0x8000 | 0x3000 | syntaxLen)
	if h.PrivateBit {
		n |= 0x4000
	}
	return []byte{h.TableID, byte(n >> 8), byte(n)}
}

func marshalPsiSyntaxForCrc(tableIDExt uint16, b, sectionNumber, lastSectionNumber byte, tableData []byte) []byte {
	out := make([]byte, 0, 4+len(tableData))
	out = append(out, byte(tableIDExt>>8), byte(tableIDExt), b, sectionNumber, lastSectionNumber)
	out = append(out, tableData...)
	return out
}

// ReadPointerField reads and validates the PSI pointer field: it must
// be zero, matching this codec's scope (a single PSI blob carries all
// of its tables contiguously with no leading stuffing).
func ReadPointerField(r io.Reader) error {
	b, err := readByte(r)
	if err != nil {
		return err
	}
	if b != 0 {
		return errors.Wrap(ErrUnsupported, "non-zero psi pointer field")
	}
	return nil
}

// WritePointerField writes the zero pointer field.
func WritePointerField(w io.Writer) error { return writeByte(w, 0) }
